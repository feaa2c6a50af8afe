package keystore

import "time"

// timeLayout is second precision, local time. Keeps the key file free
// of sub-second noise and stable across rewrites.
const timeLayout = "2006-01-02 15:04:05"

func timestamp() string {
	return time.Now().Format(timeLayout)
}

// Record is one stored credential. Account, Domain, and Key are
// required and immutable once the record has been submitted; the
// remaining string fields are optional. Extra carries caller-defined
// fields that don't fit the fixed schema.
type Record struct {
	Key          string            `json:"key"`
	Account      string            `json:"account"`
	Domain       string            `json:"domain"`
	Organization string            `json:"organization"`
	Mnemonic     string            `json:"mnemonic"`
	Description  string            `json:"description"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
	Expired      bool              `json:"expired"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// NewRecord returns a blank record stamped with the creation time.
// Fill in Account, Domain, and Key before submitting it.
func NewRecord() *Record {
	return &Record{CreatedAt: timestamp()}
}

// Clone returns an independent copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Extra != nil {
		c.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Entry is the projection returned by List: enough to identify a key
// without exposing its value.
type Entry struct {
	Account     string
	Domain      string
	Description string
	Expired     bool
}
