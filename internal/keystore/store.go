// Package keystore implements a local, file-backed API key store.
// Records are held in memory under two redundant indices, by account
// and by domain, and the full set is rewritten to a single JSON file
// after every mutation. The point is to keep keys out of source code
// and environment variables without standing up anything heavier.
package keystore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Status is the three-way outcome of opening a store.
type Status int

const (
	// StatusNoStore means the key file did not exist; the store is
	// open and empty, ready to bootstrap a new file.
	StatusNoStore Status = iota
	// StatusOpen means the key file was read and indexed.
	StatusOpen
	// StatusFailed means the key file exists but could not be loaded.
	StatusFailed
)

func (st Status) String() string {
	switch st {
	case StatusOpen:
		return "open and loaded"
	case StatusNoStore:
		return "no key file yet"
	default:
		return "load failed"
	}
}

// Store holds every key record under two indices that always share
// the same *Record instances: account → domain → records, and
// domain → account → records. A record appears in both or in neither.
//
// All mutation happens in memory and is flushed to the key file
// synchronously before the mutating call returns, so a store is never
// left dirty between calls.
type Store struct {
	dir   string
	fname string

	// one lock covers read-modify-flush as a unit
	mu sync.Mutex

	byAccount map[string]map[string][]*Record
	byDomain  map[string]map[string][]*Record

	// Go maps don't keep insertion order; the key file layout and the
	// first-match domain lookup both depend on it.
	domains        []string
	domainAccounts map[string][]string
	accountDomains map[string][]string

	dirty  bool
	status Status
}

// Open reads the key file at dir/fname and builds the indices.
// A missing file is not an error: the store comes back empty with
// StatusNoStore so a first run can bootstrap the file on the next
// mutation. An unreadable or malformed file is an error.
func Open(dir, fname string) (*Store, error) {
	s := &Store{
		dir:            dir,
		fname:          fname,
		byAccount:      make(map[string]map[string][]*Record),
		byDomain:       make(map[string]map[string][]*Record),
		domainAccounts: make(map[string][]string),
		accountDomains: make(map[string][]string),
	}
	if err := s.load(); err != nil {
		if errors.Is(err, ErrNoStore) {
			s.status = StatusNoStore
			return s, nil
		}
		s.status = StatusFailed
		return nil, err
	}
	s.status = StatusOpen
	return s, nil
}

// Status reports how the store came up: loaded, empty, or failed.
func (s *Store) Status() Status {
	return s.status
}

// Path returns the full path of the backing key file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.fname)
}

func validate(account, domain, key string) error {
	switch {
	case account == "":
		return &ValidationError{Field: "account"}
	case domain == "":
		return &ValidationError{Field: "domain"}
	case key == "":
		return &ValidationError{Field: "key"}
	}
	return nil
}

func validatePatch(patch *Record) error {
	if patch == nil {
		return &ValidationError{Field: "record"}
	}
	if patch.Account == "" && patch.Domain == "" {
		return &ValidationError{Field: "account or domain"}
	}
	if patch.Key == "" {
		return &ValidationError{Field: "key"}
	}
	return nil
}

// insert files rec under both indices, by-account first. The domain is
// normalized in place so the indices only ever see canonical keys.
func (s *Store) insert(rec *Record) {
	rec.Domain = Normalize(rec.Domain)
	account, domain := rec.Account, rec.Domain

	if s.byAccount[account] == nil {
		s.byAccount[account] = make(map[string][]*Record)
	}
	if _, ok := s.byAccount[account][domain]; !ok {
		s.accountDomains[account] = append(s.accountDomains[account], domain)
	}
	s.byAccount[account][domain] = append(s.byAccount[account][domain], rec)

	if s.byDomain[domain] == nil {
		s.byDomain[domain] = make(map[string][]*Record)
		s.domains = append(s.domains, domain)
	}
	if _, ok := s.byDomain[domain][account]; !ok {
		s.domainAccounts[domain] = append(s.domainAccounts[domain], account)
	}
	s.byDomain[domain][account] = append(s.byDomain[domain][account], rec)
}

// Submit files a record into both indices and writes the key file.
// The record must carry an account, a domain, and a key; its domain is
// normalized in place. Submitting a second record for an existing
// (account, domain) pair appends to that pair's sequence, which is how
// key rotation is stored.
func (s *Store) Submit(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(rec)
}

func (s *Store) submit(rec *Record) error {
	if rec == nil {
		return &ValidationError{Field: "record"}
	}
	if err := validate(rec.Account, rec.Domain, rec.Key); err != nil {
		return err
	}
	s.insert(rec)
	s.dirty = true
	rec.UpdatedAt = timestamp()
	return s.flush()
}

// Create is the shortcut path: build a record from the arguments and
// submit it. When description is empty a default one is derived from
// the domain as given by the caller.
func (s *Store) Create(account, domain, key, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validate(account, domain, key); err != nil {
		return err
	}
	rec := NewRecord()
	rec.Account = account
	rec.Domain = domain
	rec.Key = key
	if description == "" {
		rec.Description = fmt.Sprintf("A key for the %s API", domain)
	} else {
		rec.Description = description
	}
	return s.submit(rec)
}

// find returns live records; callers inside the package may mutate
// them. Resolution order: an exact (account, domain) pair, then all of
// an account's domains, then the first account listed under a domain.
// An unknown account falls through to the domain lookup.
func (s *Store) find(account, domain string, includeExpired bool) []*Record {
	var result []*Record

	if account != "" {
		if domains, ok := s.byAccount[account]; ok {
			if domain != "" {
				recs, ok := domains[Normalize(domain)]
				if !ok {
					return result
				}
				return appendFiltered(result, recs, includeExpired)
			}
			for _, d := range s.accountDomains[account] {
				result = appendFiltered(result, domains[d], includeExpired)
			}
			return result
		}
	}

	if domain != "" {
		domain = Normalize(domain)
		if accounts, ok := s.byDomain[domain]; ok {
			for _, a := range s.domainAccounts[domain] {
				// first account only, in insertion order
				return appendFiltered(result, accounts[a], includeExpired)
			}
		}
	}

	return result
}

func appendFiltered(dst []*Record, recs []*Record, includeExpired bool) []*Record {
	for _, r := range recs {
		if includeExpired || !r.Expired {
			dst = append(dst, r)
		}
	}
	return dst
}

// Find returns copies of the matching records so callers can't reach
// into the store's state through the result. With includeExpired false
// (the usual case) expired records are filtered out.
func (s *Store) Find(account, domain string, includeExpired bool) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.find(account, domain, includeExpired)
	out := make([]*Record, 0, len(live))
	for _, r := range live {
		out = append(out, r.Clone())
	}
	return out
}

// Update modifies the optional fields of one stored record. The patch
// must carry the key plus an account or domain to locate the record;
// the first stored record with a matching key wins. Account, domain,
// key, the timestamps, and the expired flag are never taken from the
// patch. Every other field is taken from it wholesale: empty optional
// fields clear the stored value, and Extra entries missing from the
// patch are removed.
//
// The bool reports whether a record matched; no match is not an error.
func (s *Store) Update(patch *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validatePatch(patch); err != nil {
		return false, err
	}
	for _, rec := range s.find(patch.Account, patch.Domain, true) {
		if rec.Key != patch.Key {
			continue
		}
		rec.Organization = patch.Organization
		rec.Mnemonic = patch.Mnemonic
		rec.Description = patch.Description
		if len(patch.Extra) == 0 {
			rec.Extra = nil
		} else {
			rec.Extra = make(map[string]string, len(patch.Extra))
			for k, v := range patch.Extra {
				rec.Extra[k] = v
			}
		}
		rec.UpdatedAt = timestamp()
		s.dirty = true
		return true, s.flush()
	}
	return false, nil
}

// Expire soft-deletes one stored record, located the same way Update
// locates its target. The record stays in the store and the key file;
// it just stops showing up in non-expired lookups. Expiring an
// already-expired record matches again and reports true.
func (s *Store) Expire(patch *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validatePatch(patch); err != nil {
		return false, err
	}
	for _, rec := range s.find(patch.Account, patch.Domain, true) {
		if rec.Key != patch.Key {
			continue
		}
		rec.Expired = true
		rec.UpdatedAt = timestamp()
		s.dirty = true
		return true, s.flush()
	}
	return false, nil
}

// List returns a descriptive entry for every matching record, expired
// ones included. With an account it covers all of that account's
// domains; with only a domain it covers that domain's first account,
// as find does; with neither filter matching (or none given) it covers
// the whole store.
func (s *Store) List(account, domain string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry

	if account != "" {
		if domains, ok := s.byAccount[account]; ok {
			for _, d := range s.accountDomains[account] {
				for _, rec := range domains[d] {
					out = append(out, entryOf(rec))
				}
			}
			return out
		}
	}

	if domain != "" {
		nd := Normalize(domain)
		if accounts, ok := s.byDomain[nd]; ok {
			for _, a := range s.domainAccounts[nd] {
				for _, rec := range accounts[a] {
					out = append(out, entryOf(rec))
				}
				return out
			}
		}
	}

	for _, d := range s.domains {
		for _, a := range s.domainAccounts[d] {
			for _, rec := range s.byDomain[d][a] {
				out = append(out, entryOf(rec))
			}
		}
	}
	return out
}

// Count reports how many records the store holds, expired included.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, d := range s.domains {
		for _, a := range s.domainAccounts[d] {
			n += len(s.byDomain[d][a])
		}
	}
	return n
}

// Verify checks the index-consistency invariant: every record filed
// under one index is filed under the other, for the same pair, as the
// same instance.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for account, domains := range s.byAccount {
		for domain, recs := range domains {
			mirror := s.byDomain[domain][account]
			if len(mirror) != len(recs) {
				return fmt.Errorf("index mismatch for (%s, %s): %d by-account, %d by-domain",
					account, domain, len(recs), len(mirror))
			}
			for i := range recs {
				if recs[i] != mirror[i] {
					return fmt.Errorf("indices hold different instances for (%s, %s)", account, domain)
				}
			}
		}
	}
	for domain, accounts := range s.byDomain {
		for account, recs := range accounts {
			if len(s.byAccount[account][domain]) != len(recs) {
				return fmt.Errorf("by-domain records for (%s, %s) missing from by-account", account, domain)
			}
		}
	}
	return nil
}

func entryOf(rec *Record) Entry {
	return Entry{
		Account:     rec.Account,
		Domain:      rec.Domain,
		Description: rec.Description,
		Expired:     rec.Expired,
	}
}
