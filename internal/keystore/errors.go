package keystore

import (
	"errors"
	"fmt"
)

// ErrNoStore reports that the key file does not exist yet. It is a
// distinct condition from a file that exists but cannot be read or
// parsed: a fresh machine gets an empty store, a corrupt file gets an
// error.
var ErrNoStore = errors.New("no key file")

// ValidationError reports a missing required field on a record or
// patch. Nothing has been mutated when one is returned.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}
