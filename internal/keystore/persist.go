package keystore

import (
	"encoding/json"
	"fmt"
	"os"
)

// load reads the key file and rebuilds both indices from scratch by
// replaying the insertion path per record. It refuses to run over
// unsaved changes; a load never silently discards a dirty store.
func (s *Store) load() error {
	if s.dirty {
		return fmt.Errorf("refusing to load %s over unsaved changes", s.Path())
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoStore, s.Path())
		}
		return fmt.Errorf("read key file: %w", err)
	}

	var recs []*Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("parse key file %s: %w", s.Path(), err)
	}
	for _, rec := range recs {
		s.insert(rec)
	}
	return nil
}

// flush rewrites the whole key file from the by-domain index. It is a
// no-op on a clean store, and the dirty flag stays set when the write
// fails so the next mutation retries the same data.
func (s *Store) flush() error {
	if !s.dirty {
		return nil
	}

	data, err := json.MarshalIndent(s.flatten(), "", "    ")
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	s.dirty = false
	return nil
}

// flatten walks the by-domain index in domain-then-account insertion
// order, which fixes the record order in the key file.
func (s *Store) flatten() []*Record {
	recs := make([]*Record, 0)
	for _, d := range s.domains {
		for _, a := range s.domainAccounts[d] {
			recs = append(recs, s.byDomain[d][a]...)
		}
	}
	return recs
}
