package keystore

import (
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "access_keys.json")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestOpen_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	if s.Status() != StatusNoStore {
		t.Errorf("expected StatusNoStore, got %v", s.Status())
	}
	if got := s.List("", ""); len(got) != 0 {
		t.Errorf("expected empty listing, got %d entries", len(got))
	}
}

func TestCreateAndFind(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("alice", "api.example.com", "secret1", ""); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	recs := s.Find("alice", "api.example.com", false)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Account != "alice" || rec.Domain != "api.example.com" || rec.Key != "secret1" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Expired {
		t.Error("new record should not be expired")
	}
	if rec.Description != "A key for the api.example.com API" {
		t.Errorf("unexpected default description %q", rec.Description)
	}
	if rec.CreatedAt == "" || rec.UpdatedAt == "" {
		t.Error("timestamps should be set after create")
	}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name                 string
		account, domain, key string
	}{
		{"missing account", "", "api.example.com", "k"},
		{"missing domain", "alice", "", "k"},
		{"missing key", "alice", "api.example.com", ""},
	}

	for _, tt := range tests {
		err := s.Create(tt.account, tt.domain, tt.key, "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
		}
	}

	if got := s.List("", ""); len(got) != 0 {
		t.Errorf("rejected creates should not mutate the store, got %d entries", len(got))
	}
}

func TestSubmit_NormalizesDomain(t *testing.T) {
	s := newTestStore(t)

	rec := NewRecord()
	rec.Account = "alice"
	rec.Domain = "HTTPS://api.Example.com:443/v1"
	rec.Key = "secret1"
	if err := s.Submit(rec); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if rec.Domain != "api.example.com" {
		t.Errorf("domain should be normalized in place, got %q", rec.Domain)
	}
	if got := s.Find("alice", "api.example.com", false); len(got) != 1 {
		t.Errorf("lookup by canonical domain: expected 1, got %d", len(got))
	}
	if got := s.Find("alice", "http://API.EXAMPLE.COM/other", false); len(got) != 1 {
		t.Errorf("lookup by messy domain: expected 1, got %d", len(got))
	}
}

func TestSubmit_Validation(t *testing.T) {
	s := newTestStore(t)

	rec := NewRecord()
	rec.Account = "alice"
	rec.Domain = "api.example.com"
	err := s.Submit(rec)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for missing key, got %v", err)
	}

	if err := s.Submit(nil); err == nil {
		t.Error("expected error for nil record")
	}
}

func TestMultipleKeysPerPair(t *testing.T) {
	s := newTestStore(t)

	s.Create("bob", "svc.io", "k1", "")
	s.Create("bob", "svc.io", "k2", "")

	recs := s.Find("bob", "svc.io", false)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Key != "k1" || recs[1].Key != "k2" {
		t.Errorf("expected insertion order k1, k2; got %q, %q", recs[0].Key, recs[1].Key)
	}
}

func TestFind_ReturnsCopies(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "")

	recs := s.Find("alice", "", false)
	recs[0].Key = "tampered"
	recs[0].Extra = map[string]string{"region": "eu"}

	again := s.Find("alice", "", false)
	if again[0].Key != "secret1" {
		t.Error("mutating a Find result leaked into the store")
	}
	if again[0].Extra != nil {
		t.Error("mutating a Find result's Extra leaked into the store")
	}
}

func TestFind_AccountUnionAcrossDomains(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "k1", "")
	s.Create("alice", "svc.io", "k2", "")

	recs := s.Find("alice", "", false)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records across domains, got %d", len(recs))
	}
}

func TestFind_PairMissingReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "k1", "")
	s.Create("bob", "svc.io", "k2", "")

	// alice exists but not under svc.io: no fall-through to the
	// domain index.
	if got := s.Find("alice", "svc.io", false); len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestFind_DomainFirstAccountOnly(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "svc.io", "ka", "")
	s.Create("bob", "svc.io", "kb", "")

	recs := s.Find("", "svc.io", false)
	if len(recs) != 1 {
		t.Fatalf("expected only the first account's records, got %d", len(recs))
	}
	if recs[0].Account != "alice" {
		t.Errorf("expected first inserted account alice, got %q", recs[0].Account)
	}
}

func TestFind_UnknownAccountFallsThroughToDomain(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "svc.io", "ka", "")

	recs := s.Find("nobody", "svc.io", false)
	if len(recs) != 1 || recs[0].Account != "alice" {
		t.Errorf("expected fall-through to domain lookup, got %d records", len(recs))
	}
}

func TestFind_NoFilters(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "svc.io", "ka", "")

	if got := s.Find("", "", false); len(got) != 0 {
		t.Errorf("find without filters should return nothing, got %d", len(got))
	}
}

func TestUpdate_ProtectedFields(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "first")
	created := s.Find("alice", "", false)[0].CreatedAt

	patch := &Record{
		Account:     "alice",
		Domain:      "api.example.com",
		Key:         "secret1",
		Description: "second",
		CreatedAt:   "1999-01-01 00:00:00",
		UpdatedAt:   "1999-01-01 00:00:00",
		Expired:     true,
	}
	ok, err := s.Update(patch)
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	rec := s.Find("alice", "", false)[0]
	if rec.Description != "second" {
		t.Errorf("description should update, got %q", rec.Description)
	}
	if rec.CreatedAt != created {
		t.Error("created_at must never change on update")
	}
	if rec.UpdatedAt == "1999-01-01 00:00:00" {
		t.Error("updated_at must not be taken from the patch")
	}
	if rec.Expired {
		t.Error("expired must not be taken from the patch")
	}
	if rec.Account != "alice" || rec.Domain != "api.example.com" || rec.Key != "secret1" {
		t.Errorf("identity fields changed: %+v", rec)
	}
}

func TestUpdate_AddAndRemoveOptionalFields(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "desc")

	patch := &Record{
		Account:      "alice",
		Domain:       "api.example.com",
		Key:          "secret1",
		Description:  "desc",
		Organization: "acme",
		Mnemonic:     "prod key",
		Extra:        map[string]string{"region": "eu", "tier": "gold"},
	}
	if ok, err := s.Update(patch); err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	rec := s.Find("alice", "", false)[0]
	if rec.Organization != "acme" || rec.Mnemonic != "prod key" {
		t.Errorf("optional fields not applied: %+v", rec)
	}
	if rec.Extra["region"] != "eu" || rec.Extra["tier"] != "gold" {
		t.Errorf("extra fields not applied: %+v", rec.Extra)
	}

	// Fields absent from the next patch are removed.
	patch = &Record{
		Account: "alice",
		Domain:  "api.example.com",
		Key:     "secret1",
		Extra:   map[string]string{"region": "eu"},
	}
	if ok, err := s.Update(patch); err != nil || !ok {
		t.Fatalf("second Update: ok=%v err=%v", ok, err)
	}

	rec = s.Find("alice", "", false)[0]
	if rec.Organization != "" || rec.Mnemonic != "" || rec.Description != "" {
		t.Errorf("cleared fields should be empty: %+v", rec)
	}
	if _, ok := rec.Extra["tier"]; ok {
		t.Error("extra field absent from patch should be removed")
	}
	if rec.Extra["region"] != "eu" {
		t.Error("extra field present in patch should survive")
	}
}

func TestUpdate_SelectsByKey(t *testing.T) {
	s := newTestStore(t)
	s.Create("bob", "svc.io", "k1", "one")
	s.Create("bob", "svc.io", "k2", "two")

	patch := &Record{Account: "bob", Domain: "svc.io", Key: "k2", Description: "updated"}
	if ok, err := s.Update(patch); err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	recs := s.Find("bob", "svc.io", false)
	if recs[0].Description != "one" {
		t.Errorf("wrong record updated: %+v", recs[0])
	}
	if recs[1].Description != "updated" {
		t.Errorf("target record not updated: %+v", recs[1])
	}
}

func TestUpdate_NoMatchIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "")

	ok, err := s.Update(&Record{Account: "alice", Domain: "api.example.com", Key: "wrong"})
	if err != nil {
		t.Fatalf("no-match update should not error: %v", err)
	}
	if ok {
		t.Error("expected false for unmatched key")
	}
}

func TestUpdate_Validation(t *testing.T) {
	s := newTestStore(t)

	var verr *ValidationError

	_, err := s.Update(&Record{Key: "k"})
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError without account and domain, got %v", err)
	}

	_, err = s.Update(&Record{Account: "alice"})
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError without key, got %v", err)
	}

	_, err = s.Update(nil)
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError for nil patch, got %v", err)
	}
}

func TestExpireLifecycle(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "")

	entries := s.List("", "")
	if len(entries) != 1 || entries[0].Expired {
		t.Fatalf("expected one active entry, got %+v", entries)
	}

	ok, err := s.Expire(&Record{Account: "alice", Domain: "api.example.com", Key: "secret1"})
	if err != nil || !ok {
		t.Fatalf("Expire: ok=%v err=%v", ok, err)
	}

	entries = s.List("", "")
	if len(entries) != 1 || !entries[0].Expired {
		t.Errorf("listing should show the expired entry, got %+v", entries)
	}
	if got := s.Find("alice", "", false); len(got) != 0 {
		t.Errorf("default find should skip expired records, got %d", len(got))
	}
	if got := s.Find("alice", "", true); len(got) != 1 {
		t.Errorf("includeExpired find should return the record, got %d", len(got))
	}
}

func TestExpire_Twice(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "secret1", "")

	patch := &Record{Account: "alice", Domain: "api.example.com", Key: "secret1"}
	for i := 0; i < 2; i++ {
		ok, err := s.Expire(patch)
		if err != nil {
			t.Fatalf("Expire #%d failed: %v", i+1, err)
		}
		if !ok {
			t.Errorf("Expire #%d should still match the expired record", i+1)
		}
	}

	recs := s.Find("alice", "", true)
	if len(recs) != 1 || !recs[0].Expired {
		t.Errorf("record should stay expired, got %+v", recs)
	}
}

func TestExpire_NoMatch(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Expire(&Record{Account: "ghost", Domain: "svc.io", Key: "k"})
	if err != nil {
		t.Fatalf("no-match expire should not error: %v", err)
	}
	if ok {
		t.Error("expected false for unmatched record")
	}
}

func TestList_Filters(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "k1", "")
	s.Create("alice", "svc.io", "k2", "")
	s.Create("bob", "svc.io", "k3", "")
	s.Create("bob", "svc.io", "k4", "")

	if got := s.List("", ""); len(got) != 4 {
		t.Errorf("unfiltered list: expected 4, got %d", len(got))
	}
	if got := s.List("alice", ""); len(got) != 2 {
		t.Errorf("account list: expected 2, got %d", len(got))
	}
	// Domain filter stops at the first account holding the domain.
	got := s.List("", "svc.io")
	if len(got) != 1 || got[0].Account != "alice" {
		t.Errorf("domain list: expected alice's entry only, got %+v", got)
	}
	// An unknown account filter falls back to the full listing.
	if got := s.List("ghost", ""); len(got) != 4 {
		t.Errorf("unknown account list: expected 4, got %d", len(got))
	}
}

func TestIndexConsistency(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "k1", "")
	s.Create("alice", "svc.io", "k2", "")
	s.Create("bob", "svc.io", "k3", "")
	s.Update(&Record{Account: "alice", Domain: "svc.io", Key: "k2", Description: "d"})
	s.Expire(&Record{Account: "bob", Domain: "svc.io", Key: "k3"})

	checkIndexConsistency(t, s)

	if s.dirty {
		t.Error("store should be clean after synchronous flushes")
	}
}

// checkIndexConsistency verifies that both indices hold the same
// record instances for every (account, domain) pair.
func checkIndexConsistency(t *testing.T, s *Store) {
	t.Helper()

	for account, domains := range s.byAccount {
		for domain, recs := range domains {
			mirror := s.byDomain[domain][account]
			if len(mirror) != len(recs) {
				t.Fatalf("index mismatch for (%s, %s): %d vs %d records",
					account, domain, len(recs), len(mirror))
			}
			for i := range recs {
				if recs[i] != mirror[i] {
					t.Errorf("(%s, %s)[%d]: indices hold different instances",
						account, domain, i)
				}
			}
		}
	}
	for domain, accounts := range s.byDomain {
		for account, recs := range accounts {
			if len(s.byAccount[account][domain]) != len(recs) {
				t.Errorf("record under by-domain (%s, %s) missing from by-account",
					domain, account)
			}
		}
	}
}

func TestVerifyAndCount(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "api.example.com", "k1", "")
	s.Create("bob", "svc.io", "k2", "")
	s.Create("bob", "svc.io", "k3", "")

	if err := s.Verify(); err != nil {
		t.Errorf("Verify on a consistent store failed: %v", err)
	}
	if got := s.Count(); got != 3 {
		t.Errorf("expected 3 records, got %d", got)
	}

	// Break the invariant by hand and make sure Verify notices.
	s.byDomain["svc.io"]["bob"] = s.byDomain["svc.io"]["bob"][:1]
	if err := s.Verify(); err == nil {
		t.Error("Verify should report a broken index pair")
	}
}

func TestMutationVisibleThroughBothIndices(t *testing.T) {
	s := newTestStore(t)
	s.Create("alice", "svc.io", "k1", "")

	s.Expire(&Record{Account: "alice", Domain: "svc.io", Key: "k1"})

	// The by-domain path must see the expiration done via the
	// by-account path: the indices share instances, not copies.
	recs := s.Find("", "svc.io", true)
	if len(recs) != 1 || !recs[0].Expired {
		t.Errorf("expiration not visible through by-domain index: %+v", recs)
	}
}
