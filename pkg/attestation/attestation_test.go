package attestation

import (
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/primitives"
)

type fakePayload struct{ v string }

func (f fakePayload) Canonical() []byte { return canon.NewBuilder().Str(f.v).Finish() }

func mustTS(t *testing.T) primitives.Timestamp {
	t.Helper()
	ts, err := primitives.NewTimestamp("as_of", time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error building timestamp: %v", err)
	}
	return ts
}

func mustParty(t *testing.T, s string) primitives.NonEmptyString {
	t.Helper()
	p, err := primitives.NewNonEmptyString("attested_by", s)
	if err != nil {
		t.Fatalf("unexpected error building party: %v", err)
	}
	return p
}

func TestIdenticalArgumentsProduceEqualIDs(t *testing.T) {
	payload := fakePayload{v: "order-123"}
	asOf := mustTS(t)
	party := mustParty(t, "VENUE-A")

	a1, err := New[fakePayload](payload, Firm, asOf, party, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := New[fakePayload](payload, Firm, asOf, party, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1.IDHex() != a2.IDHex() {
		t.Fatal("two calls to New with identical arguments must return byte-equal attestation ids")
	}
}

func TestDerivedRequiresProvenance(t *testing.T) {
	payload := fakePayload{v: "curve-x"}
	asOf := mustTS(t)
	party := mustParty(t, "MODEL-A")
	if _, err := New[fakePayload](payload, Derived, asOf, party, nil, nil); err == nil {
		t.Fatal("expected DERIVED attestation with no provenance to fail")
	}
}

func TestNonDerivedForbidsProvenance(t *testing.T) {
	payload := fakePayload{v: "quote-x"}
	asOf := mustTS(t)
	party := mustParty(t, "VENUE-B")
	prov := []Provenance{{SourceHash: "deadbeef", Role: "par_spread_quote"}}
	if _, err := New[fakePayload](payload, Quoted, asOf, party, prov, nil); err == nil {
		t.Fatal("expected QUOTED attestation with provenance to fail")
	}
}

func TestDifferentAttesterChangesID(t *testing.T) {
	payload := fakePayload{v: "order-123"}
	asOf := mustTS(t)

	a1, err := New[fakePayload](payload, Firm, asOf, mustParty(t, "VENUE-A"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a2, err := New[fakePayload](payload, Firm, asOf, mustParty(t, "VENUE-B"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a1.IDHex() == a2.IDHex() {
		t.Fatal("attestations from different attesters must not collide on id")
	}
	if a1.ContentHashHex() != a2.ContentHashHex() {
		t.Fatal("content hash depends only on payload, not on attester")
	}
}

func TestIsStaleAt(t *testing.T) {
	payload := fakePayload{v: "quote-x"}
	asOf := mustTS(t)
	a, err := New[fakePayload](payload, Quoted, asOf, mustParty(t, "VENUE-A"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fresh := asOf.Time().Add(time.Minute)
	stale := asOf.Time().Add(time.Hour)
	if a.IsStaleAt(fresh, 15*time.Minute) {
		t.Fatal("1 minute after as-of should not be stale under a 15 minute threshold")
	}
	if !a.IsStaleAt(stale, 15*time.Minute) {
		t.Fatal("1 hour after as-of should be stale under a 15 minute threshold")
	}
}
