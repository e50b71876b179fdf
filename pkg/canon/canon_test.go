package canon

import (
	"testing"

	"github.com/attestor-io/core/pkg/decimal"
)

type fakeValue struct {
	a, b string
}

func (f fakeValue) Canonical() []byte {
	return NewBuilder().Str(f.a).Str(f.b).Finish()
}

func TestFieldBoundaryNonAmbiguous(t *testing.T) {
	v1 := fakeValue{a: "a", b: "bc"}
	v2 := fakeValue{a: "ab", b: "c"}
	if HexHash(Hash(v1)) == HexHash(Hash(v2)) {
		t.Fatal("length-prefixing should distinguish \"a\"+\"bc\" from \"ab\"+\"c\"")
	}
}

func TestHashDeterministicAcrossCalls(t *testing.T) {
	v := fakeValue{a: "x", b: "y"}
	h1 := Hash(v)
	h2 := Hash(v)
	if h1 != h2 {
		t.Fatal("Hash must be deterministic for identical inputs")
	}
}

func TestStringMapOrderIndependent(t *testing.T) {
	b1 := NewBuilder().StringMap(map[string]string{"z": "1", "a": "2", "m": "3"}).Finish()
	b2 := NewBuilder().StringMap(map[string]string{"a": "2", "m": "3", "z": "1"}).Finish()
	if string(b1) != string(b2) {
		t.Fatal("StringMap must serialize identically regardless of map iteration order")
	}
}

func TestDecimalMapOrderIndependent(t *testing.T) {
	m1 := map[string]*decimal.Decimal{"rmse": decimal.MustNew("0.001"), "max_error": decimal.MustNew("0.01")}
	m2 := map[string]*decimal.Decimal{"max_error": decimal.MustNew("0.01"), "rmse": decimal.MustNew("0.001")}
	b1 := NewBuilder().DecimalMap(m1).Finish()
	b2 := NewBuilder().DecimalMap(m2).Finish()
	if string(b1) != string(b2) {
		t.Fatal("DecimalMap must serialize identically regardless of map iteration order")
	}
}

func TestListPreservesOrder(t *testing.T) {
	items1 := []Canonical{fakeValue{a: "1", b: ""}, fakeValue{a: "2", b: ""}}
	items2 := []Canonical{fakeValue{a: "2", b: ""}, fakeValue{a: "1", b: ""}}
	b1 := NewBuilder().List(items1).Finish()
	b2 := NewBuilder().List(items2).Finish()
	if string(b1) == string(b2) {
		t.Fatal("List must preserve caller-given order, not normalize it")
	}
}

func TestBoolDistinguishesTrueFalse(t *testing.T) {
	bt := NewBuilder().Bool(true).Finish()
	bf := NewBuilder().Bool(false).Finish()
	if string(bt) == string(bf) {
		t.Fatal("Bool(true) and Bool(false) must serialize differently")
	}
}

func TestHexHashLength(t *testing.T) {
	h := Hash(fakeValue{a: "a", b: "b"})
	hex := HexHash(h)
	if len(hex) != 64 {
		t.Fatalf("expected 64 hex characters for a SHA-256 hash, got %d", len(hex))
	}
}
