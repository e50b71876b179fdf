package primitives

import (
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/decimal"
)

func TestPositiveDecimalRejectsZero(t *testing.T) {
	if _, err := NewPositiveDecimal("q", decimal.Zero()); err == nil {
		t.Fatal("expected zero to fail PositiveDecimal, got nil error")
	}
}

func TestPositiveDecimalRejectsNegative(t *testing.T) {
	d := decimal.MustNew("-1")
	if _, err := NewPositiveDecimal("q", d); err == nil {
		t.Fatal("expected negative to fail PositiveDecimal, got nil error")
	}
}

func TestPositiveDecimalAcceptsPositive(t *testing.T) {
	d := decimal.MustNew("0.0001")
	if _, err := NewPositiveDecimal("q", d); err != nil {
		t.Fatalf("expected small positive to succeed, got %v", err)
	}
}

func TestNonNegativeDecimalAcceptsZero(t *testing.T) {
	if _, err := NewNonNegativeDecimal("q", decimal.Zero()); err != nil {
		t.Fatalf("expected zero to succeed for NonNegativeDecimal, got %v", err)
	}
}

func TestNonNegativeDecimalRejectsNegative(t *testing.T) {
	d := decimal.MustNew("-0.01")
	if _, err := NewNonNegativeDecimal("q", d); err == nil {
		t.Fatal("expected negative to fail NonNegativeDecimal, got nil error")
	}
}

func TestLEILengthBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		wantErr bool
	}{
		{"19 chars fails", "1234567890123456789", true},
		{"20 chars succeeds", "529900T8BM49AURSDO55", false},
		{"21 chars fails", "529900T8BM49AURSDO551", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLEI("lei", tt.s)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q, got nil", tt.s)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error for %q, got %v", tt.s, err)
			}
		})
	}
}

func TestLEIRejectsNonAlphanumeric(t *testing.T) {
	if _, err := NewLEI("lei", "529900T8BM49AURSDO5-"); err == nil {
		t.Fatal("expected non-alphanumeric LEI to fail")
	}
}

func TestISINBadLuhnFails(t *testing.T) {
	// US0378331005 is AAPL's real ISIN (valid Luhn check digit).
	// Flipping the final digit must fail the Luhn check.
	if _, err := NewISIN("isin", "US0378331005"); err != nil {
		t.Fatalf("expected known-good ISIN to validate, got %v", err)
	}
	if _, err := NewISIN("isin", "US0378331006"); err == nil {
		t.Fatal("expected ISIN with bad Luhn check digit to fail")
	}
}

func TestISINLengthBoundary(t *testing.T) {
	if _, err := NewISIN("isin", "US037833100"); err == nil {
		t.Fatal("expected 11-character ISIN to fail length check")
	}
}

func TestUTILengthBoundaries(t *testing.T) {
	if _, err := NewUTI("uti", ""); err == nil {
		t.Fatal("expected empty UTI to fail")
	}
	long := make([]byte, 53)
	for i := range long {
		long[i] = 'A'
	}
	if _, err := NewUTI("uti", string(long)); err == nil {
		t.Fatal("expected 53-character UTI to fail")
	}
	ok := make([]byte, 52)
	for i := range ok {
		ok[i] = 'A'
	}
	if _, err := NewUTI("uti", string(ok)); err != nil {
		t.Fatalf("expected 52-character alphanumeric UTI to succeed, got %v", err)
	}
}

func TestUTIRejectsNonAlphanumericPrefix(t *testing.T) {
	if _, err := NewUTI("uti", "5299001234567890AB-D"); err == nil {
		t.Fatal("expected UTI with non-alphanumeric character in first 20 to fail")
	}
}

func TestTimestampRejectsZero(t *testing.T) {
	if _, err := NewTimestamp("ts", time.Time{}); err == nil {
		t.Fatal("expected zero timestamp to fail")
	}
}

func TestTimestampRejectsNonUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	if _, err := NewTimestamp("ts", time.Date(2026, 3, 12, 9, 0, 0, 0, loc)); err == nil {
		t.Fatal("expected non-UTC timestamp to fail")
	}
}

func TestTimestampAcceptsUTC(t *testing.T) {
	if _, err := NewTimestamp("ts", time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("expected UTC timestamp to succeed, got %v", err)
	}
}
