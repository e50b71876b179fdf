// Package primitives implements the refined, construction-validated value
// types from spec §3/§4.1: non-empty strings, positive/non-negative
// decimals, LEI, ISIN, UTI, and UTC timestamps. Every constructor returns a
// validated value or a structured *cerrors.Error — no primitive in this
// package can exist in an invalid state once constructed.
package primitives

import (
	"strings"
	"time"
	"unicode"

	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
)

// NonEmptyString is a string guaranteed non-empty at construction.
type NonEmptyString struct{ v string }

// NewNonEmptyString validates and wraps s.
func NewNonEmptyString(field, s string) (NonEmptyString, *cerrors.Error) {
	if strings.TrimSpace(s) == "" {
		return NonEmptyString{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "must not be empty"})
	}
	return NonEmptyString{v: s}, nil
}

// String returns the underlying value.
func (n NonEmptyString) String() string { return n.v }

// PositiveDecimal is a decimal strictly greater than zero and finite.
type PositiveDecimal struct{ v *decimal.Decimal }

// NewPositiveDecimal validates d is finite and > 0.
func NewPositiveDecimal(field string, d *decimal.Decimal) (PositiveDecimal, *cerrors.Error) {
	if d == nil || !decimal.IsFinite(d) {
		return PositiveDecimal{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "must be a finite decimal"})
	}
	if decimal.Sign(d) <= 0 {
		return PositiveDecimal{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "must be strictly positive, got " + decimal.Text(d)})
	}
	return PositiveDecimal{v: d}, nil
}

// Decimal returns the underlying decimal value.
func (p PositiveDecimal) Decimal() *decimal.Decimal { return p.v }

// NonNegativeDecimal is a decimal greater than or equal to zero and finite.
type NonNegativeDecimal struct{ v *decimal.Decimal }

// NewNonNegativeDecimal validates d is finite and >= 0.
func NewNonNegativeDecimal(field string, d *decimal.Decimal) (NonNegativeDecimal, *cerrors.Error) {
	if d == nil || !decimal.IsFinite(d) {
		return NonNegativeDecimal{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "must be a finite decimal"})
	}
	if decimal.Sign(d) < 0 {
		return NonNegativeDecimal{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "must be non-negative, got " + decimal.Text(d)})
	}
	return NonNegativeDecimal{v: d}, nil
}

// Decimal returns the underlying decimal value.
func (n NonNegativeDecimal) Decimal() *decimal.Decimal { return n.v }

// LEI is a validated 20-character alphanumeric Legal Entity Identifier.
type LEI struct{ v string }

// NewLEI validates s is exactly 20 alphanumeric characters.
func NewLEI(field, s string) (LEI, *cerrors.Error) {
	if len(s) != 20 {
		return LEI{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "LEI must be exactly 20 characters"})
	}
	if !isAlphanumeric(s) {
		return LEI{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "LEI must be alphanumeric"})
	}
	return LEI{v: strings.ToUpper(s)}, nil
}

// String returns the underlying value.
func (l LEI) String() string { return l.v }

// ISIN is a validated 12-character ISIN with a verified trailing Luhn check digit.
type ISIN struct{ v string }

// NewISIN validates s is 12 characters with a correct Luhn check digit
// (spec §3/§4.1, §8 "ISIN with bad Luhn check fails").
func NewISIN(field, s string) (ISIN, *cerrors.Error) {
	if len(s) != 12 {
		return ISIN{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "ISIN must be exactly 12 characters"})
	}
	if !isAlphanumeric(s) {
		return ISIN{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "ISIN must be alphanumeric"})
	}
	if !luhnValid(s) {
		return ISIN{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "ISIN check digit failed Luhn validation"})
	}
	return ISIN{v: strings.ToUpper(s)}, nil
}

// String returns the underlying value.
func (i ISIN) String() string { return i.v }

// luhnValid implements the ISO 6166 Luhn check used by ISINs: letters
// expand to two digits each (A=10 ... Z=35), the resulting digit string is
// Luhn-validated with the rightmost digit (the ISIN's own check digit)
// included in the check.
func luhnValid(isin string) bool {
	var digits []int
	for _, r := range strings.ToUpper(isin) {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}
	sum := 0
	// Luhn from the rightmost digit: double every second digit counting from the right.
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// UTI is a validated Unique Trade Identifier: 1-52 characters, first 20
// alphanumeric.
type UTI struct{ v string }

// NewUTI validates s per spec §3: "1-52 characters, first 20 alphanumeric".
func NewUTI(field, s string) (UTI, *cerrors.Error) {
	if len(s) < 1 || len(s) > 52 {
		return UTI{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "UTI must be 1-52 characters"})
	}
	prefixLen := 20
	if len(s) < prefixLen {
		prefixLen = len(s)
	}
	if !isAlphanumeric(s[:prefixLen]) {
		return UTI{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "first 20 characters of UTI must be alphanumeric"})
	}
	return UTI{v: s}, nil
}

// String returns the underlying value.
func (u UTI) String() string { return u.v }

// Timestamp is a UTC instant; naive (zone-less/local) times are rejected.
type Timestamp struct{ t time.Time }

// NewTimestamp validates t carries UTC location information.
func NewTimestamp(field string, t time.Time) (Timestamp, *cerrors.Error) {
	if t.IsZero() {
		return Timestamp{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "timestamp must not be zero"})
	}
	if t.Location() != time.UTC {
		return Timestamp{}, cerrors.Validation(cerrors.FieldViolation{Field: field, Reason: "timestamp must be UTC"})
	}
	return Timestamp{t: t.Round(0)}, nil
}

// Time returns the underlying time.Time, always in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// ISO8601 renders ts in strict ISO-8601 UTC form for canonical bytes.
func (ts Timestamp) ISO8601() string {
	return ts.t.Format("2006-01-02T15:04:05.000000000Z")
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
