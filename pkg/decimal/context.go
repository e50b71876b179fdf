// Package decimal provides the single, process-wide fixed-precision
// arithmetic context used by every monetary and rate computation in this
// module (spec §3 "Money and Decimal semantics", §6 "Process-wide state").
//
// Precision is 28 significant digits, rounding is half-to-even (banker's
// rounding), and the context traps on invalid operation, division by zero,
// and overflow: any operation that would silently produce a nonsensical or
// lossy result instead returns an error. Monetary amounts and balances
// never pass through binary floating point; the Float64/FromFloat64 helpers
// in this package convert at the boundary of the float64 numerical passes
// (curve root-finding, SVI calibration and gate evaluation).
//
// The underlying arithmetic is github.com/cockroachdb/apd/v3, which is the
// one library in the retrieval pack's ecosystem whose Context/Traps model
// maps directly onto the spec's precision/rounding/trapping contract — see
// DESIGN.md for why this was picked over a hand-rolled big.Rat wrapper.
package decimal

import (
	"sync"

	"github.com/cockroachdb/apd/v3"
)

// Precision is the number of significant digits carried by every Decimal
// value in this module.
const Precision = 28

// Decimal is the arbitrary-precision decimal value used throughout the
// domain. It is a type alias so that callers can pass apd.Decimal values
// interchangeably with code that has not been migrated, but every
// constructor in this package routes through the shared Context.
type Decimal = apd.Decimal

var (
	ctxOnce sync.Once
	ctx     *apd.Context
)

// Context returns the process-wide decimal arithmetic context: precision
// 28, half-to-even rounding, traps on InvalidOperation | DivisionByZero |
// Overflow. It is initialized exactly once at first use (spec §6
// "Process-wide state... initialized once at process startup").
func Context() *apd.Context {
	ctxOnce.Do(func() {
		c := apd.BaseContext.WithPrecision(Precision)
		c.Rounding = apd.RoundHalfEven
		c.Traps = apd.InvalidOperation | apd.DivisionByZero | apd.Overflow
		ctx = c
	})
	return ctx
}

// New parses s into a Decimal using the shared context, trapping on
// malformed input.
func New(s string) (*Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	var rounded Decimal
	if _, err := Context().Round(&rounded, d); err != nil {
		return nil, err
	}
	return &rounded, nil
}

// MustNew is New but panics on error; reserved for literal constants in
// tests and examples, never for parsing external input.
func MustNew(s string) *Decimal {
	d, err := New(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromInt64 constructs a Decimal from an integer without any rounding risk.
func FromInt64(v int64) *Decimal {
	return apd.New(v, 0)
}

// Zero returns the additive identity.
func Zero() *Decimal { return apd.New(0, 0) }

// Add returns x+y under the shared context.
func Add(x, y *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Add(&z, x, y); err != nil {
		return nil, err
	}
	return &z, nil
}

// Sub returns x-y under the shared context.
func Sub(x, y *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Sub(&z, x, y); err != nil {
		return nil, err
	}
	return &z, nil
}

// Mul returns x*y under the shared context.
func Mul(x, y *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Mul(&z, x, y); err != nil {
		return nil, err
	}
	return &z, nil
}

// Quo returns x/y under the shared context, trapping division by zero.
func Quo(x, y *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Quo(&z, x, y); err != nil {
		return nil, err
	}
	return &z, nil
}

// Ln returns the natural logarithm of x.
func Ln(x *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Ln(&z, x); err != nil {
		return nil, err
	}
	return &z, nil
}

// Exp returns e^x.
func Exp(x *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Exp(&z, x); err != nil {
		return nil, err
	}
	return &z, nil
}

// Pow returns x^y.
func Pow(x, y *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Pow(&z, x, y); err != nil {
		return nil, err
	}
	return &z, nil
}

// Sqrt returns the square root of x.
func Sqrt(x *Decimal) (*Decimal, error) {
	var z Decimal
	if _, err := Context().Sqrt(&z, x); err != nil {
		return nil, err
	}
	return &z, nil
}

// Abs returns |x|.
func Abs(x *Decimal) *Decimal {
	var z Decimal
	z.Abs(x)
	return &z
}

// Neg returns -x.
func Neg(x *Decimal) *Decimal {
	var z Decimal
	z.Neg(x)
	return &z
}

// Cmp compares x and y (-1, 0, 1), per apd.Decimal.Cmp.
func Cmp(x, y *Decimal) int {
	return x.Cmp(y)
}

// IsZero reports whether d is exactly zero.
func IsZero(d *Decimal) bool {
	return d.IsZero()
}

// Sign returns -1, 0, or 1.
func Sign(d *Decimal) int {
	return d.Sign()
}

// IsFinite reports whether d is neither NaN nor infinite.
func IsFinite(d *Decimal) bool {
	return d.Form == apd.Finite
}

// Float64 converts d to a float64, for the bounded, explicitly-scoped
// machine-float numerical passes the spec permits (L-BFGS-B refinement,
// Brent's method root search) — never for a value that crosses back into
// a domain path without re-entering the decimal context.
func Float64(d *Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FromFloat64 constructs a Decimal from a machine float result (e.g. an
// L-BFGS-B or Brent's method iterate) and rounds it through the shared
// context, re-entering the decimal domain.
func FromFloat64(f float64) (*Decimal, error) {
	d := new(apd.Decimal)
	if _, err := d.SetFloat64(f); err != nil {
		return nil, err
	}
	var rounded Decimal
	if _, err := Context().Round(&rounded, d); err != nil {
		return nil, err
	}
	return &rounded, nil
}

// Text renders d in canonical, round-trippable textual form used by the
// canonical byte serialization (pkg/canon) and wire envelopes (spec §6:
// "quantity serializes as canonical decimal text").
func Text(d *Decimal) string {
	return d.Text('f')
}
