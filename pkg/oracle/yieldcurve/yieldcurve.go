// Package yieldcurve implements the yield curve bootstrap of spec §4.4.2:
// a deterministic, pure function from attested rate instruments to a
// curve of discount factors with log-linear interpolation and
// flat-forward extrapolation.
package yieldcurve

import (
	"sort"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
)

// RateInstrument is one attested input to the bootstrap: a tenor in years
// and a simple annualized rate.
type RateInstrument struct {
	TenorYears *decimal.Decimal
	Rate       *decimal.Decimal
}

// Curve is a bootstrapped yield curve: monotonically increasing tenors
// with strictly positive discount factors (spec §3 "A yield curve").
type Curve struct {
	Tenors          []*decimal.Decimal
	DiscountFactors []*decimal.Decimal
}

// Canonical writes tenors and discount factors in order.
func (c Curve) Canonical() []byte {
	b := canon.NewBuilder()
	tenors := make([]string, len(c.Tenors))
	for i, t := range c.Tenors {
		tenors[i] = decimal.Text(t)
	}
	b.StringList(tenors)
	dfs := make([]string, len(c.DiscountFactors))
	for i, d := range c.DiscountFactors {
		dfs[i] = decimal.Text(d)
	}
	b.StringList(dfs)
	return b.Finish()
}

// Bootstrap constructs a Curve from a set of rate instruments. Discount
// factor at t=0 is 1 by definition; for simple annualized rates the
// discount factor at tenor t is 1/(1+r*t), which is strictly decreasing
// and positive whenever r >= 0 (spec §4.4.2 contract).
func Bootstrap(instruments []RateInstrument) (Curve, *cerrors.Error) {
	if len(instruments) == 0 {
		return Curve{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "instruments", Reason: "must provide at least one rate instrument",
		})
	}

	sorted := append([]RateInstrument(nil), instruments...)
	sort.Slice(sorted, func(i, j int) bool {
		return decimal.Cmp(sorted[i].TenorYears, sorted[j].TenorYears) < 0
	})

	tenors := make([]*decimal.Decimal, 0, len(sorted)+1)
	dfs := make([]*decimal.Decimal, 0, len(sorted)+1)
	tenors = append(tenors, decimal.Zero())
	dfs = append(dfs, decimal.FromInt64(1))

	var prevTenor *decimal.Decimal
	for i, inst := range sorted {
		if decimal.Sign(inst.TenorYears) <= 0 {
			return Curve{}, cerrors.Validation(cerrors.FieldViolation{
				Field: "instruments.tenor_years", Reason: "tenor must be strictly positive",
			})
		}
		if prevTenor != nil && decimal.Cmp(inst.TenorYears, prevTenor) <= 0 {
			return Curve{}, cerrors.Validation(cerrors.FieldViolation{
				Field: "instruments.tenor_years", Reason: "tenors must be strictly increasing",
			})
		}
		prevTenor = inst.TenorYears

		denom, err := decimal.Add(decimal.FromInt64(1), mustMul(inst.Rate, inst.TenorYears))
		if err != nil {
			return Curve{}, cerrors.Pricing("yield-curve-bootstrap", "overflow computing discount factor at index "+itoa(i))
		}
		if decimal.Sign(denom) <= 0 {
			return Curve{}, cerrors.Pricing("yield-curve-bootstrap", "non-positive discount denominator at tenor "+decimal.Text(inst.TenorYears))
		}
		df, err := decimal.Quo(decimal.FromInt64(1), denom)
		if err != nil {
			return Curve{}, cerrors.Pricing("yield-curve-bootstrap", "division error computing discount factor")
		}
		tenors = append(tenors, inst.TenorYears)
		dfs = append(dfs, df)
	}

	return Curve{Tenors: tenors, DiscountFactors: dfs}, nil
}

// Discount returns the discount factor at tenor t, log-linearly
// interpolating between bracketing curve points and flat-forward
// extrapolating beyond the last tenor (spec §4.4.2).
func (c Curve) Discount(t *decimal.Decimal) (*decimal.Decimal, *cerrors.Error) {
	n := len(c.Tenors)
	if n == 0 {
		return nil, cerrors.MissingObservable("yield-curve", "")
	}
	if decimal.Sign(t) <= 0 {
		return decimal.FromInt64(1), nil
	}

	last := c.Tenors[n-1]
	if decimal.Cmp(t, last) >= 0 {
		// Flat-forward extrapolation: hold the last segment's forward rate
		// (slope of ln DF) constant.
		lastDF := c.DiscountFactors[n-1]
		if n < 2 {
			return lastDF, nil
		}
		prevTenor := c.Tenors[n-2]
		prevDF := c.DiscountFactors[n-2]
		fwdRate, err := forwardLogRate(prevTenor, prevDF, last, lastDF)
		if err != nil {
			return nil, cerrors.Pricing("yield-curve-extrapolation", err.Error())
		}
		extraYears, _ := decimal.Sub(t, last)
		lnLast, _ := decimal.Ln(lastDF)
		delta, _ := decimal.Mul(fwdRate, extraYears)
		lnDF, _ := decimal.Add(lnLast, decimal.Neg(delta))
		df, err2 := decimal.Exp(lnDF)
		if err2 != nil {
			return nil, cerrors.Pricing("yield-curve-extrapolation", err2.Error())
		}
		return df, nil
	}

	for i := 1; i < n; i++ {
		if decimal.Cmp(t, c.Tenors[i]) > 0 {
			continue
		}
		t0, t1 := c.Tenors[i-1], c.Tenors[i]
		df0, df1 := c.DiscountFactors[i-1], c.DiscountFactors[i]
		if decimal.Cmp(t, t0) == 0 {
			return df0, nil
		}
		if decimal.Cmp(t, t1) == 0 {
			return df1, nil
		}
		// Log-linear interpolation: ln(DF(t)) linearly interpolated
		// between ln(DF(t0)) and ln(DF(t1)).
		lnDF0, e1 := decimal.Ln(df0)
		lnDF1, e2 := decimal.Ln(df1)
		if e1 != nil || e2 != nil {
			return nil, cerrors.Pricing("yield-curve-interpolation", "log of non-positive discount factor")
		}
		span, _ := decimal.Sub(t1, t0)
		frac, err := decimal.Quo(mustSub(t, t0), span)
		if err != nil {
			return nil, cerrors.Pricing("yield-curve-interpolation", err.Error())
		}
		diff, _ := decimal.Sub(lnDF1, lnDF0)
		interp, _ := decimal.Add(lnDF0, mustMul(diff, frac))
		df, err3 := decimal.Exp(interp)
		if err3 != nil {
			return nil, cerrors.Pricing("yield-curve-interpolation", err3.Error())
		}
		return df, nil
	}
	return nil, cerrors.Pricing("yield-curve-interpolation", "tenor not bracketed")
}

func forwardLogRate(t0 *decimal.Decimal, df0 *decimal.Decimal, t1 *decimal.Decimal, df1 *decimal.Decimal) (*decimal.Decimal, error) {
	lnDF0, err := decimal.Ln(df0)
	if err != nil {
		return nil, err
	}
	lnDF1, err := decimal.Ln(df1)
	if err != nil {
		return nil, err
	}
	span, err := decimal.Sub(t1, t0)
	if err != nil {
		return nil, err
	}
	num, err := decimal.Sub(lnDF0, lnDF1)
	if err != nil {
		return nil, err
	}
	return decimal.Quo(num, span)
}

func mustMul(x, y *decimal.Decimal) *decimal.Decimal {
	z, err := decimal.Mul(x, y)
	if err != nil {
		return decimal.Zero()
	}
	return z
}

func mustSub(x, y *decimal.Decimal) *decimal.Decimal {
	z, err := decimal.Sub(x, y)
	if err != nil {
		return decimal.Zero()
	}
	return z
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
