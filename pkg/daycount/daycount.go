// Package daycount implements day-count fractions that convert calendar
// spans into year fractions; the CDS credit-event booking in
// internal/booking uses them for the accrued premium.
package daycount

import (
	"time"

	"github.com/attestor-io/core/pkg/decimal"
)

// Convention is the closed set of day-count conventions this module
// supports.
type Convention string

const (
	// Act360 divides actual calendar days by 360, the money-market
	// convention used for most cash and CDS accrual.
	Act360 Convention = "ACT/360"
	// Act365F divides actual calendar days by a fixed 365, used where
	// the spec or instrument calls for a fixed-year fraction.
	Act365F Convention = "ACT/365F"
)

// YearFraction computes the year fraction between start and end
// (inclusive-exclusive) under the given convention.
func YearFraction(start, end time.Time, conv Convention) (*decimal.Decimal, error) {
	days := decimal.FromInt64(int64(end.Sub(start).Hours() / 24))
	switch conv {
	case Act360:
		return decimal.Quo(days, decimal.FromInt64(360))
	case Act365F:
		return decimal.Quo(days, decimal.FromInt64(365))
	default:
		return decimal.Quo(days, decimal.FromInt64(365))
	}
}
