// Package margin implements the margin call helper of spec §8:
// `compute_margin_call(exposure, threshold, mta)` is total on
// non-negative finite decimals.
package margin

import (
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// ComputeMarginCall returns max(0, exposure-threshold) if that amount
// clears the minimum transfer amount (mta), else zero. It is total over
// every non-negative finite decimal input.
func ComputeMarginCall(exposure, threshold, mta primitives.NonNegativeDecimal) *decimal.Decimal {
	excess, err := decimal.Sub(exposure.Decimal(), threshold.Decimal())
	if err != nil || decimal.Sign(excess) <= 0 {
		return decimal.Zero()
	}
	if decimal.Cmp(excess, mta.Decimal()) < 0 {
		return decimal.Zero()
	}
	return excess
}
