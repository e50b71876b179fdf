package svi

import (
	"math"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/decimal"
)

// SSVISurface is the optional surface-wide SVI variant of spec §3 ("A
// volatility surface: either an ordered sequence of SVI slices... or an
// SSVI parameterization referencing an ATM-variance curve"): a single
// (rho, eta, gamma) triple applied across all expiries via a power-law
// phi function of ATM total variance.
type SSVISurface struct {
	Rho   *decimal.Decimal
	Eta   *decimal.Decimal
	Gamma *decimal.Decimal

	// ATMTenors/ATMVariance is the referenced ATM-variance curve: strictly
	// increasing tenors with their observed ATM total variance theta(T).
	ATMTenors   []*decimal.Decimal
	ATMVariance []*decimal.Decimal
}

// Canonical writes SSVISurface fields in fixed order.
func (s SSVISurface) Canonical() []byte {
	b := canon.NewBuilder().Decimal(s.Rho).Decimal(s.Eta).Decimal(s.Gamma)
	tenors := make([]string, len(s.ATMTenors))
	for i, t := range s.ATMTenors {
		tenors[i] = decimal.Text(t)
	}
	b.StringList(tenors)
	thetas := make([]string, len(s.ATMVariance))
	for i, t := range s.ATMVariance {
		thetas[i] = decimal.Text(t)
	}
	b.StringList(thetas)
	return b.Finish()
}

// phi is the SSVI power-law function phi(theta) = eta / (theta^gamma *
// (1+theta)^(1-gamma)), the standard Gatheral-Jacquier parameterization.
func (s SSVISurface) phi(theta float64) float64 {
	eta := decimal.Float64(s.Eta)
	gamma := decimal.Float64(s.Gamma)
	return eta / (math.Pow(theta, gamma) * math.Pow(1+theta, 1-gamma))
}

// atmVarianceAt linearly interpolates theta(T) between the referenced
// ATM-variance curve points, flat beyond the last tenor.
func (s SSVISurface) atmVarianceAt(t float64) float64 {
	n := len(s.ATMTenors)
	if n == 0 {
		return 0
	}
	tenors := make([]float64, n)
	thetas := make([]float64, n)
	for i := range s.ATMTenors {
		tenors[i] = decimal.Float64(s.ATMTenors[i])
		thetas[i] = decimal.Float64(s.ATMVariance[i])
	}
	if t <= tenors[0] {
		return thetas[0]
	}
	if t >= tenors[n-1] {
		return thetas[n-1]
	}
	for i := 1; i < n; i++ {
		if t <= tenors[i] {
			frac := (t - tenors[i-1]) / (tenors[i] - tenors[i-1])
			return thetas[i-1] + frac*(thetas[i]-thetas[i-1])
		}
	}
	return thetas[n-1]
}

// TotalVariance evaluates the SSVI total variance surface at
// (log-moneyness k, expiry T years) using the standard SSVI formula
// w(k,theta) = theta/2 * (1 + rho*phi(theta)*k + sqrt((phi(theta)*k+rho)^2 + (1-rho^2))).
func (s SSVISurface) TotalVariance(k, tYears float64) float64 {
	theta := s.atmVarianceAt(tYears)
	rho := decimal.Float64(s.Rho)
	ph := s.phi(theta)
	return theta / 2 * (1 + rho*ph*k + math.Sqrt((ph*k+rho)*(ph*k+rho)+(1-rho*rho)))
}

// ToSlice extracts an equivalent per-expiry SVI-like evaluator at a fixed
// tenor as a closure, for reuse by the gate taxonomy without duplicating
// the SSVI formula.
func (s SSVISurface) ToSlice(tYears float64) func(k float64) float64 {
	return func(k float64) float64 {
		return s.TotalVariance(k, tYears)
	}
}
