// Package svi implements the per-slice SVI (stochastic volatility
// inspired) calibration of spec §4.4.4: a grid search over (m, sigma)
// with an analytic linear solve for (a, b, rho) at each grid point,
// followed by a bounded local refinement, with the final parameters
// checked and, if necessary, projected onto the feasible set in decimal
// precision.
package svi

import (
	"math"
	"sort"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
)

const (
	epsilon           = 1e-6
	gridMStart        = -1.5
	gridMEnd          = 1.5
	gridMStep         = 0.1
	gridSigmaStart    = 0.05
	gridSigmaEnd      = 1.0
	gridSigmaStep     = 0.05
	refinementSteps   = 200
	refinementLR      = 0.02
)

// ObservationPoint is one market total-variance observation feeding a
// slice calibration: log-moneyness, observed total variance, and a
// regression weight.
type ObservationPoint struct {
	LogMoneyness  float64
	TotalVariance float64
	Weight        float64
}

// Slice is one calibrated SVI expiry slice (spec §3 "An SVI slice"):
// five parameters satisfying the positivity invariant
// a + b*sigma*sqrt(1-rho^2) >= 0 and the Roger Lee wing bound
// b*(1+|rho|) <= 2, both enforced at construction.
type Slice struct {
	ExpiryYears *decimal.Decimal
	A           *decimal.Decimal
	B           *decimal.Decimal
	Rho         *decimal.Decimal
	M           *decimal.Decimal
	Sigma       *decimal.Decimal
}

// NewSlice validates and constructs a Slice from its five parameters.
func NewSlice(expiryYears, a, b, rho, m, sigma *decimal.Decimal) (Slice, *cerrors.Error) {
	var violations []cerrors.FieldViolation
	if decimal.Sign(b) < 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "b", Reason: "must be >= 0"})
	}
	one := decimal.FromInt64(1)
	if decimal.Cmp(rho, decimal.Neg(one)) <= 0 || decimal.Cmp(rho, one) >= 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "rho", Reason: "must be in (-1, 1)"})
	}
	if decimal.Sign(sigma) <= 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "sigma", Reason: "must be > 0"})
	}
	if len(violations) > 0 {
		return Slice{}, cerrors.Validation(violations...)
	}

	rhoF, bF, sigmaF, aF := decimal.Float64(rho), decimal.Float64(b), decimal.Float64(sigma), decimal.Float64(a)
	floorVal := aF + bF*sigmaF*math.Sqrt(1-rhoF*rhoF)
	if floorVal < -epsilon {
		violations = append(violations, cerrors.FieldViolation{
			Field: "a", Reason: "violates positivity invariant a + b*sigma*sqrt(1-rho^2) >= 0",
		})
	}
	if bF*(1+math.Abs(rhoF)) > 2+epsilon {
		violations = append(violations, cerrors.FieldViolation{
			Field: "b", Reason: "violates Roger Lee wing bound b*(1+|rho|) <= 2",
		})
	}
	if len(violations) > 0 {
		return Slice{}, cerrors.Validation(violations...)
	}

	return Slice{ExpiryYears: expiryYears, A: a, B: b, Rho: rho, M: m, Sigma: sigma}, nil
}

// Canonical writes Slice fields in fixed order.
func (s Slice) Canonical() []byte {
	return canon.NewBuilder().
		Decimal(s.ExpiryYears).
		Decimal(s.A).
		Decimal(s.B).
		Decimal(s.Rho).
		Decimal(s.M).
		Decimal(s.Sigma).
		Finish()
}

// TotalVariance evaluates w(k) = a + b*(rho*(k-m) + sqrt((k-m)^2+sigma^2))
// at log-moneyness k.
func (s Slice) TotalVariance(k *decimal.Decimal) *decimal.Decimal {
	return totalVarianceF(decimal.Float64(s.A), decimal.Float64(s.B), decimal.Float64(s.Rho),
		decimal.Float64(s.M), decimal.Float64(s.Sigma), decimal.Float64(k))
}

func totalVarianceRaw(a, b, rho, m, sigma, k float64) float64 {
	x := k - m
	return a + b*(rho*x+math.Sqrt(x*x+sigma*sigma))
}

func totalVarianceF(a, b, rho, m, sigma, k float64) *decimal.Decimal {
	d, err := decimal.FromFloat64(totalVarianceRaw(a, b, rho, m, sigma, k))
	if err != nil {
		return decimal.Zero()
	}
	return d
}

type params struct{ a, b, rho, m, sigma float64 }

// Calibrate fits a Slice to observation points at the given expiry (spec
// §4.4.4): grid search over (m, sigma), analytic linear solve for
// (a, b, rho) at each grid point, bounded local refinement of the best
// grid point, and a final decimal-precision constraint check with
// projection onto the feasible set if needed.
func Calibrate(expiryYears *decimal.Decimal, points []ObservationPoint) (Slice, map[string]string, *cerrors.Error) {
	if len(points) < 3 {
		return Slice{}, nil, cerrors.Validation(cerrors.FieldViolation{
			Field: "points", Reason: "at least three observation points are required to fit five SVI parameters",
		})
	}

	sorted := append([]ObservationPoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogMoneyness < sorted[j].LogMoneyness })

	best := params{}
	bestSSE := math.Inf(1)
	found := false

	for m := gridMStart; m <= gridMEnd+1e-9; m += gridMStep {
		for sigma := gridSigmaStart; sigma <= gridSigmaEnd+1e-9; sigma += gridSigmaStep {
			a, b, rho, ok := solveLinear(sorted, m, sigma)
			if !ok {
				continue
			}
			p := params{a: a, b: b, rho: rho, m: m, sigma: sigma}
			sse := sumSquaredError(sorted, p)
			if sse < bestSSE {
				bestSSE = sse
				best = p
				found = true
			}
		}
	}
	if !found {
		return Slice{}, nil, cerrors.Calibration("svi-grid-search", "no feasible grid point found", nil)
	}

	refined := refine(sorted, best)
	projected := projectFeasible(refined)

	aD, _ := decimal.FromFloat64(projected.a)
	bD, _ := decimal.FromFloat64(projected.b)
	rhoD, _ := decimal.FromFloat64(projected.rho)
	mD, _ := decimal.FromFloat64(projected.m)
	sigmaD, _ := decimal.FromFloat64(projected.sigma)

	slice, err := NewSlice(expiryYears, aD, bD, rhoD, mD, sigmaD)
	if err != nil {
		return Slice{}, nil, err
	}

	rmse := math.Sqrt(sumSquaredError(sorted, projected) / float64(len(sorted)))
	maxErr := 0.0
	for _, pt := range sorted {
		e := math.Abs(totalVarianceRaw(projected.a, projected.b, projected.rho, projected.m, projected.sigma, pt.LogMoneyness) - pt.TotalVariance)
		if e > maxErr {
			maxErr = e
		}
	}
	fitQuality := map[string]string{
		"rmse":     floatToText(rmse),
		"max_error": floatToText(maxErr),
	}
	return slice, fitQuality, nil
}

func floatToText(f float64) string {
	d, err := decimal.FromFloat64(f)
	if err != nil {
		return "0"
	}
	return decimal.Text(d)
}

// solveLinear fits w(k) = a + c1*x1(k) + c2*x2(k) where x1=(k-m),
// x2=sqrt((k-m)^2+sigma^2), by ordinary least squares with the given
// (m, sigma) held fixed — the analytic sub-problem of spec §4.4.4. Then
// recovers b = c2, rho = c1/c2.
func solveLinear(points []ObservationPoint, m, sigma float64) (a, b, rho float64, ok bool) {
	n := float64(len(points))
	var sw, swx1, swx2, swx1x1, swx1x2, swx2x2, swy, swx1y, swx2y float64
	for _, p := range points {
		w := p.Weight
		if w <= 0 {
			w = 1
		}
		x1 := p.LogMoneyness - m
		x2 := math.Sqrt(x1*x1 + sigma*sigma)
		y := p.TotalVariance
		sw += w
		swx1 += w * x1
		swx2 += w * x2
		swx1x1 += w * x1 * x1
		swx1x2 += w * x1 * x2
		swx2x2 += w * x2 * x2
		swy += w * y
		swx1y += w * x1 * y
		swx2y += w * x2 * y
	}
	if sw == 0 || n < 3 {
		return 0, 0, 0, false
	}

	// Solve the 3x3 normal equations [sw swx1 swx2; swx1 swx1x1 swx1x2;
	// swx2 swx1x2 swx2x2] * [a c1 c2]^T = [swy swx1y swx2y]^T via Cramer's rule.
	det := det3(
		sw, swx1, swx2,
		swx1, swx1x1, swx1x2,
		swx2, swx1x2, swx2x2,
	)
	if math.Abs(det) < 1e-12 {
		return 0, 0, 0, false
	}
	detA := det3(
		swy, swx1, swx2,
		swx1y, swx1x1, swx1x2,
		swx2y, swx1x2, swx2x2,
	)
	detC1 := det3(
		sw, swy, swx2,
		swx1, swx1y, swx1x2,
		swx2, swx2y, swx2x2,
	)
	detC2 := det3(
		sw, swx1, swy,
		swx1, swx1x1, swx1y,
		swx2, swx1x2, swx2y,
	)

	a = detA / det
	c1 := detC1 / det
	c2 := detC2 / det
	if c2 < 0 {
		return 0, 0, 0, false
	}
	b = c2
	if b < 1e-9 {
		rho = 0
	} else {
		rho = c1 / c2
	}
	if rho <= -1 || rho >= 1 {
		return 0, 0, 0, false
	}
	return a, b, rho, true
}

func det3(a11, a12, a13, a21, a22, a23, a31, a32, a33 float64) float64 {
	return a11*(a22*a33-a23*a32) - a12*(a21*a33-a23*a31) + a13*(a21*a32-a22*a31)
}

func sumSquaredError(points []ObservationPoint, p params) float64 {
	sse := 0.0
	for _, pt := range points {
		w := pt.Weight
		if w <= 0 {
			w = 1
		}
		e := totalVarianceRaw(p.a, p.b, p.rho, p.m, p.sigma, pt.LogMoneyness) - pt.TotalVariance
		sse += w * e * e
	}
	return sse
}

// refine performs a bounded local gradient descent from the best grid
// point — the L-BFGS-B stand-in of spec §4.4.4, with explicit bounds
// projected at every step (rho in (-1+eps,1-eps), b in [0, 2/(1+|rho|)],
// sigma > eps).
func refine(points []ObservationPoint, start params) params {
	p := start
	grad := func(p params) params {
		const h = 1e-5
		base := sumSquaredError(points, p)
		da := (sumSquaredError(points, params{p.a + h, p.b, p.rho, p.m, p.sigma}) - base) / h
		db := (sumSquaredError(points, params{p.a, p.b + h, p.rho, p.m, p.sigma}) - base) / h
		drho := (sumSquaredError(points, params{p.a, p.b, p.rho + h, p.m, p.sigma}) - base) / h
		dm := (sumSquaredError(points, params{p.a, p.b, p.rho, p.m + h, p.sigma}) - base) / h
		dsigma := (sumSquaredError(points, params{p.a, p.b, p.rho, p.m, p.sigma + h}) - base) / h
		return params{da, db, drho, dm, dsigma}
	}

	for i := 0; i < refinementSteps; i++ {
		g := grad(p)
		p.a -= refinementLR * g.a
		p.b -= refinementLR * g.b
		p.rho -= refinementLR * g.rho
		p.m -= refinementLR * g.m
		p.sigma -= refinementLR * g.sigma
		p = boundParams(p)
	}
	return p
}

func boundParams(p params) params {
	if p.b < 0 {
		p.b = 0
	}
	if p.rho <= -1+epsilon {
		p.rho = -1 + epsilon
	}
	if p.rho >= 1-epsilon {
		p.rho = 1 - epsilon
	}
	maxB := 2 / (1 + math.Abs(p.rho))
	if p.b > maxB {
		p.b = maxB
	}
	if p.sigma <= epsilon {
		p.sigma = epsilon
	}
	return p
}

// projectFeasible re-checks the positivity and Roger Lee invariants and,
// if violated by floating-point drift, scales b down until both hold
// (spec §4.4.4 "projecting parameters onto the feasible set if needed").
func projectFeasible(p params) params {
	p = boundParams(p)
	for i := 0; i < 50; i++ {
		floorVal := p.a + p.b*p.sigma*math.Sqrt(1-p.rho*p.rho)
		wingOK := p.b*(1+math.Abs(p.rho)) <= 2+1e-9
		if floorVal >= -1e-9 && wingOK {
			break
		}
		p.b *= 0.9
	}
	return p
}
