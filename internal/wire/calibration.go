package wire

import (
	"context"
	"encoding/json"
	"time"

	"github.com/attestor-io/core/internal/events"
	"github.com/attestor-io/core/internal/logging"
	"github.com/attestor-io/core/internal/telemetry"
	"github.com/attestor-io/core/pkg/attestation"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/oracle/creditcurve"
	"github.com/attestor-io/core/pkg/oracle/gates"
	"github.com/attestor-io/core/pkg/oracle/svi"
)

// CalibrationDecision is the routing outcome of one calibration publish
// attempt (spec §4.4.5 "Severity routing").
type CalibrationDecision string

const (
	Published               CalibrationDecision = "PUBLISHED"
	PublishedWithWarning    CalibrationDecision = "PUBLISHED_WITH_WARNING"
	PublishedWithDiagnostic CalibrationDecision = "PUBLISHED_WITH_DIAGNOSTIC"
	FallbackPublished       CalibrationDecision = "FALLBACK_PUBLISHED"
	CalibrationRejected     CalibrationDecision = "REJECTED"
)

type cachedSurface struct {
	slices []svi.Slice
	asOf   time.Time
}

type cachedCurve struct {
	curve creditcurve.Curve
	asOf  time.Time
}

// worstGateSeverity returns the most severe failing result in results,
// in Critical > High > Medium order, and ok=false if every gate passed.
func worstGateSeverity(results []gates.Result) (gates.Result, bool) {
	var worst gates.Result
	found := false
	rank := map[gates.Severity]int{gates.Critical: 3, gates.High: 2, gates.Medium: 1}
	for _, r := range results {
		if r.Pass {
			continue
		}
		if !found || rank[r.Severity] > rank[worst.Severity] {
			worst = r
			found = true
		}
	}
	return worst, found
}

func gateFailureCounts(results []gates.Result) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		if !r.Pass {
			counts[r.Gate]++
		}
	}
	return counts
}

// PublishVolSurface runs every volatility-surface gate over slices,
// routes the outcome by worst severity, and publishes through
// Dispatcher.Publish (spec §4.4.5 "Severity
// routing", §7). On a Critical failure it falls back to the last
// published surface for instrumentRef if that surface is still within
// the staleness threshold, and otherwise returns a missing-observable
// error (spec §4.4.5 "fall back to the last known-good surface... if
// its age is under a staleness threshold; otherwise... missing-
// observable error").
func (d *Dispatcher) PublishVolSurface(ctx context.Context, instrumentRef string, slices []svi.Slice, skewEnvelope float64, asOf time.Time, attestedBy string) (CalibrationDecision, []svi.Slice, *cerrors.Error) {
	start := time.Now()
	results := gates.VolSurfaceGates(slices, skewEnvelope)
	for _, r := range results {
		telemetry.RecordGateResult(r.Gate, string(r.Severity), r.Pass)
	}
	counts := gateFailureCounts(results)
	worst, failed := worstGateSeverity(results)

	logCalibration := func() {
		d.logger.LogCalibration(logging.CalibrationMetrics{
			Model:          "svi",
			InstrumentRef:  instrumentRef,
			GateSeverities: counts,
			Duration:       time.Since(start),
		})
	}

	if !failed {
		if perr := d.publishSurface(ctx, instrumentRef, slices, attestedBy, asOf, nil); perr != nil {
			return CalibrationRejected, nil, perr
		}
		telemetry.RecordCalibrationPublished("svi", time.Since(start).Seconds())
		logCalibration()
		d.rememberSurface(instrumentRef, slices, asOf)
		return Published, slices, nil
	}

	telemetry.RecordCalibrationRejected("svi", worst.Gate, string(worst.Severity))
	logCalibration()

	switch worst.Severity {
	case gates.Critical:
		d.logger.Warn().
			Str("instrument_ref", instrumentRef).
			Str("gate", worst.Gate).
			Str("witness", worst.Witness).
			Msg("critical arbitrage gate failure, rejecting calibration")
		if perr := d.publishSurface(ctx, instrumentRef, slices, attestedBy, asOf, &worst); perr != nil {
			d.logger.Error().Err(perr).Msg("failed to publish rejected-calibration attestation")
		}

		d.calibMu.Lock()
		good, ok := d.lastGoodSurfaces[instrumentRef]
		d.calibMu.Unlock()
		if ok && asOf.Sub(good.asOf) < d.staleness {
			d.logger.Warn().Str("instrument_ref", instrumentRef).Msg("falling back to last known-good surface")
			return FallbackPublished, good.slices, nil
		}
		return CalibrationRejected, nil, cerrors.MissingObservable(instrumentRef, asOf.Format(time.RFC3339))

	case gates.High:
		d.logger.Warn().Str("instrument_ref", instrumentRef).Str("gate", worst.Gate).Msg("publishing calibration with a constraint warning")
		if perr := d.publishSurface(ctx, instrumentRef, slices, attestedBy, asOf, &worst); perr != nil {
			return CalibrationRejected, nil, perr
		}
		d.rememberSurface(instrumentRef, slices, asOf)
		return PublishedWithWarning, slices, nil

	default: // Medium
		d.logger.Debug().Str("instrument_ref", instrumentRef).Str("gate", worst.Gate).Msg("publishing calibration with a diagnostic note")
		if perr := d.publishSurface(ctx, instrumentRef, slices, attestedBy, asOf, &worst); perr != nil {
			return CalibrationRejected, nil, perr
		}
		d.rememberSurface(instrumentRef, slices, asOf)
		return PublishedWithDiagnostic, slices, nil
	}
}

func (d *Dispatcher) rememberSurface(instrumentRef string, slices []svi.Slice, asOf time.Time) {
	d.calibMu.Lock()
	d.lastGoodSurfaces[instrumentRef] = cachedSurface{slices: slices, asOf: asOf}
	d.calibMu.Unlock()
}

type sviSliceJSON struct {
	ExpiryYears string `json:"expiry_years"`
	A           string `json:"a"`
	B           string `json:"b"`
	Rho         string `json:"rho"`
	M           string `json:"m"`
	Sigma       string `json:"sigma"`
}

func (d *Dispatcher) publishSurface(ctx context.Context, instrumentRef string, slices []svi.Slice, attestedBy string, asOf time.Time, failing *gates.Result) *cerrors.Error {
	payload := struct {
		InstrumentRef string         `json:"instrument_ref"`
		Slices        []sviSliceJSON `json:"slices"`
		FailingGate   string         `json:"failing_gate,omitempty"`
		Severity      string         `json:"severity,omitempty"`
		Witness       string         `json:"witness,omitempty"`
	}{InstrumentRef: instrumentRef}
	for _, s := range slices {
		payload.Slices = append(payload.Slices, sviSliceJSON{
			ExpiryYears: decimal.Text(s.ExpiryYears),
			A:           decimal.Text(s.A),
			B:           decimal.Text(s.B),
			Rho:         decimal.Text(s.Rho),
			M:           decimal.Text(s.M),
			Sigma:       decimal.Text(s.Sigma),
		})
	}
	if failing != nil {
		payload.FailingGate = failing.Gate
		payload.Severity = string(failing.Severity)
		payload.Witness = failing.Witness
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return cerrors.Calibration("svi", "failed to marshal surface payload: "+err.Error(), nil)
	}
	attestationID := instrumentRef + "@" + asOf.Format(time.RFC3339Nano)
	if failing != nil && failing.Severity == gates.Critical {
		attestationID += ".rejected"
	}
	return d.Publish(ctx, PublishRequest{
		Topic:         events.VolSurfaces,
		AttestationID: attestationID,
		Confidence:    string(attestation.Derived),
		AttestedBy:    attestedBy,
		AsOf:          asOf,
		PayloadJSON:   raw,
	})
}

// PublishCreditCurve is the credit-curve analogue of PublishVolSurface,
// routing a creditcurve.Curve bootstrap through gates.CreditCurveGates
// before publication.
func (d *Dispatcher) PublishCreditCurve(ctx context.Context, instrumentRef string, curve creditcurve.Curve, asOf time.Time, attestedBy string) (CalibrationDecision, creditcurve.Curve, *cerrors.Error) {
	start := time.Now()
	results := gates.CreditCurveGates(curve)
	for _, r := range results {
		telemetry.RecordGateResult(r.Gate, string(r.Severity), r.Pass)
	}
	counts := gateFailureCounts(results)
	worst, failed := worstGateSeverity(results)

	logCalibration := func() {
		d.logger.LogCalibration(logging.CalibrationMetrics{
			Model:          "creditcurve",
			InstrumentRef:  instrumentRef,
			GateSeverities: counts,
			Duration:       time.Since(start),
		})
	}

	if !failed {
		if perr := d.publishCurve(ctx, instrumentRef, curve, attestedBy, asOf, nil); perr != nil {
			return CalibrationRejected, creditcurve.Curve{}, perr
		}
		telemetry.RecordCalibrationPublished("creditcurve", time.Since(start).Seconds())
		logCalibration()
		d.rememberCurve(instrumentRef, curve, asOf)
		return Published, curve, nil
	}

	telemetry.RecordCalibrationRejected("creditcurve", worst.Gate, string(worst.Severity))
	logCalibration()

	switch worst.Severity {
	case gates.Critical:
		d.logger.Warn().
			Str("instrument_ref", instrumentRef).
			Str("gate", worst.Gate).
			Str("witness", worst.Witness).
			Msg("critical credit-curve gate failure, rejecting calibration")
		if perr := d.publishCurve(ctx, instrumentRef, curve, attestedBy, asOf, &worst); perr != nil {
			d.logger.Error().Err(perr).Msg("failed to publish rejected-calibration attestation")
		}

		d.calibMu.Lock()
		good, ok := d.lastGoodCurves[instrumentRef]
		d.calibMu.Unlock()
		if ok && asOf.Sub(good.asOf) < d.staleness {
			d.logger.Warn().Str("instrument_ref", instrumentRef).Msg("falling back to last known-good credit curve")
			return FallbackPublished, good.curve, nil
		}
		return CalibrationRejected, creditcurve.Curve{}, cerrors.MissingObservable(instrumentRef, asOf.Format(time.RFC3339))

	case gates.High:
		if perr := d.publishCurve(ctx, instrumentRef, curve, attestedBy, asOf, &worst); perr != nil {
			return CalibrationRejected, creditcurve.Curve{}, perr
		}
		d.rememberCurve(instrumentRef, curve, asOf)
		return PublishedWithWarning, curve, nil

	default:
		if perr := d.publishCurve(ctx, instrumentRef, curve, attestedBy, asOf, &worst); perr != nil {
			return CalibrationRejected, creditcurve.Curve{}, perr
		}
		d.rememberCurve(instrumentRef, curve, asOf)
		return PublishedWithDiagnostic, curve, nil
	}
}

func (d *Dispatcher) rememberCurve(instrumentRef string, curve creditcurve.Curve, asOf time.Time) {
	d.calibMu.Lock()
	d.lastGoodCurves[instrumentRef] = cachedCurve{curve: curve, asOf: asOf}
	d.calibMu.Unlock()
}

func (d *Dispatcher) publishCurve(ctx context.Context, instrumentRef string, curve creditcurve.Curve, attestedBy string, asOf time.Time, failing *gates.Result) *cerrors.Error {
	tenors := make([]string, len(curve.Tenors))
	for i, t := range curve.Tenors {
		tenors[i] = decimal.Text(t)
	}
	survival := make([]string, len(curve.Survival))
	for i, s := range curve.Survival {
		survival[i] = decimal.Text(s)
	}
	hazards := make([]string, len(curve.Hazards))
	for i, h := range curve.Hazards {
		hazards[i] = decimal.Text(h)
	}

	payload := struct {
		InstrumentRef string   `json:"instrument_ref"`
		DiscountRef   string   `json:"discount_ref"`
		Recovery      string   `json:"recovery"`
		Tenors        []string `json:"tenors"`
		Survival      []string `json:"survival"`
		Hazards       []string `json:"hazards"`
		FailingGate   string   `json:"failing_gate,omitempty"`
		Severity      string   `json:"severity,omitempty"`
		Witness       string   `json:"witness,omitempty"`
	}{
		InstrumentRef: instrumentRef,
		DiscountRef:   curve.DiscountRef,
		Recovery:      decimal.Text(curve.Recovery),
		Tenors:        tenors,
		Survival:      survival,
		Hazards:       hazards,
	}
	if failing != nil {
		payload.FailingGate = failing.Gate
		payload.Severity = string(failing.Severity)
		payload.Witness = failing.Witness
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return cerrors.Calibration("creditcurve", "failed to marshal curve payload: "+err.Error(), nil)
	}
	attestationID := instrumentRef + "@" + asOf.Format(time.RFC3339Nano)
	if failing != nil && failing.Severity == gates.Critical {
		attestationID += ".rejected"
	}
	return d.Publish(ctx, PublishRequest{
		Topic:         events.CreditCurves,
		AttestationID: attestationID,
		Confidence:    string(attestation.Derived),
		AttestedBy:    attestedBy,
		AsOf:          asOf,
		PayloadJSON:   raw,
	})
}
