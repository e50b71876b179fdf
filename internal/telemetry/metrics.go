// Package telemetry exposes Prometheus metrics and HTTP health endpoints
// for the attestor core daemon, in the shape the teacher stack uses:
// package-level promauto collectors plus small update functions called
// from the ledger, oracle, and wire layers.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestor_transactions_executed_total",
		Help: "Total number of ledger transactions successfully executed",
	})

	transactionsAlreadyAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestor_transactions_already_applied_total",
		Help: "Total number of Execute calls that hit the idempotency fast path",
	})

	transactionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestor_transactions_rejected_total",
		Help: "Total number of ledger transactions rejected before or during Execute",
	})

	conservationViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestor_conservation_violations_total",
		Help: "Total number of conservation-violation rollbacks",
	})

	calibrationsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestor_calibrations_published_total",
		Help: "Total number of Derived calibration attestations published, by model",
	}, []string{"model"})

	calibrationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestor_calibrations_rejected_total",
		Help: "Total number of rejected calibrations, by model and gate",
	}, []string{"model", "gate"})

	gateSeverityTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestor_gate_failures_total",
		Help: "Total number of arbitrage-freedom gate failures, by gate and severity",
	}, []string{"gate", "severity"})

	executeDurationHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attestor_execute_duration_seconds",
		Help:    "Time taken by one ledger Execute call",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})

	calibrationDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attestor_calibration_duration_seconds",
		Help:    "Time taken by one oracle calibration, by model",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"model"})

	ledgerTotalSupplyGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "attestor_ledger_total_supply",
		Help: "Current total supply per unit across all registered accounts",
	}, []string{"unit"})
)

// RecordExecuteOutcome updates the transaction-outcome counters and the
// Execute duration histogram.
func RecordExecuteOutcome(outcome string, seconds float64) {
	executeDurationHistogram.Observe(seconds)
	switch outcome {
	case "APPLIED":
		transactionsExecutedTotal.Inc()
	case "ALREADY_APPLIED":
		transactionsAlreadyAppliedTotal.Inc()
	default:
		transactionsRejectedTotal.Inc()
	}
}

// RecordConservationViolation increments the conservation-violation
// counter (spec §4.3 INV-L01).
func RecordConservationViolation() {
	conservationViolationsTotal.Inc()
}

// RecordCalibrationPublished increments the published-calibration
// counter for model.
func RecordCalibrationPublished(model string, seconds float64) {
	calibrationsPublishedTotal.WithLabelValues(model).Inc()
	calibrationDurationHistogram.WithLabelValues(model).Observe(seconds)
}

// RecordCalibrationRejected increments the rejected-calibration counter
// for (model, gate) and the severity-routed gate-failure counter (spec
// §4.4.5 "Severity routing").
func RecordCalibrationRejected(model, gate, severity string) {
	calibrationsRejectedTotal.WithLabelValues(model, gate).Inc()
	gateSeverityTotal.WithLabelValues(gate, severity).Inc()
}

// RecordGateResult increments the gate-failure counter when a gate does
// not pass; passing gates are not counted (spec §4.4.5 gate taxonomy).
func RecordGateResult(gate, severity string, pass bool) {
	if !pass {
		gateSeverityTotal.WithLabelValues(gate, severity).Inc()
	}
}

// SetTotalSupply publishes the current total supply for unit (spec §4.3
// "Total supply per unit").
func SetTotalSupply(unit string, value float64) {
	ledgerTotalSupplyGauge.WithLabelValues(unit).Set(value)
}
