// Package logging provides structured logging for the attestor core,
// built on zerolog the way the rest of the retrieved stack does.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger provides structured logging for one component of the
// attestor core (ledger, oracle, projection, wire).
type ComponentLogger struct {
	logger    zerolog.Logger
	component string
	version   string
}

// NewComponentLogger creates a new component logger.
func NewComponentLogger(component, version string) *ComponentLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Str("component", component).
		Str("version", version).
		Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return &ComponentLogger{
		logger:    logger,
		component: component,
		version:   version,
	}
}

// Info returns an info level event.
func (cl *ComponentLogger) Info() *zerolog.Event { return cl.logger.Info() }

// Debug returns a debug level event.
func (cl *ComponentLogger) Debug() *zerolog.Event { return cl.logger.Debug() }

// Warn returns a warn level event.
func (cl *ComponentLogger) Warn() *zerolog.Event { return cl.logger.Warn() }

// Error returns an error level event.
func (cl *ComponentLogger) Error() *zerolog.Event { return cl.logger.Error() }

// Fatal returns a fatal level event.
func (cl *ComponentLogger) Fatal() *zerolog.Event { return cl.logger.Fatal() }

// With creates a child logger with additional context.
func (cl *ComponentLogger) With() zerolog.Context { return cl.logger.With() }

// StartupConfig holds configuration for startup logging.
type StartupConfig struct {
	ServiceType string
	GRPCAddress string
	FlightAddress string
	HealthPort  int
	PostgresDSN string
}

// LogStartup logs startup configuration.
func (cl *ComponentLogger) LogStartup(cfg StartupConfig) {
	cl.Info().
		Str("service_type", cfg.ServiceType).
		Str("grpc_address", cfg.GRPCAddress).
		Str("flight_address", cfg.FlightAddress).
		Int("health_port", cfg.HealthPort).
		Msg("starting attestor core")
}

// ExecuteMetrics holds metrics for one ledger Execute call (spec §4.3).
type ExecuteMetrics struct {
	TransactionID string
	Outcome       string
	MoveCount     int
	Duration      time.Duration
}

// LogExecute logs the outcome of one ledger Execute call.
func (cl *ComponentLogger) LogExecute(m ExecuteMetrics) {
	cl.Info().
		Str("transaction_id", m.TransactionID).
		Str("outcome", m.Outcome).
		Int("move_count", m.MoveCount).
		Dur("duration", m.Duration).
		Msg("executed transaction")
}

// CalibrationMetrics holds metrics for one oracle calibration run (spec
// §4.4).
type CalibrationMetrics struct {
	Model          string
	InstrumentRef  string
	Iterations     int
	FitRMSE        string
	GateSeverities map[string]int
	Duration       time.Duration
}

// LogCalibration logs the outcome of one oracle calibration.
func (cl *ComponentLogger) LogCalibration(m CalibrationMetrics) {
	cl.Info().
		Str("model", m.Model).
		Str("instrument_ref", m.InstrumentRef).
		Int("iterations", m.Iterations).
		Str("fit_rmse", m.FitRMSE).
		Interface("gate_severities", m.GateSeverities).
		Dur("duration", m.Duration).
		Msg("calibration completed")
}

// GetLogger returns the underlying zerolog logger.
func (cl *ComponentLogger) GetLogger() zerolog.Logger { return cl.logger }

// SetLevel sets the logging level.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		log.Warn().Str("level", level).Msg("unknown log level, defaulting to info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
