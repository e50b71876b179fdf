// Package wire implements the AttestorService control-plane surface
// named in spec §6 (Execute, Publish, StreamTopic), plus the gRPC
// server shell (health, reflection) that carries it. The RPC contract
// lives in api/proto/attestor.proto; Dispatcher exposes the same three
// operations as plain Go methods so a generated pb.AttestorServiceServer
// can forward into it once protoc-gen-go-grpc has run over that
// contract, the same way the teacher's ControlServer sits behind a
// generated pb.ControlServiceServer.
package wire

import (
	"context"
	"sync"
	"time"

	"github.com/attestor-io/core/internal/events"
	"github.com/attestor-io/core/internal/logging"
	"github.com/attestor-io/core/internal/telemetry"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/ledger"
)

// TransactionRecorder durably stores an applied transaction (the
// postgres.TransactionRepository shape), kept as an interface here so
// Dispatcher does not import the storage layer directly.
type TransactionRecorder interface {
	Record(ctx context.Context, tx ledger.Transaction) error
}

// AttestationRecorder durably stores a publish request's raw payload
// and returns nothing beyond success; Dispatcher computes the
// attestation id itself before calling it, so AttestationRecorder only
// needs to persist bytes against an id.
type AttestationRecorder interface {
	RecordRaw(ctx context.Context, attestationID, confidence, attestedBy string, asOf time.Time, payloadJSON []byte) error
}

// Dispatcher implements Execute/Publish/StreamTopic against a ledger
// Engine, a durable store, and an event broker. It also owns the
// calibration severity-routing orchestration in calibration.go, which
// is what actually calls pkg/oracle/gates from a production path and
// routes the result back through Publish (spec §4.4.5 "Severity
// routing").
type Dispatcher struct {
	engine    *ledger.Engine
	txStore   TransactionRecorder
	attStore  AttestationRecorder
	broker    *events.Broker
	logger    *logging.ComponentLogger
	staleness time.Duration

	calibMu          sync.Mutex
	lastGoodSurfaces map[string]cachedSurface
	lastGoodCurves   map[string]cachedCurve
}

// NewDispatcher wires together the engine, durable stores, broker, and
// calibration staleness threshold behind the AttestorService surface.
func NewDispatcher(engine *ledger.Engine, txStore TransactionRecorder, attStore AttestationRecorder, broker *events.Broker, logger *logging.ComponentLogger, staleness time.Duration) *Dispatcher {
	return &Dispatcher{
		engine:           engine,
		txStore:          txStore,
		attStore:         attStore,
		broker:           broker,
		logger:           logger,
		staleness:        staleness,
		lastGoodSurfaces: make(map[string]cachedSurface),
		lastGoodCurves:   make(map[string]cachedCurve),
	}
}

// Execute applies tx to the in-memory engine and, on success, records it
// durably and publishes it to events.Settlements. Engine.Execute's
// conservation check and rollback happen before any of that — a
// transaction that violates conservation never reaches storage or the
// broker.
func (d *Dispatcher) Execute(ctx context.Context, tx ledger.Transaction) (ledger.Outcome, *cerrors.Error) {
	start := time.Now()
	outcome, err := d.engine.Execute(tx)
	telemetry.RecordExecuteOutcome(string(outcome), time.Since(start).Seconds())
	if err != nil {
		if err.Kind == cerrors.KindConservationViolation {
			telemetry.RecordConservationViolation()
		}
		return "", err
	}

	if outcome == ledger.Applied {
		if storeErr := d.txStore.Record(ctx, tx); storeErr != nil {
			d.logger.Error().Err(storeErr).Str("transaction_id", tx.ID.String()).Msg("failed to durably record applied transaction")
		}
		if d.broker != nil {
			if pubErr := d.broker.Publish(ctx, events.Settlements, tx.ID.String()); pubErr != nil {
				d.logger.Error().Err(pubErr).Str("transaction_id", tx.ID.String()).Msg("failed to publish settlement event")
			}
		}
	}

	d.logger.LogExecute(logging.ExecuteMetrics{
		TransactionID: tx.ID.String(),
		Outcome:       string(outcome),
		MoveCount:     len(tx.Moves),
		Duration:      time.Since(start),
	})
	return outcome, nil
}

// PublishRequest is Dispatcher's Publish input (the decoded form of the
// proto PublishRequest message).
type PublishRequest struct {
	Topic         events.Topic
	AttestationID string
	Confidence    string
	AttestedBy    string
	AsOf          time.Time
	PayloadJSON   []byte
}

// Publish records a pre-computed attestation id and its payload, then
// announces it on Topic.
func (d *Dispatcher) Publish(ctx context.Context, req PublishRequest) *cerrors.Error {
	if !events.Valid(req.Topic) {
		return cerrors.Validation(cerrors.FieldViolation{Field: "topic", Reason: "not a known topic"})
	}
	if err := d.attStore.RecordRaw(ctx, req.AttestationID, req.Confidence, req.AttestedBy, req.AsOf, req.PayloadJSON); err != nil {
		return cerrors.Persistence("attestation_store", err.Error())
	}
	if d.broker != nil {
		if err := d.broker.Publish(ctx, req.Topic, req.AttestationID); err != nil {
			d.logger.Error().Err(err).Str("topic", string(req.Topic)).Msg("failed to publish attestation event")
		}
	}
	return nil
}

// StreamTopic subscribes to topic and returns a channel of attestation
// ids, mirroring the server-streaming proto RPC of the same name.
func (d *Dispatcher) StreamTopic(ctx context.Context, topic events.Topic) (<-chan string, error) {
	if d.broker == nil {
		ch := make(chan string)
		close(ch)
		return ch, nil
	}
	return d.broker.Subscribe(ctx, topic)
}
