package ledger

import (
	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// Move is a transfer of a strictly positive quantity of one unit from a
// source account to a distinct destination account (spec §3 "Move").
// Self-transfers are structurally inexpressible: NewMove rejects
// source == destination.
type Move struct {
	Source      primitives.NonEmptyString
	Destination primitives.NonEmptyString
	Unit        primitives.NonEmptyString
	Quantity    primitives.PositiveDecimal
}

// NewMove validates source != destination and quantity > 0.
func NewMove(source, destination, unit string, quantity *decimal.Decimal) (Move, *cerrors.Error) {
	var violations []cerrors.FieldViolation

	src, verr := primitives.NewNonEmptyString("move.source", source)
	if verr != nil {
		violations = append(violations, verr.Violations...)
	}
	dst, verr := primitives.NewNonEmptyString("move.destination", destination)
	if verr != nil {
		violations = append(violations, verr.Violations...)
	}
	u, verr := primitives.NewNonEmptyString("move.unit", unit)
	if verr != nil {
		violations = append(violations, verr.Violations...)
	}
	qty, verr := primitives.NewPositiveDecimal("move.quantity", quantity)
	if verr != nil {
		violations = append(violations, verr.Violations...)
	}
	if len(violations) == 0 && source == destination {
		violations = append(violations, cerrors.FieldViolation{
			Field: "move.destination", Reason: "source and destination must differ",
		})
	}
	if len(violations) > 0 {
		return Move{}, cerrors.Validation(violations...)
	}
	return Move{Source: src, Destination: dst, Unit: u, Quantity: qty}, nil
}

// Canonical writes Move fields in fixed order.
func (m Move) Canonical() []byte {
	return canon.NewBuilder().
		Str(m.Source.String()).
		Str(m.Destination.String()).
		Str(m.Unit.String()).
		Decimal(m.Quantity.Decimal()).
		Finish()
}

// Transaction is a non-empty ordered tuple of moves with a non-empty id,
// a timestamp, and an optional attestation reference (spec §3
// "Transaction").
type Transaction struct {
	ID             primitives.NonEmptyString
	Moves          []Move
	Timestamp      primitives.Timestamp
	AttestationRef string // hex content hash of the attestation that authorized this transaction, empty if none
}

// NewTransaction validates a non-empty id and a non-empty move list.
func NewTransaction(id string, moves []Move, ts primitives.Timestamp, attestationRef string) (Transaction, *cerrors.Error) {
	nid, err := primitives.NewNonEmptyString("transaction.id", id)
	if err != nil {
		return Transaction{}, err
	}
	if len(moves) == 0 {
		return Transaction{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "transaction.moves", Reason: "must contain at least one move",
		})
	}
	return Transaction{
		ID:             nid,
		Moves:          append([]Move(nil), moves...),
		Timestamp:      ts,
		AttestationRef: attestationRef,
	}, nil
}

// Canonical writes Transaction fields in fixed order; this is the basis
// of the transaction content hash (spec §3 "Transaction... content hash
// derived from canonical byte serialization").
func (t Transaction) Canonical() []byte {
	items := make([]canon.Canonical, len(t.Moves))
	for i, m := range t.Moves {
		items[i] = m
	}
	return canon.NewBuilder().
		Str(t.ID.String()).
		Timestamp(t.Timestamp).
		Str(t.AttestationRef).
		List(items).
		Finish()
}

// ContentHash returns the SHA-256 of the transaction's canonical bytes.
func (t Transaction) ContentHash() [32]byte {
	return canon.Hash(t)
}

// AffectedUnits returns the distinct set of units this transaction's
// moves touch, in first-seen order.
func (t Transaction) AffectedUnits() []string {
	seen := make(map[string]bool)
	var units []string
	for _, m := range t.Moves {
		u := m.Unit.String()
		if !seen[u] {
			seen[u] = true
			units = append(units, u)
		}
	}
	return units
}
