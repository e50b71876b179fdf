package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
)

// TransactionRepository persists ledger.Transaction values append-only.
// Execute's own idempotency table is the source of truth for whether a
// transaction applies; this repository's job is durable storage of the
// log, not re-deriving Outcome.
type TransactionRepository struct {
	client *Client
}

// NewTransactionRepository creates a transaction repository.
func NewTransactionRepository(client *Client) *TransactionRepository {
	return &TransactionRepository{client: client}
}

type moveRow struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
}

// Record durably stores tx. A second Record call for the same
// transaction id is a no-op (ON CONFLICT DO NOTHING), matching the
// engine's own idempotency discipline (spec §4.3 step 1).
func (r *TransactionRepository) Record(ctx context.Context, tx ledger.Transaction) error {
	moves := make([]moveRow, 0, len(tx.Moves))
	for _, m := range tx.Moves {
		moves = append(moves, moveRow{
			Source:      m.Source.String(),
			Destination: m.Destination.String(),
			Unit:        m.Unit.String(),
			Quantity:    decimal.Text(m.Quantity.Decimal()),
		})
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return fmt.Errorf("marshaling moves for transaction %s: %w", tx.ID.String(), err)
	}

	_, err = r.client.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, content_hash, attestation_ref, occurred_at, moves)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING`,
		tx.ID.String(), canon.HexHash(tx.ContentHash()), tx.AttestationRef, tx.Timestamp.Time(), movesJSON,
	)
	if err != nil {
		return fmt.Errorf("recording transaction %s: %w", tx.ID.String(), err)
	}
	return nil
}

// Exists reports whether transaction id has already been durably
// recorded.
func (r *TransactionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.client.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE transaction_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking transaction %s: %w", id, err)
	}
	return exists, nil
}

// Count returns the total number of durably recorded transactions,
// used by readiness checks and replay bootstrapping.
func (r *TransactionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.client.db.QueryRowContext(ctx, `SELECT count(*) FROM transactions`).Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}
