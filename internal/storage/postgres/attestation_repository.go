package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/attestor-io/core/pkg/attestation"
	"github.com/attestor-io/core/pkg/canon"
)

// AttestationRepository persists attestation envelopes append-only.
// Payload bytes are supplied by the caller as already-marshaled JSON
// (the generic Attestation[T] type does not itself constrain T to be
// JSON-serializable, only canon.Canonical).
type AttestationRepository struct {
	client *Client
}

// NewAttestationRepository creates an attestation repository.
func NewAttestationRepository(client *Client) *AttestationRepository {
	return &AttestationRepository{client: client}
}

type provenanceRow struct {
	SourceHash string `json:"source_hash"`
	Role       string `json:"role"`
}

// Record durably stores one Attestation envelope plus its caller-marshaled
// payload JSON. A second Record call with the same attestation id is a
// no-op, matching the deterministic-id property of deriveID.
func Record[T canon.Canonical](ctx context.Context, r *AttestationRepository, a attestation.Attestation[T], payloadJSON []byte) error {
	prov := a.Provenance()
	rows := make([]provenanceRow, len(prov))
	for i, p := range prov {
		rows[i] = provenanceRow{SourceHash: p.SourceHash, Role: p.Role}
	}
	provJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling provenance: %w", err)
	}

	var fitJSON []byte
	if fq := a.FitQuality(); fq != nil {
		fitJSON, err = json.Marshal(fq)
		if err != nil {
			return fmt.Errorf("marshaling fit quality: %w", err)
		}
	}

	_, err = r.client.db.ExecContext(ctx, `
		INSERT INTO attestations (
			attestation_id, content_hash, confidence, as_of, attested_by,
			fit_quality, provenance, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (attestation_id) DO NOTHING`,
		a.IDHex(), a.ContentHashHex(), string(a.Confidence()), a.AsOf().Time(),
		a.AttestedBy().String(), nullableJSON(fitJSON), provJSON, payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("recording attestation %s: %w", a.IDHex(), err)
	}
	return nil
}

// RecordRaw stores an attestation whose payload arrives as opaque JSON
// over the wire (internal/wire.Dispatcher.Publish), rather than as a
// typed attestation.Attestation[T] value. The content hash is derived
// from the payload bytes directly since the wire layer does not carry
// T's Canonical encoding.
func (r *AttestationRepository) RecordRaw(ctx context.Context, attestationID, confidence, attestedBy string, asOf time.Time, payloadJSON []byte) error {
	contentHash := canon.HexHash(canon.HashBytes(payloadJSON))
	_, err := r.client.db.ExecContext(ctx, `
		INSERT INTO attestations (
			attestation_id, content_hash, confidence, as_of, attested_by,
			provenance, payload
		) VALUES ($1, $2, $3, $4, $5, '[]', $6)
		ON CONFLICT (attestation_id) DO NOTHING`,
		attestationID, contentHash, confidence, asOf, attestedBy, payloadJSON,
	)
	if err != nil {
		return fmt.Errorf("recording raw attestation %s: %w", attestationID, err)
	}
	return nil
}

// Exists reports whether attestation id has already been durably
// recorded.
func (r *AttestationRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.client.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM attestations WHERE attestation_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking attestation %s: %w", id, err)
	}
	return exists, nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
