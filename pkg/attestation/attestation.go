// Package attestation implements the attestation envelope described in
// spec §4.2: every observable or derived fact that crosses a component
// boundary is wrapped in an Attestation carrying its payload, a confidence
// variant, a content hash, a derivation provenance list, and the identity
// of the party or model that produced it. Attestations are immutable once
// constructed; there is no mutation path, only New construction from
// already-validated payloads.
package attestation

import (
	"time"

	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/primitives"
)

// Confidence is the closed set of attestation confidence variants (spec
// §4.2): Firm facts are directly observed and binding, Quoted facts are
// observed but indicative, Derived facts are computed from other
// attestations and carry a model identity and fit-quality metadata.
type Confidence string

const (
	// Firm attestations are directly observed, binding facts (a signed
	// order, a confirmed settlement).
	Firm Confidence = "FIRM"
	// Quoted attestations are observed but non-binding (a market data
	// quote, an indicative price).
	Quoted Confidence = "QUOTED"
	// Derived attestations are computed from other attestations (a
	// bootstrapped curve, a calibrated volatility slice).
	Derived Confidence = "DERIVED"
)

func (c Confidence) valid() bool {
	switch c {
	case Firm, Quoted, Derived:
		return true
	default:
		return false
	}
}

// Provenance names one upstream attestation this attestation was derived
// from: its content hash and the role it played in the derivation (e.g.
// "discount_curve", "par_spread_quote").
type Provenance struct {
	SourceHash string
	Role       string
}

// Canonical writes Provenance fields in fixed order.
func (p Provenance) Canonical() []byte {
	return canon.NewBuilder().Str(p.SourceHash).Str(p.Role).Finish()
}

// Attestation wraps a payload T with the provenance envelope every
// observable or derived fact carries across a component boundary. T must
// implement canon.Canonical so the envelope's content hash is well
// defined.
type Attestation[T canon.Canonical] struct {
	payload    T
	confidence Confidence
	asOf       primitives.Timestamp
	attestedBy primitives.NonEmptyString
	provenance []Provenance
	fitQuality map[string]string

	contentHash    [32]byte
	attestationID  [32]byte
}

// New constructs an Attestation. asOf is the instant the payload was
// observed or computed; attestedBy identifies the observing counterparty,
// venue, or computing model; provenance lists the upstream attestations
// this one was derived from (empty for Firm/Quoted leaf observations).
// fitQuality is only meaningful for Derived attestations and is otherwise
// ignored.
func New[T canon.Canonical](
	payload T,
	confidence Confidence,
	asOf primitives.Timestamp,
	attestedBy primitives.NonEmptyString,
	provenance []Provenance,
	fitQuality map[string]string,
) (Attestation[T], *cerrors.Error) {
	if !confidence.valid() {
		return Attestation[T]{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "confidence", Reason: "must be one of FIRM, QUOTED, DERIVED",
		})
	}
	if confidence == Derived && len(provenance) == 0 {
		return Attestation[T]{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "provenance", Reason: "a DERIVED attestation must name at least one upstream source",
		})
	}
	if confidence != Derived && len(provenance) > 0 {
		return Attestation[T]{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "provenance", Reason: "only DERIVED attestations may carry provenance",
		})
	}

	a := Attestation[T]{
		payload:    payload,
		confidence: confidence,
		asOf:       asOf,
		attestedBy: attestedBy,
		provenance: append([]Provenance(nil), provenance...),
		fitQuality: fitQuality,
	}
	a.contentHash = canon.Hash(payload)
	a.attestationID = a.deriveID()
	return a, nil
}

// deriveID computes the attestation id per spec §4.2: the SHA-256 of the
// payload content hash, confidence tag, attesting party, as-of timestamp,
// and ordered provenance list — so two attestations of the identical fact
// by the same party at the same confidence, as-of time and provenance
// collide on id, while any difference in who/how/when changes it.
func (a Attestation[T]) deriveID() [32]byte {
	b := canon.NewBuilder().
		Bytes(a.contentHash[:]).
		Tag(string(a.confidence)).
		Str(a.attestedBy.String()).
		Timestamp(a.asOf)
	items := make([]canon.Canonical, len(a.provenance))
	for i, p := range a.provenance {
		items[i] = p
	}
	b.List(items)
	return canon.HashBytes(b.Finish())
}

// Payload returns the wrapped value.
func (a Attestation[T]) Payload() T { return a.payload }

// Confidence returns the attestation's confidence variant.
func (a Attestation[T]) Confidence() Confidence { return a.confidence }

// AsOf returns the instant the fact was observed or computed.
func (a Attestation[T]) AsOf() primitives.Timestamp { return a.asOf }

// AttestedBy returns the identity of the observing or computing party.
func (a Attestation[T]) AttestedBy() primitives.NonEmptyString { return a.attestedBy }

// Provenance returns the upstream attestations this one was derived from.
func (a Attestation[T]) Provenance() []Provenance {
	return append([]Provenance(nil), a.provenance...)
}

// FitQuality returns the calibration fit-quality metadata, non-nil only
// for Derived attestations that were constructed with it.
func (a Attestation[T]) FitQuality() map[string]string {
	return a.fitQuality
}

// ContentHash returns the SHA-256 content hash of the payload alone
// (spec §4.1), independent of who attested it or when.
func (a Attestation[T]) ContentHash() [32]byte { return a.contentHash }

// ContentHashHex renders ContentHash as lowercase hex.
func (a Attestation[T]) ContentHashHex() string { return canon.HexHash(a.contentHash) }

// ID returns the attestation id (spec §4.2): derived from the content
// hash plus confidence, attester, as-of time, and provenance.
func (a Attestation[T]) ID() [32]byte { return a.attestationID }

// IDHex renders ID as lowercase hex.
func (a Attestation[T]) IDHex() string { return canon.HexHash(a.attestationID) }

// IsStaleAt reports whether asOf predates the given instant by more than
// maxAge — used by consumers that refuse to act on stale Quoted/Derived
// market data (spec §4.4 oracle freshness gate).
func (a Attestation[T]) IsStaleAt(now time.Time, maxAge time.Duration) bool {
	return now.Sub(a.asOf.Time()) > maxAge
}
