// Package projection implements the regulatory report projection of
// spec §4.5: pure functions from a canonical order to a report wrapped
// as a Derived attestation. Projection only reformats fields already
// present on the order; it computes nothing that was not already there.
package projection

import (
	"github.com/attestor-io/core/pkg/attestation"
	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/order"
	"github.com/attestor-io/core/pkg/primitives"
)

// Regime is the closed set of regulatory regimes this layer projects
// into (spec §1 "EMIR / MiFID II / Dodd-Frank").
type Regime string

const (
	EMIR      Regime = "EMIR"
	MiFIDII   Regime = "MIFID_II"
	DoddFrank Regime = "DODD_FRANK"
)

// Report is the regime-tagged projection of an order: a pure
// reformatting of order fields into the target schema, carrying the
// derived UTI (spec §4.5 "UTI derivation").
type Report struct {
	UTI             primitives.UTI
	Regime          Regime
	InstrumentID    string
	ISIN            string
	Side            string
	Quantity        string
	Price           string
	Currency        string
	OrderType       string
	CounterpartyLEI string
	ExecutingLEI    string
	TradeDate       string
	SettlementDate  string
	Venue           string
}

// Canonical writes Report fields in fixed order, so two projections of
// structurally identical orders into the same regime hash identically — the
// basis of the Master Square commutativity test (spec §4.5).
func (r Report) Canonical() []byte {
	return canon.NewBuilder().
		Str(r.UTI.String()).
		Tag(string(r.Regime)).
		Str(r.InstrumentID).
		Str(r.ISIN).
		Str(r.Side).
		Str(r.Quantity).
		Str(r.Price).
		Str(r.Currency).
		Str(r.OrderType).
		Str(r.CounterpartyLEI).
		Str(r.ExecutingLEI).
		Str(r.TradeDate).
		Str(r.SettlementDate).
		Str(r.Venue).
		Finish()
}

// DeriveUTI computes UTI = executing LEI (20 chars) ++ first 32 hex
// chars of the order content hash, a 52-character identifier (spec
// §4.5 "UTI derivation").
func DeriveUTI(o order.Order) (primitives.UTI, *cerrors.Error) {
	hash := o.ContentHash()
	hex := canon.HexHash(hash)
	raw := o.ExecutingLEI.String() + hex[:32]
	return primitives.NewUTI("uti", raw)
}

// Project produces regime's Report for o, wrapped as a Derived
// attestation whose provenance references the order's own content hash
// (spec §4.5 "Contract... wrapped as a Derived attestation"). Projection
// can only fail on structural errors that should already have been
// caught at order construction (spec §4.5 "Failure semantics").
func Project(regime Regime, o order.Order, asOf primitives.Timestamp, projectedBy primitives.NonEmptyString) (attestation.Attestation[Report], *cerrors.Error) {
	uti, err := DeriveUTI(o)
	if err != nil {
		return attestation.Attestation[Report]{}, err
	}

	isin := ""
	if o.ISIN != nil {
		isin = o.ISIN.String()
	}

	report := Report{
		UTI:             uti,
		Regime:          regime,
		InstrumentID:    o.InstrumentID.String(),
		ISIN:            isin,
		Side:            string(o.Side),
		Quantity:        decimal.Text(o.Quantity.Decimal()),
		Price:           decimal.Text(o.Price),
		Currency:        o.Currency.String(),
		OrderType:       string(o.OrderType),
		CounterpartyLEI: o.CounterpartyLEI.String(),
		ExecutingLEI:    o.ExecutingLEI.String(),
		TradeDate:       o.TradeDate.ISO8601(),
		SettlementDate:  o.SettlementDate.ISO8601(),
		Venue:           o.Venue.String(),
	}

	provenance := []attestation.Provenance{{SourceHash: canon.HexHash(o.ContentHash()), Role: "source_order"}}
	return attestation.New(report, attestation.Derived, asOf, projectedBy, provenance, nil)
}
