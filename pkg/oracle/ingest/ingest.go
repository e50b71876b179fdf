// Package ingest implements the two market-data ingestion paths of spec
// §4.4.1: Firm attestations from exchange fills, and Quoted attestations
// from venue quotes. Both validate their inputs and wrap a MarketDataPoint
// payload in an attestation.Attestation.
package ingest

import (
	"github.com/attestor-io/core/pkg/attestation"
	"github.com/attestor-io/core/pkg/canon"
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// Condition is the closed set of quote condition tags (spec §3 "Quoted:
// bid, ask ..., condition tag (normal/indicative/stale)").
type Condition string

const (
	ConditionNormal     Condition = "NORMAL"
	ConditionIndicative Condition = "INDICATIVE"
	ConditionStale      Condition = "STALE"
)

func (c Condition) valid() bool {
	switch c {
	case ConditionNormal, ConditionIndicative, ConditionStale:
		return true
	default:
		return false
	}
}

// MarketDataPoint is the common payload of both ingestion paths: an
// instrument, a value (price for fills, mid for quotes), and a currency.
type MarketDataPoint struct {
	Instrument primitives.NonEmptyString
	Value      primitives.PositiveDecimal
	Currency   primitives.NonEmptyString

	// Quote-only fields; zero values for Firm points.
	Bid       *decimal.Decimal
	Ask       *decimal.Decimal
	Condition Condition
}

// Canonical writes MarketDataPoint fields in fixed order.
func (p MarketDataPoint) Canonical() []byte {
	b := canon.NewBuilder().
		Str(p.Instrument.String()).
		Decimal(p.Value.Decimal()).
		Str(p.Currency.String())
	if p.Bid != nil {
		b.Decimal(p.Bid)
	} else {
		b.Str("")
	}
	if p.Ask != nil {
		b.Decimal(p.Ask)
	} else {
		b.Str("")
	}
	b.Tag(string(p.Condition))
	return b.Finish()
}

// FillEvent names the raw fields of an exchange fill.
type FillEvent struct {
	Instrument  string
	Price       *decimal.Decimal
	Currency    string
	Venue       string
	ExchangeRef string
}

// IngestFill validates a FillEvent and produces a Firm attestation over a
// MarketDataPoint (spec §4.4.1 "Firm attestations... instrument, price>0,
// currency, venue, exchange reference").
func IngestFill(ev FillEvent, asOf primitives.Timestamp) (attestation.Attestation[MarketDataPoint], *cerrors.Error) {
	var violations []cerrors.FieldViolation

	instrument, err := primitives.NewNonEmptyString("fill.instrument", ev.Instrument)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	price, err := primitives.NewPositiveDecimal("fill.price", ev.Price)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	currency, err := primitives.NewNonEmptyString("fill.currency", ev.Currency)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	venue, err := primitives.NewNonEmptyString("fill.venue", ev.Venue)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	exchangeRef, err := primitives.NewNonEmptyString("fill.exchange_ref", ev.ExchangeRef)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	if len(violations) > 0 {
		return attestation.Attestation[MarketDataPoint]{}, cerrors.Validation(violations...)
	}

	point := MarketDataPoint{Instrument: instrument, Value: price, Currency: currency, Condition: ConditionNormal}
	attestedBy, aerr := primitives.NewNonEmptyString("fill.attested_by", venue.String()+"/"+exchangeRef.String())
	if aerr != nil {
		return attestation.Attestation[MarketDataPoint]{}, aerr
	}
	return attestation.New(point, attestation.Firm, asOf, attestedBy, nil, nil)
}

// Quote names the raw fields of a venue quote.
type Quote struct {
	Instrument string
	Bid        *decimal.Decimal
	Ask        *decimal.Decimal
	Currency   string
	Venue      string
	Condition  Condition
}

// IngestQuote validates a Quote (bid <= ask) and produces a Quoted
// attestation over a MarketDataPoint, whose value is the quote midpoint
// (spec §4.4.1 "Quoted attestations: market quotes: bid, ask, venue,
// timestamp, condition").
func IngestQuote(q Quote, asOf primitives.Timestamp) (attestation.Attestation[MarketDataPoint], *cerrors.Error) {
	var violations []cerrors.FieldViolation

	instrument, err := primitives.NewNonEmptyString("quote.instrument", q.Instrument)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	currency, err := primitives.NewNonEmptyString("quote.currency", q.Currency)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	venue, err := primitives.NewNonEmptyString("quote.venue", q.Venue)
	if err != nil {
		violations = append(violations, err.Violations...)
	}
	if q.Bid == nil || !decimal.IsFinite(q.Bid) || decimal.Sign(q.Bid) <= 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "quote.bid", Reason: "must be a finite positive decimal"})
	}
	if q.Ask == nil || !decimal.IsFinite(q.Ask) || decimal.Sign(q.Ask) <= 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "quote.ask", Reason: "must be a finite positive decimal"})
	}
	if len(violations) == 0 && decimal.Cmp(q.Bid, q.Ask) > 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "quote.ask", Reason: "ask must be >= bid"})
	}
	if !q.Condition.valid() {
		violations = append(violations, cerrors.FieldViolation{Field: "quote.condition", Reason: "must be one of NORMAL, INDICATIVE, STALE"})
	}
	if len(violations) > 0 {
		return attestation.Attestation[MarketDataPoint]{}, cerrors.Validation(violations...)
	}

	mid, merr := decimal.Quo(mustAdd(q.Bid, q.Ask), decimal.FromInt64(2))
	if merr != nil {
		return attestation.Attestation[MarketDataPoint]{}, cerrors.Simple(cerrors.KindValidation, "failed to compute quote midpoint: "+merr.Error())
	}
	value, verr := primitives.NewPositiveDecimal("quote.mid", mid)
	if verr != nil {
		return attestation.Attestation[MarketDataPoint]{}, verr
	}

	point := MarketDataPoint{
		Instrument: instrument,
		Value:      value,
		Currency:   currency,
		Bid:        q.Bid,
		Ask:        q.Ask,
		Condition:  q.Condition,
	}
	return attestation.New(point, attestation.Quoted, asOf, venue, nil, nil)
}

func mustAdd(x, y *decimal.Decimal) *decimal.Decimal {
	z, err := decimal.Add(x, y)
	if err != nil {
		return decimal.Zero()
	}
	return z
}
