// Package order implements the canonical order representation of spec
// §3 "Canonical order": the normalized trade shape that the ledger,
// oracle ingestion, and projection layers all consume. Construction
// collects every field violation before failing, so a client submitting
// a malformed order receives a complete error set in one round trip
// rather than one violation at a time.
package order

import (
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// Side is the closed set of order sides.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) valid() bool { return s == Buy || s == Sell }

// Type is the closed set of order types.
type Type string

const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

func (t Type) valid() bool { return t == Market || t == Limit }

// AssetClass distinguishes instrument families whose price sign
// conventions differ — equities must have a strictly positive price,
// other instrument families (e.g. swaps with a negative carry leg) may
// not (spec §3 "price... may be negative for some instruments; equity
// price must be positive").
type AssetClass string

const (
	Equity      AssetClass = "EQUITY"
	Derivative  AssetClass = "DERIVATIVE"
	FixedIncome AssetClass = "FIXED_INCOME"
)

// Order is the canonical, normalized representation of a trade.
type Order struct {
	ID              primitives.NonEmptyString
	InstrumentID    primitives.NonEmptyString
	ISIN            *primitives.ISIN
	AssetClass      AssetClass
	Side            Side
	Quantity        primitives.PositiveDecimal
	Price           *decimal.Decimal
	Currency        primitives.NonEmptyString
	OrderType       Type
	CounterpartyLEI primitives.LEI
	ExecutingLEI    primitives.LEI
	TradeDate       primitives.Timestamp
	SettlementDate  primitives.Timestamp
	Venue           primitives.NonEmptyString
	Timestamp       primitives.Timestamp
}

// Fields is the raw, unvalidated input to New — every field as supplied
// by a caller, prior to refinement.
type Fields struct {
	ID              string
	InstrumentID    string
	ISIN            string // empty means no ISIN
	AssetClass      AssetClass
	Side            Side
	Quantity        *decimal.Decimal
	Price           *decimal.Decimal
	Currency        string
	OrderType       Type
	CounterpartyLEI string
	ExecutingLEI    string
	TradeDate       primitives.Timestamp
	SettlementDate  primitives.Timestamp
	Venue           string
	Timestamp       primitives.Timestamp
}

// New validates f in full, accumulating every violation rather than
// stopping at the first (spec §3 "Construction collects all field
// violations before failing").
func New(f Fields) (Order, *cerrors.Error) {
	var violations []cerrors.FieldViolation
	collect := func(err *cerrors.Error) {
		if err != nil {
			violations = append(violations, err.Violations...)
		}
	}

	id, err := primitives.NewNonEmptyString("order.id", f.ID)
	collect(err)
	instrumentID, err := primitives.NewNonEmptyString("order.instrument_id", f.InstrumentID)
	collect(err)

	var isin *primitives.ISIN
	if f.ISIN != "" {
		i, ierr := primitives.NewISIN("order.isin", f.ISIN)
		if ierr != nil {
			violations = append(violations, ierr.Violations...)
		} else {
			isin = &i
		}
	}

	if !f.Side.valid() {
		violations = append(violations, cerrors.FieldViolation{Field: "order.side", Reason: "must be BUY or SELL"})
	}
	if !f.OrderType.valid() {
		violations = append(violations, cerrors.FieldViolation{Field: "order.order_type", Reason: "must be MARKET or LIMIT"})
	}

	quantity, err := primitives.NewPositiveDecimal("order.quantity", f.Quantity)
	collect(err)

	if f.Price == nil || !decimal.IsFinite(f.Price) {
		violations = append(violations, cerrors.FieldViolation{Field: "order.price", Reason: "must be finite"})
	} else if f.AssetClass == Equity && decimal.Sign(f.Price) <= 0 {
		violations = append(violations, cerrors.FieldViolation{Field: "order.price", Reason: "equity price must be positive"})
	}

	currency, err := primitives.NewNonEmptyString("order.currency", f.Currency)
	collect(err)
	counterpartyLEI, err := primitives.NewLEI("order.counterparty_lei", f.CounterpartyLEI)
	collect(err)
	executingLEI, err := primitives.NewLEI("order.executing_lei", f.ExecutingLEI)
	collect(err)
	venue, err := primitives.NewNonEmptyString("order.venue", f.Venue)
	collect(err)

	if f.SettlementDate.Time().Before(f.TradeDate.Time()) {
		violations = append(violations, cerrors.FieldViolation{Field: "order.settlement_date", Reason: "must be >= trade date"})
	}

	if len(violations) > 0 {
		return Order{}, cerrors.Validation(violations...)
	}

	return Order{
		ID:              id,
		InstrumentID:    instrumentID,
		ISIN:            isin,
		AssetClass:      f.AssetClass,
		Side:            f.Side,
		Quantity:        quantity,
		Price:           f.Price,
		Currency:        currency,
		OrderType:       f.OrderType,
		CounterpartyLEI: counterpartyLEI,
		ExecutingLEI:    executingLEI,
		TradeDate:       f.TradeDate,
		SettlementDate:  f.SettlementDate,
		Venue:           venue,
		Timestamp:       f.Timestamp,
	}, nil
}
