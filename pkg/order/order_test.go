package order

import (
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

func mustTime(t *testing.T, field string, when time.Time) primitives.Timestamp {
	t.Helper()
	ts, err := primitives.NewTimestamp(field, when)
	if err != nil {
		t.Fatalf("unexpected error building %s: %v", field, err)
	}
	return ts
}

func validFields(t *testing.T) Fields {
	t.Helper()
	trade := mustTime(t, "trade_date", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	settlement := mustTime(t, "settlement_date", time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))
	ts := mustTime(t, "timestamp", time.Date(2026, 3, 10, 9, 0, 1, 0, time.UTC))
	return Fields{
		ID:              "ORD-1",
		InstrumentID:    "AAPL",
		ISIN:            "US0378331005",
		AssetClass:      Equity,
		Side:            Buy,
		Quantity:        decimal.MustNew("100"),
		Price:           decimal.MustNew("150.25"),
		Currency:        "USD",
		OrderType:       Limit,
		CounterpartyLEI: "529900T8BM49AURSDO55",
		ExecutingLEI:    "5299001234567890ABCD",
		TradeDate:       trade,
		SettlementDate:  settlement,
		Venue:           "XNAS",
		Timestamp:       ts,
	}
}

func TestNewAcceptsFullyValidOrder(t *testing.T) {
	if _, err := New(validFields(t)); err != nil {
		t.Fatalf("expected valid order to construct, got %v", err)
	}
}

func hasViolation(err *cerrors.Error, field string) bool {
	if err == nil {
		return false
	}
	for _, v := range err.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func TestNewCollectsAllViolationsInOneRoundTrip(t *testing.T) {
	f := validFields(t)
	f.ID = ""
	f.InstrumentID = ""
	f.Side = "HOLD"
	f.OrderType = "STOP"
	f.Quantity = decimal.Zero()
	f.Currency = ""
	f.CounterpartyLEI = "too-short"
	f.ExecutingLEI = "too-short"
	f.Venue = ""

	_, err := New(f)
	if err == nil {
		t.Fatal("expected a malformed order with many bad fields to fail")
	}
	if err.Kind != cerrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err.Kind)
	}

	wantFields := []string{
		"order.id",
		"order.instrument_id",
		"order.side",
		"order.order_type",
		"order.quantity",
		"order.currency",
		"order.counterparty_lei",
		"order.executing_lei",
		"order.venue",
	}
	for _, field := range wantFields {
		if !hasViolation(err, field) {
			t.Errorf("expected a violation on %s, got %+v", field, err.Violations)
		}
	}
	if len(err.Violations) < len(wantFields) {
		t.Fatalf("expected all violations collected in one pass, got only %d: %+v", len(err.Violations), err.Violations)
	}
}

func TestNewRejectsInvalidISINButKeepsGoing(t *testing.T) {
	f := validFields(t)
	f.ISIN = "US0378331006" // bad Luhn check digit
	_, err := New(f)
	if err == nil {
		t.Fatal("expected bad-Luhn ISIN to fail")
	}
	if !hasViolation(err, "order.isin") {
		t.Fatalf("expected violation on order.isin, got %+v", err.Violations)
	}
}

func TestNewAllowsEmptyISIN(t *testing.T) {
	f := validFields(t)
	f.ISIN = ""
	if _, err := New(f); err != nil {
		t.Fatalf("expected empty isin to be allowed, got %v", err)
	}
}

func TestNewRejectsEquityWithNonPositivePrice(t *testing.T) {
	f := validFields(t)
	f.AssetClass = Equity
	f.Price = decimal.Zero()
	_, err := New(f)
	if err == nil {
		t.Fatal("expected zero-price equity order to fail")
	}
	if !hasViolation(err, "order.price") {
		t.Fatalf("expected violation on order.price, got %+v", err.Violations)
	}

	f.Price = decimal.MustNew("-10")
	_, err = New(f)
	if err == nil {
		t.Fatal("expected negative-price equity order to fail")
	}
}

func TestNewAllowsNonPositivePriceForNonEquity(t *testing.T) {
	f := validFields(t)
	f.AssetClass = Derivative
	f.ISIN = ""
	f.Price = decimal.MustNew("-5.5")
	if _, err := New(f); err != nil {
		t.Fatalf("expected negative price to be allowed for a derivative, got %v", err)
	}
}

func TestNewRejectsNilPrice(t *testing.T) {
	f := validFields(t)
	f.Price = nil
	_, err := New(f)
	if err == nil {
		t.Fatal("expected nil price to fail")
	}
	if !hasViolation(err, "order.price") {
		t.Fatalf("expected violation on order.price, got %+v", err.Violations)
	}
}

func TestNewRejectsSettlementBeforeTradeDate(t *testing.T) {
	f := validFields(t)
	f.TradeDate = mustTime(t, "trade_date", time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC))
	f.SettlementDate = mustTime(t, "settlement_date", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	_, err := New(f)
	if err == nil {
		t.Fatal("expected settlement date before trade date to fail")
	}
	if !hasViolation(err, "order.settlement_date") {
		t.Fatalf("expected violation on order.settlement_date, got %+v", err.Violations)
	}
}

func TestNewAllowsSettlementEqualToTradeDate(t *testing.T) {
	f := validFields(t)
	same := mustTime(t, "same_day", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	f.TradeDate = same
	f.SettlementDate = same
	if _, err := New(f); err != nil {
		t.Fatalf("expected settlement date equal to trade date to be allowed, got %v", err)
	}
}

func TestNewRejectsInvalidSideAndOrderType(t *testing.T) {
	f := validFields(t)
	f.Side = "SHORT"
	_, err := New(f)
	if err == nil || !hasViolation(err, "order.side") {
		t.Fatalf("expected violation on order.side, got %v", err)
	}

	f = validFields(t)
	f.OrderType = "ICEBERG"
	_, err = New(f)
	if err == nil || !hasViolation(err, "order.order_type") {
		t.Fatalf("expected violation on order.order_type, got %v", err)
	}
}
