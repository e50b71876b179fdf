package booking

import (
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/primitives"
)

func mustTimestamp(t *testing.T, tm time.Time) primitives.Timestamp {
	t.Helper()
	ts, err := primitives.NewTimestamp("ts", tm)
	if err != nil {
		t.Fatalf("NewTimestamp: %v", err)
	}
	return ts
}

func TestSettlementDateSkipsWeekend(t *testing.T) {
	trade := time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC) // Thursday
	got := SettlementDate(trade)
	want := time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC) // Monday
	if !got.Equal(want) {
		t.Errorf("SettlementDate(%s) = %s, want %s", trade, got, want)
	}
}

func TestEquitySettlementScenario(t *testing.T) {
	e := ledger.New()
	for _, id := range []string{"buyer-cash", "seller-cash"} {
		acc, _ := ledger.NewAccount(id, string(ledger.AccountCash))
		e.RegisterAccount(acc)
	}
	for _, id := range []string{"buyer-sec", "seller-sec"} {
		acc, _ := ledger.NewAccount(id, string(ledger.AccountSecurities))
		e.RegisterAccount(acc)
	}

	price := decimal.MustNew("175.50")
	qty := decimal.MustNew("100")
	tx, err := BookEquitySettlement(EquitySettlement{
		TransactionID:     "ORD-001",
		Timestamp:         mustTimestamp(t, time.Date(2025, 6, 19, 14, 30, 0, 0, time.UTC)),
		BuyerCashAccount:  "buyer-cash",
		SellerCashAccount: "seller-cash",
		BuyerSecAccount:   "buyer-sec",
		SellerSecAccount:  "seller-sec",
		Currency:          "USD",
		Instrument:        "AAPL",
		Price:             price,
		Quantity:          qty,
	})
	if err != nil {
		t.Fatalf("BookEquitySettlement: %v", err)
	}

	outcome, execErr := e.Execute(tx)
	if execErr != nil {
		t.Fatalf("Execute: %v", execErr)
	}
	if outcome != ledger.Applied {
		t.Fatalf("expected Applied, got %s", outcome)
	}

	if got := decimal.Text(e.Balance("buyer-cash", "USD")); got != "-17550.00" {
		t.Errorf("buyer-cash USD = %s, want -17550.00", got)
	}
	if got := decimal.Text(e.Balance("seller-cash", "USD")); got != "17550.00" {
		t.Errorf("seller-cash USD = %s, want 17550.00", got)
	}
	if total := e.TotalSupply("USD"); decimal.Sign(total) != 0 {
		t.Errorf("sigma(USD) = %s, want 0", decimal.Text(total))
	}
	if got := decimal.Text(e.TotalSupply("AAPL")); got != "0" {
		t.Errorf("sigma(AAPL) = %s, want 0", got)
	}
}

func TestCDSCreditEventScenario(t *testing.T) {
	e := ledger.New()
	for _, id := range []string{"protection-buyer", "protection-seller"} {
		acc, _ := ledger.NewAccount(id, string(ledger.AccountDerivatives))
		e.RegisterAccount(acc)
	}

	tx, err := BookCDSCreditEvent(CDSCreditEvent{
		TransactionID:     "CDS-EVT-001",
		Timestamp:         mustTimestamp(t, time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)),
		ProtectionSeller:  "protection-seller",
		ProtectionBuyer:   "protection-buyer",
		Notional:          decimal.MustNew("10000000"),
		ContractualSpread: decimal.MustNew("0.0100"),
		Recovery:          decimal.MustNew("0.40"),
		LastPremiumDate:   time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		DeterminationDate: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC),
		Currency:          "USD",
		ContractUnit:      "CDS-ACME-SNRFOR-USD-2031-03-20",
	})
	if err != nil {
		t.Fatalf("BookCDSCreditEvent: %v", err)
	}

	if outcome, execErr := e.Execute(tx); execErr != nil || outcome != ledger.Applied {
		t.Fatalf("Execute: outcome=%v err=%v", outcome, execErr)
	}

	if total := e.TotalSupply("USD"); decimal.Sign(total) != 0 {
		t.Errorf("sigma(USD) = %s, want 0", decimal.Text(total))
	}
	if got := decimal.Text(e.TotalSupply("CDS-ACME-SNRFOR-USD-2031-03-20")); got != "0" {
		t.Errorf("sigma(contract_unit) = %s, want 0", got)
	}
}

func TestCollateralSubstitutionScenario(t *testing.T) {
	e := ledger.New()
	for _, id := range []string{"collateral-acct", "trading-acct"} {
		acc, _ := ledger.NewAccount(id, string(ledger.AccountCollateral))
		e.RegisterAccount(acc)
	}

	tx, err := BookCollateralSubstitution(CollateralSubstitution{
		TransactionID:     "COLL-SUB-001",
		Timestamp:         mustTimestamp(t, time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC)),
		CollateralAccount: "collateral-acct",
		TradingAccount:    "trading-acct",
		OldUnit:           "bond_X",
		OldQuantity:       decimal.MustNew("1000000"),
		NewUnit:           "USD",
		NewQuantity:       decimal.MustNew("1050000"),
	})
	if err != nil {
		t.Fatalf("BookCollateralSubstitution: %v", err)
	}

	if outcome, execErr := e.Execute(tx); execErr != nil || outcome != ledger.Applied {
		t.Fatalf("Execute: outcome=%v err=%v", outcome, execErr)
	}

	if got := decimal.Text(e.TotalSupply("bond_X")); got != "0" {
		t.Errorf("sigma(bond_X) = %s, want 0", got)
	}
	if got := decimal.Text(e.TotalSupply("USD")); got != "0" {
		t.Errorf("sigma(USD) = %s, want 0", got)
	}
}
