// Package booking implements the instrument-specific booking helpers
// named in spec §1 ("Instrument-specific booking helpers (CDS/IRS/
// swaption/collateral) are specified as uses of the engine, not as
// independent subsystems") and exercised end-to-end in spec §8's literal
// scenarios. Every helper here only constructs ledger.Transaction values
// from instrument parameters; none of them mutate an Engine directly.
package booking

import (
	"time"

	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/primitives"
)

// SettlementDate computes T+2 settlement from a trade date, skipping
// Saturdays and Sundays (spec §8 scenario 1: "Expected settlement date
// 2025-06-23 (skipping Sat/Sun)" from trade date 2025-06-19, a Thursday).
func SettlementDate(tradeDate time.Time) time.Time {
	d := tradeDate
	remaining := 2
	for remaining > 0 {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		remaining--
	}
	return d
}

// EquitySettlement names the inputs to an equity cash-vs-securities
// settlement booking (spec §8 scenario 1).
type EquitySettlement struct {
	TransactionID      string
	Timestamp          primitives.Timestamp
	BuyerCashAccount   string
	SellerCashAccount  string
	BuyerSecAccount    string
	SellerSecAccount   string
	Currency           string
	Instrument         string
	Price              *decimal.Decimal
	Quantity           *decimal.Decimal
	AttestationRef     string
}

// BookEquitySettlement constructs the two-move transaction of spec §8
// scenario 1: cash moves buyer->seller for price*quantity, securities
// move seller->buyer for quantity.
func BookEquitySettlement(es EquitySettlement) (ledger.Transaction, *cerrors.Error) {
	notional, err := decimal.Mul(es.Price, es.Quantity)
	if err != nil {
		return ledger.Transaction{}, cerrors.Pricing("equity-settlement", "overflow computing notional")
	}

	cashMove, verr := ledger.NewMove(es.BuyerCashAccount, es.SellerCashAccount, es.Currency, notional)
	if verr != nil {
		return ledger.Transaction{}, verr
	}
	secMove, verr := ledger.NewMove(es.SellerSecAccount, es.BuyerSecAccount, es.Instrument, es.Quantity)
	if verr != nil {
		return ledger.Transaction{}, verr
	}

	return ledger.NewTransaction(es.TransactionID, []ledger.Move{cashMove, secMove}, es.Timestamp, es.AttestationRef)
}
