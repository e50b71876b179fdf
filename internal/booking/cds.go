package booking

import (
	"time"

	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/daycount"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/primitives"
)

// CDSCreditEvent names the inputs to a CDS credit-event settlement (spec
// §8 scenario 2): protection payment, accrued premium, and contract
// position close, all in one transaction.
type CDSCreditEvent struct {
	TransactionID        string
	Timestamp            primitives.Timestamp
	ProtectionSeller     string
	ProtectionBuyer      string
	Notional             *decimal.Decimal
	ContractualSpread    *decimal.Decimal
	Recovery             *decimal.Decimal
	LastPremiumDate      time.Time
	DeterminationDate    time.Time
	Currency             string
	ContractUnit         string
	AttestationRef       string
}

// BookCDSCreditEvent constructs the three-move transaction of spec §8
// scenario 2: protection leg seller->buyer of notional*(1-recovery),
// accrued premium buyer->seller of notional*spread*(ACT/360 accrual),
// and a position close of the full notional on the opaque contract unit.
func BookCDSCreditEvent(ev CDSCreditEvent) (ledger.Transaction, *cerrors.Error) {
	one := decimal.FromInt64(1)
	lgd, err := decimal.Sub(one, ev.Recovery)
	if err != nil {
		return ledger.Transaction{}, cerrors.Pricing("cds-credit-event", "overflow computing loss given default")
	}
	protectionAmount, err := decimal.Mul(ev.Notional, lgd)
	if err != nil {
		return ledger.Transaction{}, cerrors.Pricing("cds-credit-event", "overflow computing protection amount")
	}
	protectionMove, verr := ledger.NewMove(ev.ProtectionSeller, ev.ProtectionBuyer, ev.Currency, protectionAmount)
	if verr != nil {
		return ledger.Transaction{}, verr
	}

	accrualFraction, derr := daycount.YearFraction(ev.LastPremiumDate, ev.DeterminationDate, daycount.Act360)
	if derr != nil {
		return ledger.Transaction{}, cerrors.Pricing("cds-credit-event", "accrual day-count error: "+derr.Error())
	}
	premiumTimesNotional, err := decimal.Mul(ev.Notional, ev.ContractualSpread)
	if err != nil {
		return ledger.Transaction{}, cerrors.Pricing("cds-credit-event", "overflow computing premium*notional")
	}
	accruedPremium, err := decimal.Mul(premiumTimesNotional, accrualFraction)
	if err != nil {
		return ledger.Transaction{}, cerrors.Pricing("cds-credit-event", "overflow computing accrued premium")
	}
	premiumMove, verr := ledger.NewMove(ev.ProtectionBuyer, ev.ProtectionSeller, ev.Currency, accruedPremium)
	if verr != nil {
		return ledger.Transaction{}, verr
	}

	closeMove, verr := ledger.NewMove(ev.ProtectionBuyer, ev.ProtectionSeller, ev.ContractUnit, ev.Notional)
	if verr != nil {
		return ledger.Transaction{}, verr
	}

	return ledger.NewTransaction(
		ev.TransactionID,
		[]ledger.Move{protectionMove, premiumMove, closeMove},
		ev.Timestamp,
		ev.AttestationRef,
	)
}
