package booking

import (
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/primitives"
)

// IRSNetPayment names one periodic net settlement of an interest rate
// swap: whichever leg nets to a payer, that party pays the other the net
// amount in the swap's settlement currency.
type IRSNetPayment struct {
	TransactionID  string
	Timestamp      primitives.Timestamp
	Payer          string
	Receiver       string
	Currency       string
	NetAmount      *decimal.Decimal
	AttestationRef string
}

// BookIRSNetPayment constructs the single-move transaction for one IRS
// netting period.
func BookIRSNetPayment(p IRSNetPayment) (ledger.Transaction, *cerrors.Error) {
	move, err := ledger.NewMove(p.Payer, p.Receiver, p.Currency, p.NetAmount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.NewTransaction(p.TransactionID, []ledger.Move{move}, p.Timestamp, p.AttestationRef)
}

// SwaptionExercise names the two moves of a cash-settled swaption
// exercise: premium was already paid at trade inception, so exercise
// books only the intrinsic-value cash settlement and the position close
// on the opaque swaption contract unit.
type SwaptionExercise struct {
	TransactionID    string
	Timestamp        primitives.Timestamp
	Payer            string
	Receiver         string
	Currency         string
	SettlementAmount *decimal.Decimal
	ContractUnit     string
	Notional         *decimal.Decimal
	AttestationRef   string
}

// BookSwaptionExercise constructs the two-move transaction for a
// cash-settled swaption exercise: cash settlement payer->receiver, and
// position close receiver->payer on the contract unit.
func BookSwaptionExercise(se SwaptionExercise) (ledger.Transaction, *cerrors.Error) {
	cashMove, err := ledger.NewMove(se.Payer, se.Receiver, se.Currency, se.SettlementAmount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	closeMove, err := ledger.NewMove(se.Receiver, se.Payer, se.ContractUnit, se.Notional)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.NewTransaction(se.TransactionID, []ledger.Move{cashMove, closeMove}, se.Timestamp, se.AttestationRef)
}
