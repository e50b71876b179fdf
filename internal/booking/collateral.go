package booking

import (
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/primitives"
)

// CollateralSubstitution names the inputs to a collateral swap (spec §8
// scenario 3): one posted asset returned, a replacement posted in its
// place, independently conserved per unit.
type CollateralSubstitution struct {
	TransactionID     string
	Timestamp         primitives.Timestamp
	CollateralAccount string
	TradingAccount    string
	OldUnit           string
	OldQuantity       *decimal.Decimal
	NewUnit           string
	NewQuantity       *decimal.Decimal
	AttestationRef    string
}

// BookCollateralSubstitution constructs the two-move transaction of spec
// §8 scenario 3: the old collateral returns from the collateral account
// to the trading account, and the new collateral moves from the trading
// account into the collateral account.
func BookCollateralSubstitution(cs CollateralSubstitution) (ledger.Transaction, *cerrors.Error) {
	returnMove, err := ledger.NewMove(cs.CollateralAccount, cs.TradingAccount, cs.OldUnit, cs.OldQuantity)
	if err != nil {
		return ledger.Transaction{}, err
	}
	postMove, err := ledger.NewMove(cs.TradingAccount, cs.CollateralAccount, cs.NewUnit, cs.NewQuantity)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return ledger.NewTransaction(cs.TransactionID, []ledger.Move{returnMove, postMove}, cs.Timestamp, cs.AttestationRef)
}
