package ledger

import (
	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/primitives"
)

// AccountType is the closed set of account kinds named in spec §3.
type AccountType string

const (
	AccountCash        AccountType = "CASH"
	AccountSecurities  AccountType = "SECURITIES"
	AccountDerivatives AccountType = "DERIVATIVES"
	AccountCollateral  AccountType = "COLLATERAL"
	AccountMargin      AccountType = "MARGIN"
	AccountAccruals    AccountType = "ACCRUALS"
	AccountPnL         AccountType = "PNL"
	AccountNetting     AccountType = "NETTING"
)

func (t AccountType) valid() bool {
	switch t {
	case AccountCash, AccountSecurities, AccountDerivatives, AccountCollateral,
		AccountMargin, AccountAccruals, AccountPnL, AccountNetting:
		return true
	default:
		return false
	}
}

// Account is an identifier plus a type tag. The engine is the only holder
// of Account values once registered; callers pass ids, never references,
// to every other operation.
type Account struct {
	ID   primitives.NonEmptyString
	Type AccountType
}

// NewAccount validates id and type before an account can be registered.
func NewAccount(id, accountType string) (Account, *cerrors.Error) {
	nid, err := primitives.NewNonEmptyString("account.id", id)
	if err != nil {
		return Account{}, err
	}
	t := AccountType(accountType)
	if !t.valid() {
		return Account{}, cerrors.Validation(cerrors.FieldViolation{
			Field: "account.type", Reason: "must be one of CASH, SECURITIES, DERIVATIVES, COLLATERAL, MARGIN, ACCRUALS, PNL, NETTING",
		})
	}
	return Account{ID: nid, Type: t}, nil
}
