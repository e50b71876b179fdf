// Package ledger implements the generic, instrument-agnostic double-entry
// engine described in spec §4.3. The engine carries no knowledge of what a
// unit string means — "USD", "AAPL", a CDS identifier are all opaque — and
// is not safe for concurrent mutation by multiple goroutines sharing one
// Engine (spec §5 "Scheduling model"); callers that need parallelism run
// independent Engines and serialize publication downstream.
package ledger

import (
	"sort"

	"github.com/attestor-io/core/pkg/cerrors"
	"github.com/attestor-io/core/pkg/decimal"
)

// Outcome is the result of Execute: whether the transaction was newly
// applied or had already been applied under the same id (spec §4.3
// "Execute protocol" step 1, INV-X03 idempotency).
type Outcome string

const (
	Applied       Outcome = "APPLIED"
	AlreadyApplied Outcome = "ALREADY_APPLIED"
)

type balanceKey struct {
	account string
	unit    string
}

// Engine owns the four mutable tables described in spec §4.3: accounts,
// balances, the transaction log, and the applied-id set. The zero value
// is not usable; construct with New.
type Engine struct {
	accounts map[string]Account
	balances map[balanceKey]*decimal.Decimal
	log       []Transaction
	applied   map[string]bool
}

// New returns an empty engine.
func New() *Engine {
	return &Engine{
		accounts: make(map[string]Account),
		balances: make(map[balanceKey]*decimal.Decimal),
		applied:  make(map[string]bool),
	}
}

// RegisterAccount idempotently inserts acc. Re-registering the same id
// with the same type is a no-op; a conflicting re-registration (same id,
// different type) is an error (spec §4.3 "Register account").
func (e *Engine) RegisterAccount(acc Account) *cerrors.Error {
	existing, ok := e.accounts[acc.ID.String()]
	if !ok {
		e.accounts[acc.ID.String()] = acc
		return nil
	}
	if existing.Type != acc.Type {
		return cerrors.Validation(cerrors.FieldViolation{
			Field:  "account.type",
			Reason: "account " + acc.ID.String() + " already registered with type " + string(existing.Type),
		})
	}
	return nil
}

// HasAccount reports whether id is registered.
func (e *Engine) HasAccount(id string) bool {
	_, ok := e.accounts[id]
	return ok
}

// balance returns the current balance for (account, unit), zero if unset.
// A zero balance for an unknown pair is the semantically correct answer,
// never an error (spec §4.3 "Failure semantics").
func (e *Engine) balance(account, unit string) *decimal.Decimal {
	if b, ok := e.balances[balanceKey{account, unit}]; ok {
		cp := *b
		return &cp
	}
	return decimal.Zero()
}

// Balance returns the current balance of (account, unit).
func (e *Engine) Balance(account, unit string) *decimal.Decimal {
	return e.balance(account, unit)
}

// sigma computes the sum of balances for unit across every account
// (spec §4.3 step 3, "pre_sigma(u)" / step 6 "post_sigma(u)").
func (e *Engine) sigma(unit string) *decimal.Decimal {
	total := decimal.Zero()
	for k, v := range e.balances {
		if k.unit != unit {
			continue
		}
		var err error
		total, err = decimal.Add(total, v)
		if err != nil {
			// Process-wide context traps on overflow; a conserved ledger
			// should never reach this, but Execute's post-check will
			// still catch any resulting mismatch.
			return total
		}
	}
	return total
}

// TotalSupply returns the running sum of balances for unit across every
// account (spec §4.3 "Query operations... Total supply per unit").
func (e *Engine) TotalSupply(unit string) *decimal.Decimal {
	return e.sigma(unit)
}

// Position is one non-zero (account, unit) balance, returned by
// Positions.
type Position struct {
	Account string
	Unit    string
	Balance *decimal.Decimal
}

// Positions enumerates every non-zero balance. Order is unspecified
// unless the caller sorts the result (spec §4.3 "Position enumeration").
func (e *Engine) Positions() []Position {
	var out []Position
	for k, v := range e.balances {
		if decimal.IsZero(v) {
			continue
		}
		cp := *v
		out = append(out, Position{Account: k.account, Unit: k.unit, Balance: &cp})
	}
	return out
}

// SortedPositions returns Positions sorted by (unit, account) for callers
// that need a deterministic listing (replay comparisons, snapshots).
func (e *Engine) SortedPositions() []Position {
	out := e.Positions()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}
		return out[i].Account < out[j].Account
	})
	return out
}

// Log returns a defensive copy of the append-only transaction log.
func (e *Engine) Log() []Transaction {
	return append([]Transaction(nil), e.log...)
}

// IsApplied reports whether a transaction id has already been executed.
func (e *Engine) IsApplied(id string) bool {
	return e.applied[id]
}

// snapshot captures the pre-existing balance of every (account, unit)
// pair a transaction's moves touch, for restoration on conservation
// failure (spec §4.3 steps 4 and 6, INV-L05 atomicity).
func (e *Engine) snapshot(keys []balanceKey) map[balanceKey]*decimal.Decimal {
	snap := make(map[balanceKey]*decimal.Decimal, len(keys))
	for _, k := range keys {
		snap[k] = e.balance(k.account, k.unit)
	}
	return snap
}

func (e *Engine) restore(snap map[balanceKey]*decimal.Decimal) {
	for k, v := range snap {
		if decimal.IsZero(v) {
			delete(e.balances, k)
			continue
		}
		cp := *v
		e.balances[k] = &cp
	}
}

// Execute applies tx per spec §4.3's seven-step protocol: idempotency
// check, account existence check, pre-conservation snapshot, move
// application, post-conservation check with rollback on violation, and
// log append. It is the engine's sole mutation entry point.
func (e *Engine) Execute(tx Transaction) (Outcome, *cerrors.Error) {
	// Step 1: idempotency.
	if e.applied[tx.ID.String()] {
		return AlreadyApplied, nil
	}

	// Step 2: account existence, without mutation.
	for _, m := range tx.Moves {
		if !e.HasAccount(m.Source.String()) {
			return "", cerrors.Validation(cerrors.FieldViolation{
				Field: "move.source", Reason: "unregistered account: " + m.Source.String(),
			})
		}
		if !e.HasAccount(m.Destination.String()) {
			return "", cerrors.Validation(cerrors.FieldViolation{
				Field: "move.destination", Reason: "unregistered account: " + m.Destination.String(),
			})
		}
	}

	// Step 3: affected units and their pre-sigma.
	units := tx.AffectedUnits()
	preSigma := make(map[string]*decimal.Decimal, len(units))
	for _, u := range units {
		preSigma[u] = e.sigma(u)
	}

	// Step 4: snapshot every touched (account, unit) pair.
	var keys []balanceKey
	seenKeys := make(map[balanceKey]bool)
	for _, m := range tx.Moves {
		for _, k := range []balanceKey{
			{m.Source.String(), m.Unit.String()},
			{m.Destination.String(), m.Unit.String()},
		} {
			if !seenKeys[k] {
				seenKeys[k] = true
				keys = append(keys, k)
			}
		}
	}
	snap := e.snapshot(keys)

	// Step 5: apply moves.
	applyFailed := false
	var applyErr *cerrors.Error
	for _, m := range tx.Moves {
		qty := m.Quantity.Decimal()

		srcKey := balanceKey{m.Source.String(), m.Unit.String()}
		newSrc, err := decimal.Sub(e.balance(srcKey.account, srcKey.unit), qty)
		if err != nil {
			applyFailed = true
			applyErr = cerrors.Conservation("per-unit-conservation", m.Unit.String(), "finite", "overflow on subtract")
			break
		}
		e.balances[srcKey] = newSrc

		dstKey := balanceKey{m.Destination.String(), m.Unit.String()}
		newDst, err := decimal.Add(e.balance(dstKey.account, dstKey.unit), qty)
		if err != nil {
			applyFailed = true
			applyErr = cerrors.Conservation("per-unit-conservation", m.Unit.String(), "finite", "overflow on add")
			break
		}
		e.balances[dstKey] = newDst
	}

	if applyFailed {
		e.restore(snap)
		return "", applyErr
	}

	// Step 6: post-check conservation for every affected unit.
	for _, u := range units {
		post := e.sigma(u)
		if decimal.Cmp(preSigma[u], post) != 0 {
			e.restore(snap)
			return "", cerrors.Conservation("per-unit-conservation", u, decimal.Text(preSigma[u]), decimal.Text(post))
		}
	}

	// Step 7: append to log, mark applied.
	e.log = append(e.log, tx)
	e.applied[tx.ID.String()] = true
	return Applied, nil
}

// Clone returns a deep copy of the engine sharing no state with the
// original (spec §4.3 INV-L09 "Clone independence").
func (e *Engine) Clone() *Engine {
	c := New()
	for id, acc := range e.accounts {
		c.accounts[id] = acc
	}
	for k, v := range e.balances {
		cp := *v
		c.balances[k] = &cp
	}
	c.log = append([]Transaction(nil), e.log...)
	for id := range e.applied {
		c.applied[id] = true
	}
	return c
}

// Replay builds a fresh engine, registers the given accounts, and
// executes log in order — used to verify deterministic replay (spec
// §4.3 INV-R04): starting from empty and replaying the log must
// reproduce balances byte-exact.
func Replay(accounts []Account, log []Transaction) (*Engine, *cerrors.Error) {
	e := New()
	for _, acc := range accounts {
		if err := e.RegisterAccount(acc); err != nil {
			return nil, err
		}
	}
	for _, tx := range log {
		if _, err := e.Execute(tx); err != nil {
			return nil, err
		}
	}
	return e, nil
}
