package ledger

import (
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

func mustAccount(t *testing.T, id, typ string) Account {
	t.Helper()
	a, err := NewAccount(id, typ)
	if err != nil {
		t.Fatalf("NewAccount(%s,%s): %v", id, typ, err)
	}
	return a
}

func mustMove(t *testing.T, src, dst, unit, qty string) Move {
	t.Helper()
	d, derr := decimal.New(qty)
	if derr != nil {
		t.Fatalf("decimal.New(%s): %v", qty, derr)
	}
	m, err := NewMove(src, dst, unit, d)
	if err != nil {
		t.Fatalf("NewMove: %v", err)
	}
	return m
}

func mustTS(t *testing.T) primitives.Timestamp {
	t.Helper()
	ts, err := primitives.NewTimestamp("ts", time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewTimestamp: %v", err)
	}
	return ts
}

func TestRegisterAccountIdempotent(t *testing.T) {
	e := New()
	a := mustAccount(t, "acc-1", string(AccountCash))

	if err := e.RegisterAccount(a); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := e.RegisterAccount(a); err != nil {
		t.Fatalf("re-register with same type should be a no-op: %v", err)
	}

	conflict, _ := NewAccount("acc-1", string(AccountSecurities))
	if err := e.RegisterAccount(conflict); err == nil {
		t.Fatal("expected conflicting re-registration to fail")
	}
}

func TestExecuteMoveApplied(t *testing.T) {
	e := New()
	e.RegisterAccount(mustAccount(t, "alice", string(AccountCash)))
	e.RegisterAccount(mustAccount(t, "bob", string(AccountCash)))

	tx, err := NewTransaction("tx-1", []Move{mustMove(t, "alice", "bob", "USD", "100.00")}, mustTS(t), "")
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	outcome, execErr := e.Execute(tx)
	if execErr != nil {
		t.Fatalf("Execute: %v", execErr)
	}
	if outcome != Applied {
		t.Fatalf("expected Applied, got %s", outcome)
	}

	if got := decimal.Text(e.Balance("alice", "USD")); got != "-100.00" {
		t.Errorf("alice balance = %s, want -100.00", got)
	}
	if got := decimal.Text(e.Balance("bob", "USD")); got != "100.00" {
		t.Errorf("bob balance = %s, want 100.00", got)
	}
}

func TestExecuteIdempotency(t *testing.T) {
	e := New()
	e.RegisterAccount(mustAccount(t, "alice", string(AccountCash)))
	e.RegisterAccount(mustAccount(t, "bob", string(AccountCash)))

	tx, _ := NewTransaction("tx-1", []Move{mustMove(t, "alice", "bob", "USD", "50")}, mustTS(t), "")

	if _, err := e.Execute(tx); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	before := decimal.Text(e.Balance("bob", "USD"))

	outcome, err := e.Execute(tx)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if outcome != AlreadyApplied {
		t.Fatalf("expected AlreadyApplied, got %s", outcome)
	}
	if after := decimal.Text(e.Balance("bob", "USD")); after != before {
		t.Errorf("balance changed on replayed execute: %s -> %s", before, after)
	}
}

func TestExecuteUnregisteredAccountNoMutation(t *testing.T) {
	e := New()
	e.RegisterAccount(mustAccount(t, "alice", string(AccountCash)))
	// "ghost" is never registered.

	tx, _ := NewTransaction("tx-1", []Move{mustMove(t, "alice", "ghost", "USD", "10")}, mustTS(t), "")

	if _, err := e.Execute(tx); err == nil {
		t.Fatal("expected missing-account error")
	}
	if got := decimal.Text(e.Balance("alice", "USD")); got != "0" {
		t.Errorf("balance must be untouched on rejected execute, got %s", got)
	}
	if len(e.Log()) != 0 {
		t.Error("rejected transaction must not be logged")
	}
}

func TestConservationAcrossMultipleMoves(t *testing.T) {
	e := New()
	for _, id := range []string{"a", "b", "c"} {
		e.RegisterAccount(mustAccount(t, id, string(AccountCash)))
	}

	tx, _ := NewTransaction("tx-1", []Move{
		mustMove(t, "a", "b", "USD", "30"),
		mustMove(t, "b", "c", "USD", "10"),
	}, mustTS(t), "")

	if _, err := e.Execute(tx); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := decimal.Text(e.TotalSupply("USD")); got != "0" {
		t.Errorf("total supply must be conserved at 0 across a closed system, got %s", got)
	}
}

func TestCloneIndependence(t *testing.T) {
	e := New()
	e.RegisterAccount(mustAccount(t, "alice", string(AccountCash)))
	e.RegisterAccount(mustAccount(t, "bob", string(AccountCash)))
	tx, _ := NewTransaction("tx-1", []Move{mustMove(t, "alice", "bob", "USD", "25")}, mustTS(t), "")
	if _, err := e.Execute(tx); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	clone := e.Clone()
	tx2, _ := NewTransaction("tx-2", []Move{mustMove(t, "bob", "alice", "USD", "5")}, mustTS(t), "")
	if _, err := clone.Execute(tx2); err != nil {
		t.Fatalf("Execute on clone: %v", err)
	}

	if got := decimal.Text(e.Balance("bob", "USD")); got != "25" {
		t.Errorf("mutation on clone leaked into original: bob balance = %s", got)
	}
	if got := decimal.Text(clone.Balance("bob", "USD")); got != "20" {
		t.Errorf("clone bob balance = %s, want 20", got)
	}
}

func TestReplayDeterminism(t *testing.T) {
	e := New()
	accs := []Account{
		mustAccount(t, "alice", string(AccountCash)),
		mustAccount(t, "bob", string(AccountCash)),
		mustAccount(t, "carol", string(AccountCash)),
	}
	for _, a := range accs {
		e.RegisterAccount(a)
	}

	moves := [][3]string{
		{"alice", "bob", "7"},
		{"bob", "carol", "3"},
		{"carol", "alice", "1"},
	}
	for i, mv := range moves {
		tx, _ := NewTransaction(
			"tx-"+string(rune('1'+i)),
			[]Move{mustMove(t, mv[0], mv[1], "USD", mv[2])},
			mustTS(t), "",
		)
		if _, err := e.Execute(tx); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	replayed, err := Replay(accs, e.Log())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	for _, acc := range accs {
		want := decimal.Text(e.Balance(acc.ID.String(), "USD"))
		got := decimal.Text(replayed.Balance(acc.ID.String(), "USD"))
		if want != got {
			t.Errorf("balance mismatch for %s: replay=%s original=%s", acc.ID.String(), got, want)
		}
	}
}

func TestSelfTransferRejected(t *testing.T) {
	d := decimal.MustNew("10")
	if _, err := NewMove("alice", "alice", "USD", d); err == nil {
		t.Fatal("expected self-transfer to be rejected")
	}
}

func TestNonPositiveMoveRejected(t *testing.T) {
	zero := decimal.Zero()
	if _, err := NewMove("alice", "bob", "USD", zero); err == nil {
		t.Fatal("expected zero-quantity move to be rejected")
	}
}
