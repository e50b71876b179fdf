package ledger

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

// conservationPropertySeed fixes the PRNG so a failing sweep reproduces
// deterministically across runs.
const conservationPropertySeed = 20260312

// randQuantity draws a positive decimal string whose magnitude and
// fractional precision both vary, from a single unit up to seven-figure
// notionals with up to five decimal places.
func randQuantity(r *rand.Rand) string {
	whole := 1 + r.Intn(1_000_000)
	fracDigits := r.Intn(6)
	if fracDigits == 0 {
		return fmt.Sprintf("%d", whole)
	}
	frac := r.Intn(pow10(fracDigits))
	return fmt.Sprintf("%d.%0*d", whole, fracDigits, frac)
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// TestConservationHoldsAcrossRandomTransactionShapes sweeps every
// combination of move count shape (unit count x account count) with
// repeated, randomly drawn quantities per shape, and checks spec §4.3's
// universal invariant: after every successfully applied transaction,
// total supply per unit across all accounts is unchanged (conservation,
// INV-L01).
func TestConservationHoldsAcrossRandomTransactionShapes(t *testing.T) {
	unitCounts := []int{1, 2, 3}
	accountCounts := []int{2, 3, 4}
	const trialsPerShape = 23 // 3*3*23 = 207 >= 200 examples overall

	r := rand.New(rand.NewSource(conservationPropertySeed))
	cases := 0
	for _, unitCount := range unitCounts {
		for _, accountCount := range accountCounts {
			for trial := 0; trial < trialsPerShape; trial++ {
				cases++
				qty := randQuantity(r)
				e := New()
				accounts := make([]string, accountCount)
				for i := 0; i < accountCount; i++ {
					id := fmt.Sprintf("acc-%d", i)
					accounts[i] = id
					a, err := NewAccount(id, string(AccountCash))
					if err != nil {
						t.Fatalf("unexpected error building account: %v", err)
					}
					if err := e.RegisterAccount(a); err != nil {
						t.Fatalf("unexpected error registering account: %v", err)
					}
				}

				var moves []Move
				for u := 0; u < unitCount; u++ {
					unit := fmt.Sprintf("UNIT-%d", u)
					for i := 0; i < accountCount; i++ {
						src := accounts[i]
						dst := accounts[(i+1)%accountCount]
						d, err := decimal.New(qty)
						if err != nil {
							t.Fatalf("unexpected error parsing quantity: %v", err)
						}
						m, merr := NewMove(src, dst, unit, d)
						if merr != nil {
							t.Fatalf("unexpected error building move: %v", merr)
						}
						moves = append(moves, m)
					}
				}

				ts, terr := primitives.NewTimestamp("ts", time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC))
				if terr != nil {
					t.Fatalf("unexpected error building timestamp: %v", terr)
				}
				tx, txerr := NewTransaction(fmt.Sprintf("tx-%d", cases), moves, ts, "")
				if txerr != nil {
					t.Fatalf("unexpected error building transaction: %v", txerr)
				}

				outcome, eerr := e.Execute(tx)
				if eerr != nil {
					t.Fatalf("units=%d accounts=%d qty=%s: unexpected error executing: %v", unitCount, accountCount, qty, eerr)
				}
				if outcome != Applied {
					t.Fatalf("units=%d accounts=%d qty=%s: expected Applied, got %s", unitCount, accountCount, qty, outcome)
				}

				for u := 0; u < unitCount; u++ {
					unit := fmt.Sprintf("UNIT-%d", u)
					total := e.TotalSupply(unit)
					if decimal.Sign(total) != 0 {
						t.Fatalf("units=%d accounts=%d qty=%s: unit %s total supply must be zero, got %s",
							unitCount, accountCount, qty, unit, decimal.Text(total))
					}
				}
			}
		}
	}
	if cases < 200 {
		t.Fatalf("expected at least 200 randomized transaction-shape examples, only ran %d cases", cases)
	}
}

// TestReplayDeterminismAcrossRandomLogs checks INV-R04: starting from an
// empty engine and replaying the same transaction log in order
// reproduces byte-exact balances, across a random spread of log lengths
// and move quantities.
func TestReplayDeterminismAcrossRandomLogs(t *testing.T) {
	r := rand.New(rand.NewSource(conservationPropertySeed + 1))
	const trials = 200

	for trial := 0; trial < trials; trial++ {
		txCount := 1 + r.Intn(20)
		e := New()
		accounts := []string{"a", "b", "c"}
		for _, id := range accounts {
			a, err := NewAccount(id, string(AccountCash))
			if err != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, err)
			}
			if err := e.RegisterAccount(a); err != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, err)
			}
		}

		ts, terr := primitives.NewTimestamp("ts", time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC))
		if terr != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, terr)
		}
		for i := 0; i < txCount; i++ {
			d, err := decimal.New(randQuantity(r))
			if err != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, err)
			}
			src := accounts[i%3]
			dst := accounts[(i+1)%3]
			m, merr := NewMove(src, dst, "USD", d)
			if merr != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, merr)
			}
			tx, txerr := NewTransaction(fmt.Sprintf("trial-%d-tx-%d", trial, i), []Move{m}, ts, "")
			if txerr != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, txerr)
			}
			if _, eerr := e.Execute(tx); eerr != nil {
				t.Fatalf("trial %d: unexpected error executing: %v", trial, eerr)
			}
		}

		replay := New()
		for _, id := range accounts {
			a, _ := NewAccount(id, string(AccountCash))
			if err := replay.RegisterAccount(a); err != nil {
				t.Fatalf("trial %d: unexpected error: %v", trial, err)
			}
		}
		for _, tx := range e.Log() {
			if _, eerr := replay.Execute(tx); eerr != nil {
				t.Fatalf("trial %d: unexpected error replaying: %v", trial, eerr)
			}
		}

		for _, id := range accounts {
			if decimal.Text(e.Balance(id, "USD")) != decimal.Text(replay.Balance(id, "USD")) {
				t.Fatalf("trial %d txCount=%d: replay diverged for account %s", trial, txCount, id)
			}
		}
	}
}
