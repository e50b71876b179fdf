package margin

import (
	"testing"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/primitives"
)

func mustNN(t *testing.T, s string) primitives.NonNegativeDecimal {
	t.Helper()
	d, err := decimal.New(s)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", s, err)
	}
	nn, cerr := primitives.NewNonNegativeDecimal("x", d)
	if cerr != nil {
		t.Fatalf("unexpected validation error for %q: %v", s, cerr)
	}
	return nn
}

func TestComputeMarginCallBelowThreshold(t *testing.T) {
	call := ComputeMarginCall(mustNN(t, "100"), mustNN(t, "150"), mustNN(t, "0"))
	if decimal.Sign(call) != 0 {
		t.Fatalf("expected zero call when exposure < threshold, got %s", decimal.Text(call))
	}
}

func TestComputeMarginCallBelowMTA(t *testing.T) {
	call := ComputeMarginCall(mustNN(t, "110"), mustNN(t, "100"), mustNN(t, "50"))
	if decimal.Sign(call) != 0 {
		t.Fatalf("expected zero call when excess does not clear mta, got %s", decimal.Text(call))
	}
}

func TestComputeMarginCallClearsMTA(t *testing.T) {
	call := ComputeMarginCall(mustNN(t, "200"), mustNN(t, "100"), mustNN(t, "50"))
	if decimal.Text(call) != "100" {
		t.Fatalf("expected call of 100, got %s", decimal.Text(call))
	}
}

func TestComputeMarginCallExactlyAtMTA(t *testing.T) {
	call := ComputeMarginCall(mustNN(t, "150"), mustNN(t, "100"), mustNN(t, "50"))
	if decimal.Text(call) != "50" {
		t.Fatalf("expected call of 50 when excess exactly equals mta, got %s", decimal.Text(call))
	}
}

func TestComputeMarginCallTotalOverRandomInputs(t *testing.T) {
	exposures := []string{"0", "1", "99.999", "1000000", "0.0001"}
	thresholds := []string{"0", "50", "1000000", "0.0001"}
	mtas := []string{"0", "10", "0.01"}

	for _, e := range exposures {
		for _, th := range thresholds {
			for _, m := range mtas {
				call := ComputeMarginCall(mustNN(t, e), mustNN(t, th), mustNN(t, m))
				if call == nil {
					t.Fatalf("ComputeMarginCall(%s,%s,%s) returned nil, must be total", e, th, m)
				}
				if decimal.Sign(call) < 0 {
					t.Fatalf("ComputeMarginCall(%s,%s,%s) returned negative %s", e, th, m, decimal.Text(call))
				}
			}
		}
	}
}
