package projection

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/attestor-io/core/internal/booking"
	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
	"github.com/attestor-io/core/pkg/order"
	"github.com/attestor-io/core/pkg/primitives"
)

// propertySeed fixes the PRNG so a failing property test reproduces
// deterministically across runs.
const propertySeed = 20260310

var leiAlphabet = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

func randLEI(r *rand.Rand) string {
	b := make([]byte, 20)
	for i := range b {
		b[i] = leiAlphabet[r.Intn(len(leiAlphabet))]
	}
	return string(b)
}

func mustTS(t *testing.T, field string, when time.Time) primitives.Timestamp {
	t.Helper()
	ts, err := primitives.NewTimestamp(field, when)
	if err != nil {
		t.Fatalf("unexpected error building %s: %v", field, err)
	}
	return ts
}

func sampleOrder(t *testing.T) order.Order {
	t.Helper()
	return randomOrder(t, rand.New(rand.NewSource(propertySeed)), 0)
}

// randomOrder builds a structurally valid order whose amount, side,
// dates, and LEIs are drawn from r, so a loop calling this per iteration
// sweeps genuinely distinct order shapes instead of one fixed case (spec
// §8 "Master Square; property-based, >= 200 examples").
func randomOrder(t *testing.T, r *rand.Rand, i int) order.Order {
	t.Helper()

	side := order.Buy
	if r.Intn(2) == 1 {
		side = order.Sell
	}
	orderType := order.Limit
	if r.Intn(2) == 1 {
		orderType = order.Market
	}

	quantity := decimal.MustNew(fmt.Sprintf("%d.%02d", 1+r.Intn(1_000_000), r.Intn(100)))
	price := decimal.MustNew(fmt.Sprintf("%d.%02d", 1+r.Intn(10_000), r.Intn(100)))

	tradeDay := r.Intn(28)
	settleLag := r.Intn(4) // T+0..T+3, keeping settlement >= trade
	tradeDate := time.Date(2026, time.Month(1+r.Intn(12)), 1+tradeDay, 9, r.Intn(60), r.Intn(60), 0, time.UTC)
	settlementDate := tradeDate.AddDate(0, 0, settleLag)

	o, err := order.New(order.Fields{
		ID:              fmt.Sprintf("ORD-%06d", i),
		InstrumentID:    fmt.Sprintf("SYM%03d", r.Intn(1000)),
		AssetClass:      order.Equity,
		Side:            side,
		Quantity:        quantity,
		Price:           price,
		Currency:        "USD",
		OrderType:       orderType,
		CounterpartyLEI: randLEI(r),
		ExecutingLEI:    randLEI(r),
		TradeDate:       mustTS(t, "trade_date", tradeDate),
		SettlementDate:  mustTS(t, "settlement_date", settlementDate),
		Venue:           "XNAS",
		Timestamp:       mustTS(t, "timestamp", tradeDate.Add(time.Second)),
	})
	if err != nil {
		t.Fatalf("iteration %d: unexpected error building random order: %v", i, err)
	}
	return o
}

// TestDeriveUTIFormat exercises spec scenario 5's structural shape: a
// 52-character identifier whose first 20 characters are the executing
// LEI verbatim and whose remaining 32 are the first 32 hex characters
// of the order's own content hash.
func TestDeriveUTIFormat(t *testing.T) {
	o := sampleOrder(t)
	uti, err := DeriveUTI(o)
	if err != nil {
		t.Fatalf("unexpected error deriving uti: %v", err)
	}

	s := uti.String()
	if len(s) != 52 {
		t.Fatalf("expected a 52-character uti, got %d: %q", len(s), s)
	}
	if s[:20] != o.ExecutingLEI.String() {
		t.Fatalf("expected uti to start with the executing lei, got %q", s[:20])
	}

	hash := o.ContentHash()
	wantSuffix := hexString(hash)[:32]
	if s[20:] != wantSuffix {
		t.Fatalf("expected uti suffix %q, got %q", wantSuffix, s[20:])
	}
}

func hexString(h [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 64)
	for _, b := range h {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

func TestDeriveUTIDeterministic(t *testing.T) {
	o := sampleOrder(t)
	u1, err := DeriveUTI(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u2, err := DeriveUTI(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u1.String() != u2.String() {
		t.Fatal("DeriveUTI must be deterministic for an identical order")
	}
}

// TestMasterSquareCommutativity checks spec §4.5's Master Square
// property: projecting an order before booking it produces a
// byte-equal report to projecting the same order after the booked
// transaction has been applied to an engine. Booking never mutates the
// order itself, so the two reports must hash identically.
func TestMasterSquareCommutativity(t *testing.T) {
	asOf := mustTS(t, "as_of", time.Date(2026, 3, 10, 9, 0, 2, 0, time.UTC))
	projectedBy, perr := primitives.NewNonEmptyString("projected_by", "EMIR-REPORTER")
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}

	r := rand.New(rand.NewSource(propertySeed))
	for i := 0; i < 200; i++ {
		o := randomOrder(t, r, i)

		before, err := Project(EMIR, o, asOf, projectedBy)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error projecting before booking: %v", i, err)
		}

		tx, berr := booking.BookEquitySettlement(booking.EquitySettlement{
			TransactionID:     o.ID.String(),
			Timestamp:         o.Timestamp,
			BuyerCashAccount:  "buyer-cash",
			SellerCashAccount: "seller-cash",
			BuyerSecAccount:   "buyer-sec",
			SellerSecAccount:  "seller-sec",
			Currency:          o.Currency.String(),
			Instrument:        o.InstrumentID.String(),
			Price:             o.Price,
			Quantity:          o.Quantity.Decimal(),
			AttestationRef:    "att-" + o.ID.String(),
		})
		if berr != nil {
			t.Fatalf("iteration %d: unexpected error booking: %v", i, berr)
		}

		engine := ledger.New()
		for _, acc := range []string{"buyer-cash", "seller-cash", "buyer-sec", "seller-sec"} {
			a, aerr := ledger.NewAccount(acc, string(ledger.AccountCash))
			if aerr != nil {
				t.Fatalf("iteration %d: unexpected error building account: %v", i, aerr)
			}
			if rerr := engine.RegisterAccount(a); rerr != nil {
				t.Fatalf("iteration %d: unexpected error registering account: %v", i, rerr)
			}
		}
		if _, xerr := engine.Execute(tx); xerr != nil {
			t.Fatalf("iteration %d: unexpected error executing booked transaction: %v", i, xerr)
		}

		after, err := Project(EMIR, o, asOf, projectedBy)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error projecting after booking: %v", i, err)
		}

		if string(before.Payload().Canonical()) != string(after.Payload().Canonical()) {
			t.Fatalf("iteration %d: projection before and after booking must be byte-equal", i)
		}
	}
}
