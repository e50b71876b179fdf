// Command attestor-cli runs one-shot local operations against the
// attestor core's domain packages: order validation, UTI derivation,
// and margin-call computation, without requiring a running daemon.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/margin"
	"github.com/attestor-io/core/pkg/order"
	"github.com/attestor-io/core/pkg/primitives"
	"github.com/attestor-io/core/pkg/projection"
)

func main() {
	var (
		command = flag.String("command", "", "one of: validate-order, derive-uti, margin-call")
		input   = flag.String("input", "-", "path to a JSON input file, or - for stdin")
	)
	flag.Parse()

	var err error
	switch *command {
	case "validate-order":
		err = runValidateOrder(*input)
	case "derive-uti":
		err = runDeriveUTI(*input)
	case "margin-call":
		err = runMarginCall(*input)
	default:
		fmt.Fprintln(os.Stderr, "usage: attestor-cli -command={validate-order,derive-uti,margin-call} -input=<path|->")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return os.ReadFile("/dev/stdin")
	}
	return os.ReadFile(path)
}

// orderFieldsJSON mirrors order.Fields with JSON tags for CLI input.
type orderFieldsJSON struct {
	ID              string `json:"id"`
	InstrumentID    string `json:"instrument_id"`
	ISIN            string `json:"isin,omitempty"`
	AssetClass      string `json:"asset_class"`
	Side            string `json:"side"`
	Quantity        string `json:"quantity"`
	Price           string `json:"price"`
	Currency        string `json:"currency"`
	OrderType       string `json:"order_type"`
	CounterpartyLEI string `json:"counterparty_lei"`
	ExecutingLEI    string `json:"executing_lei"`
	TradeDate       string `json:"trade_date"`
	SettlementDate  string `json:"settlement_date"`
	Venue           string `json:"venue"`
	Timestamp       string `json:"timestamp"`
}

func buildOrder(path string) (order.Order, error) {
	raw, err := readInput(path)
	if err != nil {
		return order.Order{}, err
	}
	var f orderFieldsJSON
	if err := json.Unmarshal(raw, &f); err != nil {
		return order.Order{}, fmt.Errorf("parsing order JSON: %w", err)
	}

	tradeDateRaw, err := time.Parse(time.RFC3339, f.TradeDate)
	if err != nil {
		return order.Order{}, fmt.Errorf("parsing trade_date: %w", err)
	}
	settlementDateRaw, err := time.Parse(time.RFC3339, f.SettlementDate)
	if err != nil {
		return order.Order{}, fmt.Errorf("parsing settlement_date: %w", err)
	}
	timestampRaw, err := time.Parse(time.RFC3339, f.Timestamp)
	if err != nil {
		return order.Order{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	tradeDate, cerr := primitives.NewTimestamp("order.trade_date", tradeDateRaw)
	if cerr != nil {
		return order.Order{}, cerr
	}
	settlementDate, cerr := primitives.NewTimestamp("order.settlement_date", settlementDateRaw)
	if cerr != nil {
		return order.Order{}, cerr
	}
	timestamp, cerr := primitives.NewTimestamp("order.timestamp", timestampRaw)
	if cerr != nil {
		return order.Order{}, cerr
	}

	quantity, err := decimal.New(f.Quantity)
	if err != nil {
		return order.Order{}, fmt.Errorf("parsing quantity: %w", err)
	}
	price, err := decimal.New(f.Price)
	if err != nil {
		return order.Order{}, fmt.Errorf("parsing price: %w", err)
	}

	o, cerr := order.New(order.Fields{
		ID:              f.ID,
		InstrumentID:    f.InstrumentID,
		ISIN:            f.ISIN,
		AssetClass:      order.AssetClass(f.AssetClass),
		Side:            order.Side(f.Side),
		Quantity:        quantity,
		Price:           price,
		Currency:        f.Currency,
		OrderType:       order.Type(f.OrderType),
		CounterpartyLEI: f.CounterpartyLEI,
		ExecutingLEI:    f.ExecutingLEI,
		TradeDate:       tradeDate,
		SettlementDate:  settlementDate,
		Venue:           f.Venue,
		Timestamp:       timestamp,
	})
	if cerr != nil {
		return order.Order{}, cerr
	}
	return o, nil
}

func runValidateOrder(path string) error {
	o, err := buildOrder(path)
	if err != nil {
		return err
	}
	hash := o.ContentHash()
	out, _ := json.MarshalIndent(map[string]string{
		"order_id":     o.ID.String(),
		"content_hash": fmt.Sprintf("%x", hash[:]),
	}, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runDeriveUTI(path string) error {
	o, err := buildOrder(path)
	if err != nil {
		return err
	}
	uti, cerr := projection.DeriveUTI(o)
	if cerr != nil {
		return cerr
	}
	fmt.Println(uti.String())
	return nil
}

type marginCallInput struct {
	Exposure  string `json:"exposure"`
	Threshold string `json:"threshold"`
	MTA       string `json:"mta"`
}

func runMarginCall(path string) error {
	raw, err := readInput(path)
	if err != nil {
		return err
	}
	var in marginCallInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parsing margin-call JSON: %w", err)
	}

	exposure, err := parseNonNegative("exposure", in.Exposure)
	if err != nil {
		return err
	}
	threshold, err := parseNonNegative("threshold", in.Threshold)
	if err != nil {
		return err
	}
	mta, err := parseNonNegative("mta", in.MTA)
	if err != nil {
		return err
	}

	call := margin.ComputeMarginCall(exposure, threshold, mta)
	fmt.Println(decimal.Text(call))
	return nil
}

func parseNonNegative(field, s string) (primitives.NonNegativeDecimal, error) {
	d, err := decimal.New(s)
	if err != nil {
		return primitives.NonNegativeDecimal{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	nn, cerr := primitives.NewNonNegativeDecimal(field, d)
	if cerr != nil {
		return primitives.NonNegativeDecimal{}, cerr
	}
	return nn, nil
}
