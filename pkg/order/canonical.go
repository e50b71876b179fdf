package order

import "github.com/attestor-io/core/pkg/canon"

// Canonical writes Order fields in fixed order; this is the basis of the
// order content hash used for UTI derivation (spec §4.5) and attestation
// identity.
func (o Order) Canonical() []byte {
	b := canon.NewBuilder().
		Str(o.ID.String()).
		Str(o.InstrumentID.String())
	if o.ISIN != nil {
		b.Str(o.ISIN.String())
	} else {
		b.Str("")
	}
	b.Tag(string(o.AssetClass)).
		Tag(string(o.Side)).
		Decimal(o.Quantity.Decimal()).
		Decimal(o.Price).
		Str(o.Currency.String()).
		Tag(string(o.OrderType)).
		Str(o.CounterpartyLEI.String()).
		Str(o.ExecutingLEI.String()).
		Timestamp(o.TradeDate).
		Timestamp(o.SettlementDate).
		Str(o.Venue.String()).
		Timestamp(o.Timestamp)
	return b.Finish()
}

// ContentHash returns the SHA-256 content hash of the order's canonical
// bytes.
func (o Order) ContentHash() [32]byte {
	return canon.Hash(o)
}
