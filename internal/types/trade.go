package types

import "github.com/moznion/go-optional"

// Trade is an immutable entry of the portfolio trade log.
// A buy moves from cash into a product and carries PriceTo; a sell moves from a
// product into cash and carries PriceFrom.
type Trade struct {
	Timestamp int64
	FromAsset string
	ToAsset   string
	PriceFrom optional.Option[float64]
	PriceTo   optional.Option[float64]
	// Units is the product quantity bought or sold.
	Units float64
	// Notional is the gross cash amount of the leg before fees.
	Notional float64
	Fee      float64
}

// IsBuy reports whether the trade moved cash into a product.
func (t Trade) IsBuy() bool {
	return t.PriceTo.IsSome()
}

// IsSell reports whether the trade moved a product into cash.
func (t Trade) IsSell() bool {
	return t.PriceFrom.IsSome()
}

// Price returns the execution price of the leg.
func (t Trade) Price() float64 {
	if t.PriceTo.IsSome() {
		return t.PriceTo.Unwrap()
	}

	if t.PriceFrom.IsSome() {
		return t.PriceFrom.Unwrap()
	}

	return 0
}

// Product returns the non-cash side of the trade.
func (t Trade) Product() string {
	if t.IsBuy() {
		return t.ToAsset
	}

	return t.FromAsset
}
