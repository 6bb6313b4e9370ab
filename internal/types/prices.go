package types

import "math"

// PriceSnapshot maps each product of the universe to its price at one timestamp.
// Every product column of the series is a key; a missing price is stored as NaN.
type PriceSnapshot map[string]float64

// Has reports whether symbol belongs to the tradable universe.
func (p PriceSnapshot) Has(symbol string) bool {
	_, ok := p[symbol]

	return ok
}

// Price returns the price of symbol when it is present and finite.
func (p PriceSnapshot) Price(symbol string) (float64, bool) {
	price, ok := p[symbol]
	if !ok || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, false
	}

	return price, true
}

// PriceRow is a single timestamped snapshot of the price series.
type PriceRow struct {
	Timestamp int64
	Prices    PriceSnapshot
}

// PriceSeries is the ordered price input of a backtest.
type PriceSeries struct {
	// Products lists the product symbols in column order.
	Products []string
	Rows     []PriceRow
}

// Len returns the number of rows.
func (s PriceSeries) Len() int {
	return len(s.Rows)
}

// Last returns the final row. It must not be called on an empty series.
func (s PriceSeries) Last() PriceRow {
	return s.Rows[len(s.Rows)-1]
}
