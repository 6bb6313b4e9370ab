package commission_fee

import "github.com/shopspring/decimal"

// ProportionalCommissionFee charges a fixed fraction of the traded notional.
type ProportionalCommissionFee struct {
	rate decimal.Decimal
}

func NewProportionalCommissionFee(rate float64) CommissionFee {
	return &ProportionalCommissionFee{
		rate: decimal.NewFromFloat(rate),
	}
}

// Calculate implements CommissionFee.
func (c *ProportionalCommissionFee) Calculate(notional float64) float64 {
	return decimal.NewFromFloat(notional).Abs().Mul(c.rate).InexactFloat64()
}

// Rate implements CommissionFee.
func (c *ProportionalCommissionFee) Rate() float64 {
	return c.rate.InexactFloat64()
}
