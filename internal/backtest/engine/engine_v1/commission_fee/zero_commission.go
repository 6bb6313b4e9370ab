package commission_fee

type ZeroCommissionFee struct{}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

// Calculate implements CommissionFee.
func (c *ZeroCommissionFee) Calculate(notional float64) float64 {
	return 0
}

// Rate implements CommissionFee.
func (c *ZeroCommissionFee) Rate() float64 {
	return 0
}
