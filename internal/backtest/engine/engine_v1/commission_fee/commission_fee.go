package commission_fee

// CommissionFee prices one leg of a rotation.
type CommissionFee interface {
	// Calculate returns the fee in cash units for a leg of the given gross notional.
	Calculate(notional float64) float64
	// Rate returns the proportional rate applied to the notional.
	Rate() float64
}

type Broker string

const (
	BrokerProportional Broker = "proportional"
	BrokerZero         Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerProportional,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for broker. Unknown brokers fall
// back to the proportional model so a configured transaction cost is never ignored.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerZero:
		return NewZeroCommissionFee()
	case BrokerProportional:
		return NewProportionalCommissionFee(rate)
	default:
		return NewProportionalCommissionFee(rate)
	}
}
