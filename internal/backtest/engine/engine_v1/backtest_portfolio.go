package engine

import (
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

// BacktestPortfolio holds either cash or the whole position in exactly one product.
// It is owned by a single TradeExecutor and is not safe for concurrent use.
type BacktestPortfolio struct {
	cashSymbol    string
	cash          float64
	holdingSymbol string
	holdingUnits  float64
	commission    commission_fee.CommissionFee
	tradeCount    int
	trades        []types.Trade
	log           *logger.Logger
}

// NewBacktestPortfolio creates a portfolio fully in cash.
func NewBacktestPortfolio(
	initialCapital float64,
	cashSymbol string,
	commission commission_fee.CommissionFee,
	log *logger.Logger,
) *BacktestPortfolio {
	if commission == nil {
		commission = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	cashSymbol = strings.ToUpper(strings.TrimSpace(cashSymbol))

	return &BacktestPortfolio{
		cashSymbol:    cashSymbol,
		cash:          initialCapital,
		holdingSymbol: cashSymbol,
		commission:    commission,
		trades:        []types.Trade{},
		log:           log,
	}
}

// Rebalance moves the portfolio to the signal's target.
//
// A hold, or a target equal to the current holding, changes nothing. Otherwise the
// current product (if any) is sold into cash and, for a product target, all cash is
// used to buy it. Every price the call needs is checked before any state changes, so
// a returned error leaves the portfolio as it was.
func (p *BacktestPortfolio) Rebalance(timestamp int64, signal types.Signal, prices types.PriceSnapshot) error {
	if signal.IsHold() {
		return nil
	}

	target := p.cashSymbol
	if signal.Kind == types.SignalGoToAsset {
		target = signal.Symbol
		if target != p.cashSymbol && !prices.Has(target) {
			return errors.Newf(errors.ErrCodeUnknownSymbol, "symbol %s is neither cash nor a product of the price series", target)
		}
	}

	if target == p.holdingSymbol {
		return nil
	}

	var sellPrice float64

	if !p.InCash() {
		price, ok := prices.Price(p.holdingSymbol)
		if !ok {
			return errors.Newf(errors.ErrCodeMissingPrice, "no finite price for held symbol %s at %d", p.holdingSymbol, timestamp)
		}

		sellPrice = price
	}

	var buyPrice float64

	if target != p.cashSymbol {
		price, ok := prices.Price(target)
		if !ok || price <= 0 {
			return errors.Newf(errors.ErrCodeMissingPrice, "no positive price for target symbol %s at %d", target, timestamp)
		}

		buyPrice = price
	}

	if !p.InCash() {
		p.sell(timestamp, sellPrice)
	}

	if target != p.cashSymbol {
		p.buy(timestamp, target, buyPrice)
	}

	return nil
}

// LiquidateAll sells any held product into cash. It is a no-op in cash.
func (p *BacktestPortfolio) LiquidateAll(timestamp int64, prices types.PriceSnapshot) error {
	if p.InCash() {
		return nil
	}

	price, ok := prices.Price(p.holdingSymbol)
	if !ok {
		return errors.Newf(errors.ErrCodeMissingPrice, "no finite price to liquidate %s at %d", p.holdingSymbol, timestamp)
	}

	p.sell(timestamp, price)

	return nil
}

// Value marks the portfolio to market.
func (p *BacktestPortfolio) Value(prices types.PriceSnapshot) (float64, error) {
	if p.InCash() {
		return p.cash, nil
	}

	price, ok := prices.Price(p.holdingSymbol)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeMissingPrice, "no finite price to value %s", p.holdingSymbol)
	}

	return p.cash + p.holdingUnits*price, nil
}

func (p *BacktestPortfolio) sell(timestamp int64, price float64) {
	notional := p.holdingUnits * price
	fee := p.commission.Calculate(notional)

	trade := types.Trade{
		Timestamp: timestamp,
		FromAsset: p.holdingSymbol,
		ToAsset:   p.cashSymbol,
		PriceFrom: optional.Some(price),
		PriceTo:   optional.None[float64](),
		Units:     p.holdingUnits,
		Notional:  notional,
		Fee:       fee,
	}

	p.cash += notional - fee
	p.holdingSymbol = p.cashSymbol
	p.holdingUnits = 0
	p.record(trade)
}

func (p *BacktestPortfolio) buy(timestamp int64, symbol string, price float64) {
	if p.cash <= 0 {
		p.log.Debug("Skipping buy without cash",
			zap.Int64("timestamp", timestamp),
			zap.String("symbol", symbol),
			zap.Float64("cash", p.cash),
		)

		return
	}

	notional := p.cash
	fee := p.commission.Calculate(notional)
	units := (notional - fee) / price

	trade := types.Trade{
		Timestamp: timestamp,
		FromAsset: p.cashSymbol,
		ToAsset:   symbol,
		PriceFrom: optional.None[float64](),
		PriceTo:   optional.Some(price),
		Units:     units,
		Notional:  notional,
		Fee:       fee,
	}

	p.cash = 0
	p.holdingSymbol = symbol
	p.holdingUnits = units
	p.record(trade)
}

func (p *BacktestPortfolio) record(trade types.Trade) {
	p.trades = append(p.trades, trade)
	p.tradeCount++

	p.log.Debug("Trade executed",
		zap.Int64("timestamp", trade.Timestamp),
		zap.String("from", trade.FromAsset),
		zap.String("to", trade.ToAsset),
		zap.Float64("price", trade.Price()),
		zap.Float64("units", trade.Units),
		zap.Float64("notional", trade.Notional),
		zap.Float64("fee", trade.Fee),
		zap.Float64("cash", p.cash),
	)
}

// InCash reports whether the portfolio currently holds cash.
func (p *BacktestPortfolio) InCash() bool {
	return p.holdingSymbol == p.cashSymbol
}

func (p *BacktestPortfolio) CashSymbol() string {
	return p.cashSymbol
}

func (p *BacktestPortfolio) Cash() float64 {
	return p.cash
}

func (p *BacktestPortfolio) HoldingSymbol() string {
	return p.holdingSymbol
}

func (p *BacktestPortfolio) HoldingUnits() float64 {
	return p.holdingUnits
}

func (p *BacktestPortfolio) TradeCount() int {
	return p.tradeCount
}

// Trades returns a copy of the trade log in execution order.
func (p *BacktestPortfolio) Trades() []types.Trade {
	trades := make([]types.Trade, len(p.trades))
	copy(trades, p.trades)

	return trades
}

// TotalFees sums the fees of every recorded trade.
func (p *BacktestPortfolio) TotalFees() float64 {
	total := 0.0
	for _, trade := range p.trades {
		total += trade.Fee
	}

	return total
}
