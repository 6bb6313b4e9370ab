package engine

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

// StepCallback is called after every processed price row.
type StepCallback func(current int, total int) error

// TradeExecutor drives one backtest pass over a price series.
type TradeExecutor struct {
	portfolio *BacktestPortfolio
	prices    types.PriceSeries
	signals   map[int64]types.Signal
	log       *logger.Logger
}

// AlignSignals pads or truncates the signal rows to the length of the price series.
// Padding rows are holds stamped with the timestamp of the price row at the same
// position, and positional rows take the timestamp of their price row.
func AlignSignals(rows []types.SignalRow, prices types.PriceSeries) []types.SignalRow {
	n := prices.Len()
	aligned := make([]types.SignalRow, n)

	for i := 0; i < n; i++ {
		if i >= len(rows) {
			aligned[i] = types.SignalRow{Timestamp: prices.Rows[i].Timestamp}

			continue
		}

		row := rows[i]
		if row.Positional {
			row.Timestamp = prices.Rows[i].Timestamp
			row.Positional = false
		}

		aligned[i] = row
	}

	return aligned
}

// NewTradeExecutor aligns the signal rows to the price series and indexes them by
// timestamp. When several aligned rows share a timestamp the last one wins.
// Padding rows are left out of the index since a missing timestamp already holds.
func NewTradeExecutor(
	portfolio *BacktestPortfolio,
	prices types.PriceSeries,
	signalRows []types.SignalRow,
	log *logger.Logger,
) *TradeExecutor {
	if log == nil {
		log = logger.NewNopLogger()
	}

	cashSymbol := portfolio.CashSymbol()
	signals := make(map[int64]types.Signal, prices.Len())

	for i, row := range AlignSignals(signalRows, prices) {
		// padding rows are holds and must not replace a real row with the same timestamp
		if i >= len(signalRows) {
			continue
		}

		signals[row.Timestamp] = types.ParseSignal(row.Signal, cashSymbol)
	}

	return &TradeExecutor{
		portfolio: portfolio,
		prices:    prices,
		signals:   signals,
		log:       log,
	}
}

// SignalAt returns the signal for a timestamp, or a hold when there is none.
func (e *TradeExecutor) SignalAt(timestamp int64) types.Signal {
	signal, ok := e.signals[timestamp]
	if !ok {
		return types.HoldSignal()
	}

	return signal
}

// Run processes every price row in order and then liquidates at the last row.
// The returned slice has one entry per price row.
func (e *TradeExecutor) Run(ctx context.Context, onStep StepCallback) ([]types.StepResult, error) {
	total := e.prices.Len()
	if total == 0 {
		return nil, errors.New(errors.ErrCodeMalformedInput, "price series has no rows")
	}

	results := make([]types.StepResult, 0, total)

	for i, row := range e.prices.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		signal := e.SignalAt(row.Timestamp)
		holding := e.portfolio.HoldingSymbol()

		if err := e.portfolio.Rebalance(row.Timestamp, signal, row.Prices); err != nil {
			return nil, fmt.Errorf("step %d at timestamp %d: %w", i, row.Timestamp, err)
		}

		value, err := e.portfolio.Value(row.Prices)
		if err != nil {
			return nil, fmt.Errorf("step %d at timestamp %d: %w", i, row.Timestamp, err)
		}

		results = append(results, types.StepResult{
			Timestamp: row.Timestamp,
			Signal:    signal,
			Holding:   holding,
			Value:     value,
		})

		if onStep != nil {
			if err := onStep(i+1, total); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "step callback failed", err)
			}
		}
	}

	last := e.prices.Last()
	if err := e.portfolio.LiquidateAll(last.Timestamp, last.Prices); err != nil {
		return nil, fmt.Errorf("final liquidation at timestamp %d: %w", last.Timestamp, err)
	}

	finalValue, err := e.portfolio.Value(last.Prices)
	if err != nil {
		return nil, err
	}

	results[len(results)-1].Holding = e.portfolio.HoldingSymbol()
	results[len(results)-1].Value = finalValue

	e.log.Debug("Backtest pass finished",
		zap.Int("steps", total),
		zap.Int("trades", e.portfolio.TradeCount()),
		zap.Float64("final_value", finalValue),
	)

	return results, nil
}

// Portfolio returns the portfolio driven by the executor.
func (e *TradeExecutor) Portfolio() *BacktestPortfolio {
	return e.portfolio
}
