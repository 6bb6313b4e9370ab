package types

// StepResult is the per-timestamp output of a backtest run.
type StepResult struct {
	Timestamp int64
	Signal    Signal
	// Holding is the symbol held before the step's rebalance. The last step
	// carries the holding after the final liquidation.
	Holding string
	// Value is the portfolio value after the step's rebalance.
	Value float64
}

// ResultRow is the CSV shape of a StepResult.
type ResultRow struct {
	Timestamp         int64   `csv:"timestamp"`
	Signal            string  `csv:"signal"`
	Holding           string  `csv:"holding"`
	NewPortfolioValue float64 `csv:"new_portfolio_value"`
}

// ToResultRows converts step results to their CSV shape.
func ToResultRows(steps []StepResult) []ResultRow {
	rows := make([]ResultRow, 0, len(steps))
	for _, step := range steps {
		rows = append(rows, ResultRow{
			Timestamp:         step.Timestamp,
			Signal:            step.Signal.String(),
			Holding:           step.Holding,
			NewPortfolioValue: step.Value,
		})
	}

	return rows
}
