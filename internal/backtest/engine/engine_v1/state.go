package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

// BacktestState keeps the trade log and step results of a run in an in-memory
// DuckDB database so they can be queried and exported to Parquet.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(log *logger.Logger) (*BacktestState, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open state database", err)
	}

	return &BacktestState{
		logger: log,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and steps tables.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			seq INTEGER,
			timestamp BIGINT,
			from_asset TEXT,
			to_asset TEXT,
			price_from DOUBLE,
			price_to DOUBLE,
			units DOUBLE,
			notional DOUBLE,
			fee DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create trades table: %w", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT,
			seq INTEGER,
			timestamp BIGINT,
			signal TEXT,
			signal_kind TEXT,
			holding TEXT,
			portfolio_value DOUBLE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create steps table: %w", err)
	}

	return nil
}

// RecordTrades appends the trade log of a run in one transaction.
func (b *BacktestState) RecordTrades(runID string, trades []types.Trade) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, trade := range trades {
		_, err := b.sq.
			Insert("trades").
			Columns(
				"run_id", "seq", "timestamp", "from_asset", "to_asset",
				"price_from", "price_to", "units", "notional", "fee",
			).
			Values(
				runID, i, trade.Timestamp, trade.FromAsset, trade.ToAsset,
				nullableFloat(trade.PriceFrom), nullableFloat(trade.PriceTo),
				trade.Units, trade.Notional, trade.Fee,
			).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trades: %w", err)
	}

	return nil
}

// RecordSteps appends the per-step results of a run in one transaction.
func (b *BacktestState) RecordSteps(runID string, steps []types.StepResult) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, step := range steps {
		_, err := b.sq.
			Insert("steps").
			Columns("run_id", "seq", "timestamp", "signal", "signal_kind", "holding", "portfolio_value").
			Values(runID, i, step.Timestamp, step.Signal.String(), step.Signal.Kind.String(), step.Holding, step.Value).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to insert step: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit steps: %w", err)
	}

	return nil
}

// GetTrades returns the recorded trades of a run in execution order.
func (b *BacktestState) GetTrades(runID string) ([]types.Trade, error) {
	rows, err := b.sq.
		Select("timestamp", "from_asset", "to_asset", "price_from", "price_to", "units", "notional", "fee").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []types.Trade{}

	for rows.Next() {
		var (
			trade     types.Trade
			priceFrom sql.NullFloat64
			priceTo   sql.NullFloat64
		)

		err := rows.Scan(
			&trade.Timestamp,
			&trade.FromAsset,
			&trade.ToAsset,
			&priceFrom,
			&priceTo,
			&trade.Units,
			&trade.Notional,
			&trade.Fee,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		trade.PriceFrom = optionalFloat(priceFrom)
		trade.PriceTo = optionalFloat(priceTo)
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// GetPortfolioValues returns the recorded valuation series of a run.
func (b *BacktestState) GetPortfolioValues(runID string) ([]float64, error) {
	rows, err := b.sq.
		Select("portfolio_value").
		From("steps").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("seq ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	values := []float64{}

	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		values = append(values, value)
	}

	return values, rows.Err()
}

// TotalFees sums the fees of a run.
func (b *BacktestState) TotalFees(runID string) (float64, error) {
	var totalFees float64

	err := b.sq.
		Select("COALESCE(SUM(fee), 0)").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(b.db).
		QueryRow().
		Scan(&totalFees)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate total fees: %w", err)
	}

	return totalFees, nil
}

// TradeCountByProduct counts buy and sell legs per product symbol.
func (b *BacktestState) TradeCountByProduct(runID string, cashSymbol string) (map[string]int, error) {
	rows, err := b.sq.
		Select().
		Column(squirrel.Expr("CASE WHEN from_asset = ? THEN to_asset ELSE from_asset END AS product", cashSymbol)).
		Column("COUNT(*)").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		GroupBy("product").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to count trades by product: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}

	for rows.Next() {
		var (
			product string
			count   int
		)

		if err := rows.Scan(&product, &count); err != nil {
			return nil, fmt.Errorf("failed to scan trade count: %w", err)
		}

		counts[product] = count
	}

	return counts, rows.Err()
}

// Cleanup resets the database state
func (b *BacktestState) Cleanup() error {
	// Squirrel doesn't have DROP syntax
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS steps;
	`)
	if err != nil {
		return fmt.Errorf("failed to cleanup tables: %w", err)
	}

	return b.Initialize()
}

// Write exports the trades and steps tables to Parquet files in path and
// returns the file paths.
func (b *BacktestState) Write(path string) (string, string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create directory: %w", err)
	}

	// Squirrel doesn't support COPY
	tradesPath := filepath.Join(path, "trades.parquet")

	_, err := b.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY run_id, seq) TO '%s' (FORMAT PARQUET)`, tradesPath))
	if err != nil {
		return "", "", fmt.Errorf("failed to export trades to Parquet: %w", err)
	}

	stepsPath := filepath.Join(path, "steps.parquet")

	_, err = b.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM steps ORDER BY run_id, seq) TO '%s' (FORMAT PARQUET)`, stepsPath))
	if err != nil {
		return "", "", fmt.Errorf("failed to export steps to Parquet: %w", err)
	}

	b.logger.Debug("Exported backtest results to Parquet files",
		zap.String("trades", tradesPath),
		zap.String("steps", stepsPath),
	)

	return tradesPath, stepsPath, nil
}

// Close closes the state database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}

func nullableFloat(value optional.Option[float64]) sql.NullFloat64 {
	if value.IsNone() {
		return sql.NullFloat64{}
	}

	return sql.NullFloat64{Float64: value.Unwrap(), Valid: true}
}

func optionalFloat(value sql.NullFloat64) optional.Option[float64] {
	if !value.Valid {
		return optional.None[float64]()
	}

	return optional.Some(value.Float64)
}
