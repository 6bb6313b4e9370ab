package engine

import (
	"context"

	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error.
// The engine never invokes two callbacks at the same time, even when runs are parallel.

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalRuns int, totalDataPoints int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when the backtest of one signal file begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, runIndex int, signalsPath string, totalDataPoints int) error

// OnRunEndCallback is called when the backtest of one signal file ends.
type OnRunEndCallback func(runIndex int, signalsPath string, resultFolderPath string, summary types.Summary)

// OnProcessDataCallback is called for each price row processed by a run.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
}

// RunResult is the outcome of backtesting one signal file.
type RunResult struct {
	RunID        string
	SignalsPath  string
	ResultFolder string
	Summary      types.Summary
	Steps        []types.StepResult
	Trades       []types.Trade
	// TradesByProduct counts trade legs per product symbol.
	TradesByProduct map[string]int
	TotalFees       float64
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetLogger replaces the engine logger. Call it before Initialize.
	SetLogger(log *logger.Logger)
	// SetPricesPath sets the price series file (CSV or Parquet).
	SetPricesPath(path string) error
	// SetSignalsPath sets the signal files to backtest. Accepts glob patterns
	// (e.g., "signals/*.csv"); every matched file is one run against the same prices.
	SetSignalsPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// Each run writes into <folder>/<signal file name>.
	SetResultsFolder(folder string) error
	// Run backtests every signal file.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases of the backtest.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetResults returns the results of the last Run in signal file order.
	GetResults() []RunResult
	// SetDataSource sets the price data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
