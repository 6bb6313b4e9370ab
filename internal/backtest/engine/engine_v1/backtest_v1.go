package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/stats"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/internal/version"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"
)

const (
	resultsFileName = "results.csv"
	summaryFileName = "summary.txt"
	statsFileName   = "stats.yaml"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	pricesPath    string
	signalsPaths  []string
	resultsFolder string
	log           *logger.Logger
	datasource    datasource.DataSource
	results       []engine.RunResult
	// callbackMu serializes lifecycle callbacks across parallel runs
	callbackMu sync.Mutex
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        DefaultConfig(),
		pricesPath:    "",
		signalsPaths:  nil,
		resultsFolder: "",
		log:           nil,
		datasource:    nil,
		results:       nil,
	}
}

// SetLogger implements engine.Engine.
func (b *BacktestEngineV1) SetLogger(log *logger.Logger) {
	b.log = log
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	b.config = DefaultConfig()

	// parse the config
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if b.log == nil {
		var loggerError error

		b.log, loggerError = logger.NewLogger()
		if loggerError != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", loggerError)
		}
	}

	if b.config.Version.IsSome() {
		if err := version.CheckConfigCompatibility(version.Version, b.config.Version.Unwrap()); err != nil {
			return err
		}
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	b.log.Debug("Backtest engine initialized",
		zap.Float64("initial_capital", b.config.InitialCapital),
		zap.Float64("transaction_cost", b.config.TransactionCost),
		zap.String("cash_symbol", b.config.CashSymbol),
		zap.String("broker", string(b.config.Broker)),
		zap.Int("max_parallel", b.config.MaxParallel),
	)

	return nil
}

// SetPricesPath implements engine.Engine.
func (b *BacktestEngineV1) SetPricesPath(path string) error {
	if path == "" {
		return errors.New(errors.ErrCodeMissingParameter, "prices path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid prices path %s", path)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "prices file %s not found", path)
	}

	if info.IsDir() {
		return errors.Newf(errors.ErrCodeInvalidParameter, "prices path %s is a directory", path)
	}

	b.pricesPath = absPath
	b.logger().Debug("Prices path set",
		zap.String("path", absPath),
	)

	return nil
}

// SetSignalsPath implements engine.Engine.
func (b *BacktestEngineV1) SetSignalsPath(path string) error {
	if path == "" {
		return errors.New(errors.ErrCodeMissingParameter, "signals path is required")
	}

	// use glob to get all the files that match the path
	files, err := filepath.Glob(path)
	if err != nil {
		b.logger().Error("Failed to set signals path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid signals pattern %s", path)
	}

	if len(files) == 0 {
		return errors.Newf(errors.ErrCodeDataNotFound, "no signal files match %s", path)
	}

	// Convert all paths to absolute paths
	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			b.logger().Error("Failed to get absolute path",
				zap.String("path", file),
				zap.Error(err),
			)

			return err
		}

		absolutePaths[i] = absPath
	}

	sort.Strings(absolutePaths)

	b.signalsPaths = absolutePaths
	b.logger().Debug("Signals paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.logger().Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(datasource datasource.DataSource) error {
	b.datasource = datasource

	return nil
}

// GetResults implements engine.Engine.
func (b *BacktestEngineV1) GetResults() []engine.RunResult {
	return b.results
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (runErr error) {
	defer func() {
		if callbacks.OnBacktestEnd != nil {
			b.callbackMu.Lock()
			(*callbacks.OnBacktestEnd)(runErr)
			b.callbackMu.Unlock()
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return err
	}

	b.results = nil

	if err := checkResultsFolder(b.resultsFolder); err != nil {
		return err
	}

	// clean the results folder
	if _, err := os.Stat(b.resultsFolder); err == nil {
		if err := os.RemoveAll(b.resultsFolder); err != nil {
			return errors.Wrap(errors.ErrCodeWriteFailed, "failed to clean results folder", err)
		}
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create results folder", err)
	}

	prices, err := b.loadPrices()
	if err != nil {
		return err
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.signalsPaths), prices.Len()); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "OnBacktestStart callback failed", err)
		}
	}

	folders := getResultFolders(b.resultsFolder, b.signalsPaths)
	results := make([]engine.RunResult, len(b.signalsPaths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.config.MaxParallel)

	for i, signalsPath := range b.signalsPaths {
		group.Go(func() error {
			result, err := b.runSignals(groupCtx, i, signalsPath, folders[i], prices, callbacks)
			if err != nil {
				return fmt.Errorf("backtest of %s failed: %w", filepath.Base(signalsPath), err)
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		b.log.Error("Backtest failed", zap.Error(err))

		return err
	}

	b.results = results

	return nil
}

// loadPrices reads the price series once for all runs. A data source created
// here is closed again; one set by SetDataSource belongs to the caller.
func (b *BacktestEngineV1) loadPrices() (types.PriceSeries, error) {
	source := b.datasource

	if source == nil {
		created, err := datasource.NewDataSourceForPath(b.pricesPath, b.config.PriceColumnPrefix, b.log)
		if err != nil {
			return types.PriceSeries{}, err
		}

		defer created.Close()

		source = created
	}

	if err := source.Initialize(b.pricesPath); err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to initialize data source: %w", err)
	}

	prices, err := source.ReadPrices()
	if err != nil {
		return types.PriceSeries{}, fmt.Errorf("failed to read prices: %w", err)
	}

	if prices.Len() == 0 {
		return types.PriceSeries{}, errors.Newf(errors.ErrCodeMalformedInput, "price file %s has no rows", b.pricesPath)
	}

	b.log.Debug("Prices loaded",
		zap.String("path", b.pricesPath),
		zap.Strings("products", prices.Products),
		zap.Int("rows", prices.Len()),
	)

	return prices, nil
}

func (b *BacktestEngineV1) runSignals(
	ctx context.Context,
	index int,
	signalsPath string,
	resultFolderPath string,
	prices types.PriceSeries,
	callbacks engine.LifecycleCallbacks,
) (engine.RunResult, error) {
	runID := uuid.New().String()
	runLog := &logger.Logger{Logger: b.log.With(
		zap.String("run_id", runID),
		zap.String("signals", filepath.Base(signalsPath)),
	)}

	rows, err := datasource.ReadSignals(signalsPath)
	if err != nil {
		return engine.RunResult{}, err
	}

	if callbacks.OnRunStart != nil {
		b.callbackMu.Lock()
		err := (*callbacks.OnRunStart)(runID, index, signalsPath, prices.Len())
		b.callbackMu.Unlock()

		if err != nil {
			return engine.RunResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "OnRunStart callback failed", err)
		}
	}

	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.TransactionCost)
	portfolio := NewBacktestPortfolio(b.config.InitialCapital, b.config.CashSymbol, commission, runLog)
	executor := NewTradeExecutor(portfolio, prices, rows, runLog)

	var onStep StepCallback

	if callbacks.OnProcessData != nil {
		onStep = func(current int, total int) error {
			b.callbackMu.Lock()
			defer b.callbackMu.Unlock()

			return (*callbacks.OnProcessData)(current, total)
		}
	}

	steps, err := executor.Run(ctx, onStep)
	if err != nil {
		return engine.RunResult{}, err
	}

	state, err := b.recordRun(runID, portfolio.Trades(), steps)
	if err != nil {
		return engine.RunResult{}, err
	}
	defer state.Close()

	values, err := state.GetPortfolioValues(runID)
	if err != nil {
		return engine.RunResult{}, err
	}

	evaluator := stats.NewEvaluator(values, b.config.PeriodsPerYear)

	summary, err := evaluator.Summary(portfolio.TradeCount(), b.config.RiskFree())
	if err != nil {
		return engine.RunResult{}, err
	}

	trades, err := state.GetTrades(runID)
	if err != nil {
		return engine.RunResult{}, err
	}

	tradesByProduct, err := state.TradeCountByProduct(runID, portfolio.CashSymbol())
	if err != nil {
		return engine.RunResult{}, err
	}

	result := engine.RunResult{
		RunID:           runID,
		SignalsPath:     signalsPath,
		ResultFolder:    resultFolderPath,
		Summary:         summary,
		Steps:           steps,
		Trades:          trades,
		TradesByProduct: tradesByProduct,
		TotalFees:       portfolio.TotalFees(),
	}

	if err := b.writeResults(state, result, prices.Len()); err != nil {
		return engine.RunResult{}, err
	}

	runLog.Info("Backtest run finished",
		zap.Float64("final_value", summary.FinalValue),
		zap.Int("total_trades", summary.TotalTrades),
		zap.Float64("max_drawdown", summary.MaxDrawdown),
		zap.Float64("sharpe", summary.Sharpe),
	)

	if callbacks.OnRunEnd != nil {
		b.callbackMu.Lock()
		(*callbacks.OnRunEnd)(index, signalsPath, resultFolderPath, summary)
		b.callbackMu.Unlock()
	}

	return result, nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// recordRun stores the trades and steps of a run in a fresh state database.
// The caller closes the returned state.
func (b *BacktestEngineV1) recordRun(runID string, trades []types.Trade, steps []types.StepResult) (*BacktestState, error) {
	state, err := NewBacktestState(b.log)
	if err != nil {
		return nil, err
	}

	if err := state.Initialize(); err != nil {
		state.Close()

		return nil, fmt.Errorf("failed to initialize state: %w", err)
	}

	if err := state.RecordTrades(runID, trades); err != nil {
		state.Close()

		return nil, err
	}

	if err := state.RecordSteps(runID, steps); err != nil {
		state.Close()

		return nil, err
	}

	return state, nil
}

// writeResults exports the run state to Parquet and writes results.csv,
// summary.txt and stats.yaml.
func (b *BacktestEngineV1) writeResults(state *BacktestState, result engine.RunResult, totalSteps int) error {
	if err := os.MkdirAll(result.ResultFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to create result folder", err)
	}

	totalFees, err := state.TotalFees(result.RunID)
	if err != nil {
		return err
	}

	tradesPath, stepsPath, err := state.Write(result.ResultFolder)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write state", err)
	}

	resultsPath := filepath.Join(result.ResultFolder, resultsFileName)
	if err := writeResultRows(resultsPath, types.ToResultRows(result.Steps)); err != nil {
		return err
	}

	if err := types.WriteSummary(filepath.Join(result.ResultFolder, summaryFileName), result.Summary); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write summary", err)
	}

	runStats := types.RunStats{
		ID:              result.RunID,
		Timestamp:       time.Now(),
		CashSymbol:      b.config.CashSymbol,
		InitialCapital:  b.config.InitialCapital,
		Summary:         result.Summary,
		TotalFees:       totalFees,
		TradesByProduct: result.TradesByProduct,
		Steps:           totalSteps,
		PricesPath:      b.pricesPath,
		SignalsPath:     result.SignalsPath,
		ResultsPath:     resultsPath,
		TradesPath:      tradesPath,
		StepsPath:       stepsPath,
	}

	if err := types.WriteRunStats(filepath.Join(result.ResultFolder, statsFileName), runStats); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write stats", err)
	}

	return state.Cleanup()
}

func writeResultRows(path string, rows []types.ResultRow) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to write %s", path)
	}

	return nil
}

// logger returns the engine logger, falling back to a no-op logger before Initialize.
func (b *BacktestEngineV1) logger() *logger.Logger {
	if b.log == nil {
		return logger.NewNopLogger()
	}

	return b.log
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if b.pricesPath == "" {
		b.log.Error("No prices path set")

		return errors.New(errors.ErrCodeMissingParameter, "no prices path set")
	}

	if len(b.signalsPaths) == 0 {
		b.log.Error("No signal files loaded")

		return errors.New(errors.ErrCodeMissingParameter, "no signal files loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeMissingParameter, "no results folder set")
	}

	return nil
}
