package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

// flagOverrides maps CLI flags to the config keys they replace.
var flagOverrides = map[string]string{
	"initial_capital":  "initial_capital",
	"tx_cost":          "transaction_cost",
	"cash_symbol":      "cash_symbol",
	"risk_free":        "risk_free_rate",
	"periods_per_year": "periods_per_year",
	"max_parallel":     "max_parallel",
}

// printSchema runs before required flags are checked, so --schema works on its own.
func printSchema(_ context.Context, _ *cli.Command, enabled bool) error {
	if !enabled {
		return nil
	}

	schema, err := engine_v1.NewBacktestEngineV1().GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return cli.Exit("", 0)
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	backtester := engine_v1.NewBacktestEngineV1()

	level := zapcore.InfoLevel
	if cmd.Bool("log") {
		level = zapcore.DebugLevel
	}

	backtestLog, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer backtestLog.Sync() //nolint:errcheck

	backtester.SetLogger(backtestLog)

	overrides := map[string]any{}

	for flag, key := range flagOverrides {
		if !cmd.IsSet(flag) {
			continue
		}

		switch flag {
		case "cash_symbol":
			overrides[key] = cmd.String(flag)
		case "periods_per_year", "max_parallel":
			overrides[key] = int(cmd.Int(flag))
		default:
			overrides[key] = cmd.Float(flag)
		}
	}

	config, err := buildConfig(cmd.String("config"), overrides)
	if err != nil {
		return err
	}

	if err := backtester.Initialize(config); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetPricesPath(cmd.String("prices")); err != nil {
		return err
	}

	if err := backtester.SetSignalsPath(cmd.String("signals")); err != nil {
		return err
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnBacktestStartCallback(func(totalRuns int, totalDataPoints int) error {
		bar = progressbar.Default(int64(totalRuns*totalDataPoints), "backtesting")

		return nil
	})
	onProcess := engine.OnProcessDataCallback(func(current int, total int) error {
		return bar.Add(1)
	})
	onEnd := engine.OnBacktestEndCallback(func(err error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	if err := backtester.Run(ctx, engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnProcessData:   &onProcess,
		OnBacktestEnd:   &onEnd,
	}); err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	for _, result := range backtester.GetResults() {
		fmt.Printf("\n%s -> %s\n", filepath.Base(result.SignalsPath), result.ResultFolder)
		fmt.Print(types.FormatSummary(result.Summary))
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Backtest rotation signals against a price series",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "prices",
				Usage:    "Path to the prices CSV or Parquet file",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signals",
				Usage:    "Path or glob pattern of signal CSV files",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a backtest config YAML file",
			},
			&cli.FloatFlag{
				Name:  "initial_capital",
				Usage: "Initial capital in cash units",
				Value: engine_v1.DefaultInitialCapital,
			},
			&cli.FloatFlag{
				Name:  "tx_cost",
				Usage: "Transaction cost as a fraction of each leg (e.g. 0.001)",
				Value: 0,
			},
			&cli.StringFlag{
				Name:  "cash_symbol",
				Usage: "Symbol representing cash",
				Value: engine_v1.DefaultCashSymbol,
			},
			&cli.FloatFlag{
				Name:  "risk_free",
				Usage: "Annual risk-free rate for the Sharpe ratio",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "periods_per_year",
				Usage: "Periods per year used to annualize volatility and Sharpe",
			},
			&cli.IntFlag{
				Name:  "max_parallel",
				Usage: "Number of signal files backtested concurrently",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "results",
				Usage: "Results output directory",
				Value: "results",
			},
			&cli.BoolFlag{
				Name:  "log",
				Usage: "Log every trade",
			},
			&cli.BoolFlag{
				Name:   "schema",
				Usage:  "Print the config JSON schema and exit",
				Action: printSchema,
			},
		},
		Action: backtestAction,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
