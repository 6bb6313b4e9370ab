package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rxtech-lab/argo-rotation/internal/forwardbias"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// tailRows is the number of signal rows printed for each side of a bias report.
const tailRows = 10

func forwardBiasAction(ctx context.Context, cmd *cli.Command) error {
	checkLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer checkLog.Sync() //nolint:errcheck

	checker, err := forwardbias.NewChecker(forwardbias.Config{
		StrategyPath: cmd.String("strategy"),
		Interpreter:  cmd.String("interpreter"),
		Precision:    int(cmd.Int("precision")),
		Buffer:       int(cmd.Int("buffer")),
	}, checkLog)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	result, err := checker.Check(ctx, cmd.String("prices"), func(current int, total int) error {
		if bar == nil {
			bar = progressbar.Default(int64(total), "forward bias check")
		}

		return bar.Set(current)
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	if !result.Biased {
		fmt.Println("No forward bias detected.")

		return nil
	}

	fmt.Printf("\nForward bias detected at index %d\n", result.Index)
	fmt.Println("Partial signals:")
	printTail(result.Partial)
	fmt.Println("Full signals:")
	printTail(result.Full)

	return cli.Exit("forward bias detected", 1)
}

func printTail(rows []types.SignalRow) {
	start := max(0, len(rows)-tailRows)
	for i := start; i < len(rows); i++ {
		fmt.Printf("%6d  %d  %s\n", i, rows[i].Timestamp, rows[i].Signal)
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "forwardbias",
		Usage: "Check a signal strategy for forward bias",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "strategy",
				Usage:    "Path to the strategy script",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "prices",
				Usage:    "Path to the prices CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "interpreter",
				Usage: "Command that runs the strategy; empty runs the strategy directly",
				Value: forwardbias.DefaultInterpreter,
			},
			&cli.IntFlag{
				Name:  "precision",
				Usage: "Number of checkpoints",
				Value: forwardbias.DefaultPrecision,
			},
			&cli.IntFlag{
				Name:  "buffer",
				Usage: "Trailing rows of each partial run excluded from the comparison",
				Value: forwardbias.DefaultBuffer,
			},
		},
		Action: forwardBiasAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
