// Package forwardbias detects strategies whose signals depend on future prices.
//
// A strategy is an external command that reads a price CSV (--input) and writes a
// signal CSV (--output). The checker runs it on the full price file and on
// growing prefixes of it. A strategy without forward bias produces the same
// signals for a prefix as the full run does for the same rows; only the last few
// rows of a prefix may differ, which the buffer allows for.
package forwardbias

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-rotation/internal/logger"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultPrecision   = 100
	DefaultBuffer      = 5
	DefaultInterpreter = "python3"

	// firstCheckpoint is the shortest prefix handed to the strategy
	firstCheckpoint = 10
)

// Config configures a Checker.
type Config struct {
	// StrategyPath is the strategy script or executable.
	StrategyPath string
	// Interpreter runs the strategy (e.g. python3). Empty runs StrategyPath directly.
	Interpreter string
	// Precision is the approximate number of checkpoints.
	Precision int
	// Buffer is the number of trailing prefix rows excluded from the comparison.
	Buffer int
}

// ProgressCallback is called after every checked prefix.
type ProgressCallback func(current int, total int) error

// Result is the outcome of a forward bias check.
type Result struct {
	Biased bool
	// Index is the prefix length at which the signals first disagreed.
	Index       int
	Checkpoints int
	// Full holds the full run's signals for the first Index rows and Partial the
	// signals of the disagreeing prefix run. Both are empty when no bias is found.
	Full    []types.SignalRow
	Partial []types.SignalRow
}

type Checker struct {
	config Config
	log    *logger.Logger
}

func NewChecker(config Config, log *logger.Logger) (*Checker, error) {
	if config.StrategyPath == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "strategy path is required")
	}

	if _, err := os.Stat(config.StrategyPath); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "strategy %s not found", config.StrategyPath)
	}

	if config.Precision <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "precision must be positive, got %d", config.Precision)
	}

	if config.Buffer < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "buffer must not be negative, got %d", config.Buffer)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Checker{config: config, log: log}, nil
}

// Checkpoints returns the prefix lengths checked for a series of n rows:
// 10, 10+step, ... below n with step = max(1, n/precision).
func Checkpoints(n int, precision int) []int {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	step := max(1, n/precision)

	checkpoints := []int{}
	for i := firstCheckpoint; i < n; i += step {
		checkpoints = append(checkpoints, i)
	}

	return checkpoints
}

// Check runs the strategy on the full price file and on every checkpoint prefix.
// It stops at the first prefix whose signals disagree with the full run.
func (c *Checker) Check(ctx context.Context, pricesPath string, onProgress ProgressCallback) (Result, error) {
	header, records, err := readPriceRecords(pricesPath)
	if err != nil {
		return Result{}, err
	}

	workDir, err := os.MkdirTemp("", "forwardbias-*")
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeWriteFailed, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	full, err := c.runPrefix(ctx, workDir, "full", header, records)
	if err != nil {
		return Result{}, err
	}

	checkpoints := Checkpoints(len(records), c.config.Precision)
	result := Result{Checkpoints: len(checkpoints)}

	c.log.Debug("Forward bias check started",
		zap.String("strategy", c.config.StrategyPath),
		zap.Int("rows", len(records)),
		zap.Int("checkpoints", len(checkpoints)),
	)

	for n, i := range checkpoints {
		partial, err := c.runPrefix(ctx, workDir, fmt.Sprintf("partial_%d", i), header, records[:i])
		if err != nil {
			return Result{}, err
		}

		if !signalsEqual(head(full, i-c.config.Buffer), head(partial, i-c.config.Buffer)) {
			result.Biased = true
			result.Index = i
			result.Full = head(full, i)
			result.Partial = partial

			c.log.Info("Forward bias detected",
				zap.String("strategy", c.config.StrategyPath),
				zap.Int("index", i),
			)

			return result, nil
		}

		if onProgress != nil {
			if err := onProgress(n+1, len(checkpoints)); err != nil {
				return Result{}, errors.Wrap(errors.ErrCodeCallbackFailed, "progress callback failed", err)
			}
		}
	}

	return result, nil
}

// runPrefix writes the rows to <name>.csv, runs the strategy on it and reads the
// signals it wrote to <name>_out.csv.
func (c *Checker) runPrefix(ctx context.Context, workDir string, name string, header []string, records [][]string) ([]types.SignalRow, error) {
	input := filepath.Join(workDir, name+".csv")
	output := filepath.Join(workDir, name+"_out.csv")

	if err := writePriceRecords(input, header, records); err != nil {
		return nil, err
	}

	if err := c.runStrategy(ctx, input, output); err != nil {
		return nil, err
	}

	return datasource.ReadSignals(output)
}

func (c *Checker) runStrategy(ctx context.Context, input string, output string) error {
	args := []string{"--input", input, "--output", output}

	var cmd *exec.Cmd
	if c.config.Interpreter == "" {
		cmd = exec.CommandContext(ctx, c.config.StrategyPath, args...)
	} else {
		cmd = exec.CommandContext(ctx, c.config.Interpreter, append([]string{c.config.StrategyPath}, args...)...)
	}

	// stdout is discarded, stderr is kept for the error
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return errors.Wrapf(errors.ErrCodeStrategyFailed, err, "strategy failed on %s: %s",
			filepath.Base(input), strings.TrimSpace(stderr.String()))
	}

	return nil
}

func readPriceRecords(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "prices file %s", path)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeMalformedInput, "failed to read prices", err)
	}

	if len(records) == 0 {
		return nil, nil, errors.New(errors.ErrCodeMalformedInput, "prices file is empty")
	}

	return records[0], records[1:], nil
}

func writePriceRecords(path string, header []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write header", err)
	}

	if err := writer.WriteAll(records); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to write prices", err)
	}

	return nil
}

// head returns at most the first n rows.
func head(rows []types.SignalRow, n int) []types.SignalRow {
	if n < 0 {
		n = 0
	}

	if n > len(rows) {
		n = len(rows)
	}

	return rows[:n]
}

func signalsEqual(a []types.SignalRow, b []types.SignalRow) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].Timestamp != b[i].Timestamp || strings.TrimSpace(a[i].Signal) != strings.TrimSpace(b[i].Signal) {
			return false
		}
	}

	return true
}
