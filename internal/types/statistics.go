package types

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary holds the headline statistics of one backtest run.
type Summary struct {
	FinalValue  float64 `yaml:"final_value" json:"final_value"`
	TotalTrades int     `yaml:"total_trades" json:"total_trades"`
	// MaxDrawdown is the deepest peak-to-trough decline in percent (<= 0).
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// Volatility is the annualized standard deviation of per-step returns.
	Volatility float64 `yaml:"volatility" json:"volatility"`
	Sharpe     float64 `yaml:"sharpe" json:"sharpe"`
}

// RunStats is the stats.yaml document written for every run.
type RunStats struct {
	ID              string         `yaml:"id" json:"id"`
	Timestamp       time.Time      `yaml:"timestamp" json:"timestamp"`
	CashSymbol      string         `yaml:"cash_symbol" json:"cash_symbol"`
	InitialCapital  float64        `yaml:"initial_capital" json:"initial_capital"`
	Summary         Summary        `yaml:"summary" json:"summary"`
	TotalFees       float64        `yaml:"total_fees" json:"total_fees"`
	TradesByProduct map[string]int `yaml:"trades_by_product" json:"trades_by_product"`
	Steps           int            `yaml:"steps" json:"steps"`
	PricesPath      string         `yaml:"prices_path" json:"prices_path"`
	SignalsPath     string         `yaml:"signals_path" json:"signals_path"`
	ResultsPath     string         `yaml:"results_path" json:"results_path"`
	TradesPath      string         `yaml:"trades_file_path" json:"trades_file_path"`
	StepsPath       string         `yaml:"steps_file_path" json:"steps_file_path"`
}

// WriteRunStats writes the stats to a YAML file.
func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

// ReadRunStats reads a stats.yaml file written by WriteRunStats.
func ReadRunStats(path string) (RunStats, error) {
	var stats RunStats

	data, err := os.ReadFile(path)
	if err != nil {
		return stats, fmt.Errorf("failed to read run stats: %w", err)
	}

	if err := yaml.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return stats, nil
}

// FormatSummary renders the summary as one "metric: value" line per statistic.
func FormatSummary(summary Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "final_value: %.6f\n", summary.FinalValue)
	fmt.Fprintf(&b, "total_trades: %d\n", summary.TotalTrades)
	fmt.Fprintf(&b, "max_drawdown: %.3f\n", summary.MaxDrawdown)
	fmt.Fprintf(&b, "volatility: %.6f\n", summary.Volatility)
	fmt.Fprintf(&b, "sharpe: %.6f\n", summary.Sharpe)

	return b.String()
}

// WriteSummary writes the text summary file.
func WriteSummary(path string, summary Summary) error {
	if err := os.WriteFile(path, []byte(FormatSummary(summary)), 0644); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	return nil
}
