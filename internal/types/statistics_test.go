package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "statistics_test")
	suite.NoError(err)
	suite.tempDir = tempDir
}

func (suite *StatisticsTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *StatisticsTestSuite) TestWriteAndReadRunStats() {
	stats := RunStats{
		ID:             "run-1",
		Timestamp:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		CashSymbol:     "ORBS",
		InitialCapital: 1000,
		Summary: Summary{
			FinalValue:  1100,
			TotalTrades: 2,
			MaxDrawdown: -9.090909,
			Volatility:  1.5,
			Sharpe:      0.75,
		},
		TotalFees:   2.5,
		Steps:       3,
		SignalsPath: "signals.csv",
	}

	filePath := filepath.Join(suite.tempDir, "stats.yaml")
	suite.Require().NoError(WriteRunStats(filePath, stats))

	read, err := ReadRunStats(filePath)
	suite.Require().NoError(err)
	suite.Equal(stats.ID, read.ID)
	suite.True(stats.Timestamp.Equal(read.Timestamp))
	suite.Equal(stats.Summary, read.Summary)
	suite.Equal(stats.TotalFees, read.TotalFees)
	suite.Equal("signals.csv", read.SignalsPath)
}

func (suite *StatisticsTestSuite) TestWriteRunStatsInvalidPath() {
	err := WriteRunStats(filepath.Join(suite.tempDir, "missing", "stats.yaml"), RunStats{})
	suite.Error(err)
}

func (suite *StatisticsTestSuite) TestFormatSummary() {
	summary := Summary{FinalValue: 1100, TotalTrades: 2, MaxDrawdown: -9.0909, Volatility: 0.5, Sharpe: 1.25}

	expected := "final_value: 1100.000000\n" +
		"total_trades: 2\n" +
		"max_drawdown: -9.091\n" +
		"volatility: 0.500000\n" +
		"sharpe: 1.250000\n"
	suite.Equal(expected, FormatSummary(summary))

	path := filepath.Join(suite.tempDir, "summary.txt")
	suite.Require().NoError(WriteSummary(path, summary))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Equal(expected, string(data))
}
