package stats

import (
	"math"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type EvaluatorTestSuite struct {
	suite.Suite
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorTestSuite))
}

func (suite *EvaluatorTestSuite) TestDefaultPeriodsPerYear() {
	suite.Equal(252, NewEvaluator(nil, optional.None[int]()).PeriodsPerYear())
	suite.Equal(252, NewEvaluator(nil, optional.Some(0)).PeriodsPerYear())
	suite.Equal(12, NewEvaluator(nil, optional.Some(12)).PeriodsPerYear())
}

func (suite *EvaluatorTestSuite) TestReturns() {
	evaluator := NewEvaluator([]float64{100, 110, 99, 0, 10}, optional.None[int]())
	returns := evaluator.Returns()

	suite.Require().Len(returns, 5)
	suite.Equal(0.0, returns[0])
	suite.InDelta(0.1, returns[1], 1e-12)
	suite.InDelta(-0.1, returns[2], 1e-12)
	suite.InDelta(-1.0, returns[3], 1e-12)
	suite.Equal(0.0, returns[4])
}

func (suite *EvaluatorTestSuite) TestFinalValue() {
	value, err := NewEvaluator([]float64{1000, 1100}, optional.None[int]()).FinalValue()
	suite.NoError(err)
	suite.Equal(1100.0, value)

	_, err = NewEvaluator(nil, optional.None[int]()).FinalValue()
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *EvaluatorTestSuite) TestFlatSeries() {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 1000
	}

	evaluator := NewEvaluator(values, optional.None[int]())
	suite.Equal(0.0, evaluator.Volatility())
	suite.Equal(0.0, evaluator.Sharpe(0))
	suite.Equal(0.0, evaluator.Sharpe(0.05))
	suite.Equal(0.0, evaluator.MaxDrawdown())
	suite.False(math.IsNaN(evaluator.Sharpe(0)))
}

func (suite *EvaluatorTestSuite) TestMaxDrawdownFromPreDropPeak() {
	// rise to 200, drop 50% to 100, recover above the old peak
	values := []float64{100, 150, 200, 100, 180, 300, 290}
	evaluator := NewEvaluator(values, optional.None[int]())

	suite.InDelta(-50.0, evaluator.MaxDrawdown(), 1e-9)
}

func (suite *EvaluatorTestSuite) TestMaxDrawdownEdgeCases() {
	suite.Equal(0.0, NewEvaluator(nil, optional.None[int]()).MaxDrawdown())
	suite.Equal(0.0, NewEvaluator([]float64{1, 2, 3}, optional.None[int]()).MaxDrawdown())
	suite.Equal(0.0, NewEvaluator([]float64{0, 0}, optional.None[int]()).MaxDrawdown())
	suite.InDelta(-25.0, NewEvaluator([]float64{4, 3}, optional.None[int]()).MaxDrawdown(), 1e-9)
}

func (suite *EvaluatorTestSuite) TestVolatility() {
	// returns: 0, 0.1, -0.1 -> mean 0, population variance 0.02/3
	evaluator := NewEvaluator([]float64{100, 110, 99}, optional.Some(4))
	expected := math.Sqrt(0.02/3) * 2

	suite.InDelta(expected, evaluator.Volatility(), 1e-12)
}

func (suite *EvaluatorTestSuite) TestSharpe() {
	values := []float64{100, 110, 121, 121}
	evaluator := NewEvaluator(values, optional.None[int]())

	// returns: 0, 0.1, 0.1, 0 -> mean 0.05, population std 0.05
	suite.InDelta(math.Sqrt(252), evaluator.Sharpe(0), 1e-9)

	rf := 0.03
	perPeriod := math.Pow(1+rf, 1.0/252) - 1
	suite.InDelta((0.05-perPeriod)/0.05*math.Sqrt(252), evaluator.Sharpe(rf), 1e-9)
}

func (suite *EvaluatorTestSuite) TestSharpeNearZeroStdTolerance() {
	// returns 0, 0, r: mean r/3 and population std r*sqrt(2)/3, so mean/std is 1/sqrt(2)
	below := NewEvaluator([]float64{1000, 1000, 1000 * (1 + 1e-14)}, optional.None[int]())
	suite.Less(populationStdDev(below.Returns()), zeroStdTolerance)
	suite.Equal(0.0, below.Sharpe(0))

	above := NewEvaluator([]float64{1000, 1000, 1000 * (1 + 1e-9)}, optional.None[int]())
	suite.Greater(populationStdDev(above.Returns()), zeroStdTolerance)
	suite.InDelta(math.Sqrt(252)/math.Sqrt2, above.Sharpe(0), 1e-3)
}

func (suite *EvaluatorTestSuite) TestSharpeSingleValue() {
	suite.Equal(0.0, NewEvaluator([]float64{1000}, optional.None[int]()).Sharpe(0.02))
	suite.Equal(0.0, NewEvaluator(nil, optional.None[int]()).Sharpe(0.02))
}

func (suite *EvaluatorTestSuite) TestSummary() {
	evaluator := NewEvaluator([]float64{1000, 1100, 990, 1100}, optional.None[int]())

	summary, err := evaluator.Summary(4, 0)
	suite.Require().NoError(err)
	suite.Equal(1100.0, summary.FinalValue)
	suite.Equal(4, summary.TotalTrades)
	suite.InDelta(-10.0, summary.MaxDrawdown, 1e-9)
	suite.Equal(evaluator.Volatility(), summary.Volatility)
	suite.Equal(evaluator.Sharpe(0), summary.Sharpe)

	_, err = NewEvaluator(nil, optional.None[int]()).Summary(0, 0)
	suite.Error(err)
}

func (suite *EvaluatorTestSuite) TestInputIsNotMutated() {
	values := []float64{1, 2, 3}
	evaluator := NewEvaluator(values, optional.None[int]())
	values[2] = 100

	value, err := evaluator.FinalValue()
	suite.NoError(err)
	suite.Equal(3.0, value)

	returns := evaluator.Returns()
	returns[1] = 42
	suite.InDelta(1.0, evaluator.Returns()[1], 1e-12)
}
