package stats

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-rotation/internal/types"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
)

// DefaultPeriodsPerYear annualizes daily series.
const DefaultPeriodsPerYear = 252

// zeroStdTolerance treats a standard deviation below it as zero, so a constant
// excess-return series yields a Sharpe ratio of 0 rather than noise.
const zeroStdTolerance = 1e-12

// Evaluator computes summary statistics over a portfolio valuation series.
// It never mutates its input.
type Evaluator struct {
	values         []float64
	returns        []float64
	periodsPerYear int
}

// NewEvaluator creates an evaluator. A missing or non-positive periodsPerYear
// falls back to DefaultPeriodsPerYear.
func NewEvaluator(values []float64, periodsPerYear optional.Option[int]) *Evaluator {
	ppy := DefaultPeriodsPerYear
	if periodsPerYear.IsSome() && periodsPerYear.Unwrap() > 0 {
		ppy = periodsPerYear.Unwrap()
	}

	copied := make([]float64, len(values))
	copy(copied, values)

	return &Evaluator{
		values:         copied,
		returns:        simpleReturns(copied),
		periodsPerYear: ppy,
	}
}

// simpleReturns returns per-step percentage changes with the first element set to 0.
// A step from a zero value has a return of 0.
func simpleReturns(values []float64) []float64 {
	returns := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}

		returns[i] = values[i]/values[i-1] - 1
	}

	return returns
}

// PeriodsPerYear returns the annualization factor in use.
func (e *Evaluator) PeriodsPerYear() int {
	return e.periodsPerYear
}

// Returns returns a copy of the per-step simple returns.
func (e *Evaluator) Returns() []float64 {
	returns := make([]float64, len(e.returns))
	copy(returns, e.returns)

	return returns
}

// FinalValue returns the last value of the series.
func (e *Evaluator) FinalValue() (float64, error) {
	if len(e.values) == 0 {
		return 0, errors.NewInsufficientDataError(1, 0, "portfolio_value", "valuation series is empty")
	}

	return e.values[len(e.values)-1], nil
}

// TotalTrades passes the portfolio trade count through.
func (e *Evaluator) TotalTrades(tradeCount int) int {
	return tradeCount
}

// MaxDrawdown returns the deepest decline from a running peak, in percent.
// The result is 0 or negative. Non-positive peaks are skipped.
func (e *Evaluator) MaxDrawdown() float64 {
	if len(e.values) == 0 {
		return 0
	}

	peak := e.values[0]
	worst := 0.0

	for _, v := range e.values {
		if v > peak {
			peak = v
		}

		if peak <= 0 {
			continue
		}

		drawdown := (v - peak) / peak
		if drawdown < worst {
			worst = drawdown
		}
	}

	return worst * 100
}

// Volatility returns the annualized population standard deviation of the returns.
func (e *Evaluator) Volatility() float64 {
	return populationStdDev(e.returns) * math.Sqrt(float64(e.periodsPerYear))
}

// Sharpe returns the annualized Sharpe ratio for an annual risk-free rate.
// The rate is converted to a per-period rate by geometric compounding. A series
// whose excess returns do not vary has a ratio of 0.
func (e *Evaluator) Sharpe(riskFreeRate float64) float64 {
	if len(e.returns) == 0 {
		return 0
	}

	ppy := float64(e.periodsPerYear)
	perPeriod := math.Pow(1+riskFreeRate, 1/ppy) - 1

	excess := make([]float64, len(e.returns))
	for i, r := range e.returns {
		excess[i] = r - perPeriod
	}

	std := populationStdDev(excess)
	if std < zeroStdTolerance {
		return 0
	}

	return mean(excess) / std * math.Sqrt(ppy)
}

// Summary computes every statistic at once.
func (e *Evaluator) Summary(tradeCount int, riskFreeRate float64) (types.Summary, error) {
	finalValue, err := e.FinalValue()
	if err != nil {
		return types.Summary{}, err
	}

	return types.Summary{
		FinalValue:  finalValue,
		TotalTrades: e.TotalTrades(tradeCount),
		MaxDrawdown: e.MaxDrawdown(),
		Volatility:  e.Volatility(),
		Sharpe:      e.Sharpe(riskFreeRate),
	}, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	m := mean(values)
	sum := 0.0

	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)))
}
