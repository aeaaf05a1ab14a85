package evaluate

import (
	"math"
	"sort"
)

const (
	tradingDays     = 252
	confidenceLevel = 0.95
)

// Performance holds the scalar metrics stored per model
type Performance struct {
	MAE         float64
	MSE         float64
	AnnReturn   float64
	AnnVol      float64
	Sharpe      float64
	MaxDrawdown float64
	VaR         float64
	CVaR        float64
}

// MAE is the mean absolute error of predicted against actual
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// MSE is the mean squared error of predicted against actual
func MSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// AnnualizedReturn is the mean daily return times 252
func AnnualizedReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	return sum / float64(len(returns)) * tradingDays
}

// AnnualizedVolatility is the sample standard deviation times sqrt(252)
func AnnualizedVolatility(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	var sq float64
	for _, r := range returns {
		sq += (r - mean) * (r - mean)
	}
	return math.Sqrt(sq/float64(n-1)) * math.Sqrt(tradingDays)
}

// Sharpe is annualized return over annualized volatility, 0 when flat
func Sharpe(returns []float64) float64 {
	vol := AnnualizedVolatility(returns)
	if vol == 0 {
		return 0
	}
	return AnnualizedReturn(returns) / vol
}

// EquityCurve compounds log returns from 1
func EquityCurve(logReturns []float64) []float64 {
	equity := make([]float64, len(logReturns))
	level := 1.0
	for i, r := range logReturns {
		level *= math.Exp(r)
		equity[i] = level
	}
	return equity
}

// Drawdowns returns the fractional distance below the running peak (<= 0)
func Drawdowns(equity []float64) []float64 {
	dd := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd[i] = v/peak - 1
		}
	}
	return dd
}

// MaxDrawdown is the most negative drawdown
func MaxDrawdown(equity []float64) float64 {
	worst := 0.0
	for _, d := range Drawdowns(equity) {
		if d < worst {
			worst = d
		}
	}
	return worst
}

// HistoricalVaR is the 5th percentile of returns at 95% confidence
func HistoricalVaR(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor((1 - confidenceLevel) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// HistoricalCVaR is the mean of returns at or below the VaR
func HistoricalCVaR(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	v := HistoricalVaR(returns)
	var sum float64
	var n int
	for _, r := range returns {
		if r <= v {
			sum += r
			n++
		}
	}
	return sum / float64(n)
}

// Evaluate computes forecast errors and strategy statistics
func Evaluate(actual, predicted, strategy []float64) Performance {
	equity := EquityCurve(strategy)
	return Performance{
		MAE:         MAE(actual, predicted),
		MSE:         MSE(actual, predicted),
		AnnReturn:   AnnualizedReturn(strategy),
		AnnVol:      AnnualizedVolatility(strategy),
		Sharpe:      Sharpe(strategy),
		MaxDrawdown: MaxDrawdown(equity),
		VaR:         HistoricalVaR(strategy),
		CVaR:        HistoricalCVaR(strategy),
	}
}
