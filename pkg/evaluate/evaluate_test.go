package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

func TestErrors(t *testing.T) {
	actual := []float64{0.01, -0.02, 0.03}
	zeros := []float64{0, 0, 0}

	assert.InDelta(t, 0.02, MAE(actual, zeros), 1e-12)
	assert.InDelta(t, (0.0001+0.0004+0.0009)/3, MSE(actual, zeros), 1e-12)
	assert.Zero(t, MAE(nil, nil))
}

func TestAnnualized(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01}
	assert.InDelta(t, 2.52, AnnualizedReturn(returns), 1e-12)
	assert.InDelta(t, 0, AnnualizedVolatility(returns), 1e-12)
	assert.Zero(t, Sharpe(returns))

	returns = []float64{0.01, -0.01}
	assert.InDelta(t, math.Sqrt(0.0002)*math.Sqrt(252), AnnualizedVolatility(returns), 1e-12)
}

func TestDrawdown(t *testing.T) {
	equity := []float64{1, 1.2, 0.9, 1.3, 1.04}
	dd := Drawdowns(equity)

	assert.InDelta(t, -0.25, dd[2], 1e-12)
	assert.InDelta(t, -0.2, dd[4], 1e-12)
	assert.InDelta(t, -0.25, MaxDrawdown(equity), 1e-12)
}

func TestVaR(t *testing.T) {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = float64(i-50) / 1000
	}

	assert.InDelta(t, -0.045, HistoricalVaR(returns), 1e-12)
	assert.InDelta(t, -0.0475, HistoricalCVaR(returns), 1e-12)
}

func TestPlaceholder(t *testing.T) {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	series := types.CanonicalSeries{Ticker: "TEST"}
	for i, r := range []float64{0.01, -0.03, 0.02} {
		series.Rows = append(series.Rows, types.CanonicalRow{
			Bar:       types.Bar{Date: base.AddDate(0, 0, i), Close: 10},
			LogReturn: r,
		})
	}

	res := Placeholder("run-1", series)

	require.Len(t, res.Points, 3)
	for i, p := range res.Points {
		assert.Equal(t, "run-1", p.RunID)
		assert.Equal(t, PlaceholderModel, p.ModelName)
		assert.Equal(t, series.Rows[i].Date, p.Timestamp)
		assert.Equal(t, series.Rows[i].LogReturn, p.ActualReturn)
		assert.Zero(t, p.PredictedReturn)
		assert.Zero(t, p.StrategyReturn)
		assert.Equal(t, 1.0, p.Equity)
		assert.Zero(t, p.Drawdown)
	}

	m := res.Metrics
	assert.InDelta(t, 0.02, m.MAE, 1e-12)
	assert.Zero(t, m.AnnReturn)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.MaxDrawdown)
	assert.Equal(t, "TEST", m.Metadata["ticker"])
}
