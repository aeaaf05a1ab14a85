package evaluate

import (
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// PlaceholderModel is stored until real forecasting models exist
const PlaceholderModel = "placeholder"

// Results are the rows written for one (run, model)
type Results struct {
	Metrics types.ModelMetrics
	Points  []types.TimeseriesPoint
}

// Placeholder predicts zero return and zero volatility and holds no
// position. Errors are still measured against the actual log returns.
func Placeholder(runID string, series types.CanonicalSeries) Results {
	n := series.Len()
	actual := make([]float64, n)
	zeros := make([]float64, n)
	for i, row := range series.Rows {
		actual[i] = row.LogReturn
	}

	strategy := make([]float64, n)
	for i := range strategy {
		strategy[i] = zeros[i] * actual[i]
	}
	equity := EquityCurve(strategy)
	drawdowns := Drawdowns(equity)

	points := make([]types.TimeseriesPoint, n)
	for i, row := range series.Rows {
		points[i] = types.TimeseriesPoint{
			RunID:           runID,
			ModelName:       PlaceholderModel,
			Timestamp:       row.Date,
			ActualReturn:    actual[i],
			PredictedReturn: zeros[i],
			PredictedVol:    zeros[i],
			Position:        zeros[i],
			StrategyReturn:  strategy[i],
			Equity:          equity[i],
			Drawdown:        drawdowns[i],
		}
	}

	perf := Evaluate(actual, zeros, strategy)
	return Results{
		Metrics: types.ModelMetrics{
			RunID:       runID,
			ModelName:   PlaceholderModel,
			MAE:         perf.MAE,
			MSE:         perf.MSE,
			AnnReturn:   perf.AnnReturn,
			AnnVol:      perf.AnnVol,
			Sharpe:      perf.Sharpe,
			MaxDrawdown: perf.MaxDrawdown,
			VaR:         perf.VaR,
			CVaR:        perf.CVaR,
			Metadata: map[string]interface{}{
				"ticker":       series.Ticker,
				"observations": n,
				"placeholder":  true,
			},
		},
		Points: points,
	}
}
