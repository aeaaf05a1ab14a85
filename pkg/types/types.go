package types

import (
	"time"
)

// DateLayout is the calendar date form used across providers and stores.
const DateLayout = "2006-01-02"

// Bar is one calendar day's OHLCV observation for a ticker
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	AdjClose *float64  `json:"adj_close,omitempty"`
}

// RawSeries is a provider response normalized into bars. Bars may be unsorted
// and may contain duplicate dates or non-positive prices.
type RawSeries struct {
	Ticker      string
	Bars        []Bar
	HasAdjClose bool
}

// Len returns the number of bars
func (s RawSeries) Len() int { return len(s.Bars) }

// CanonicalRow is a cleaned bar with its derived features
type CanonicalRow struct {
	Bar
	LogReturn   float64 `json:"log_return"`
	RealizedVol float64 `json:"realized_vol"`
}

// CanonicalSeries is a business-day aligned series with features defined on every row
type CanonicalSeries struct {
	Ticker      string
	Rows        []CanonicalRow
	HasAdjClose bool
}

// Len returns the number of rows
func (s CanonicalSeries) Len() int { return len(s.Rows) }

// Bars strips the derived features
func (s CanonicalSeries) Bars() RawSeries {
	bars := make([]Bar, len(s.Rows))
	for i, row := range s.Rows {
		bars[i] = row.Bar
	}
	return RawSeries{Ticker: s.Ticker, Bars: bars, HasAdjClose: s.HasAdjClose}
}

// Float returns a pointer to v, used for optional columns
func Float(v float64) *float64 { return &v }

// RunStatus is the lifecycle state of a run record
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunConfig is the configuration row of a run
type RunConfig struct {
	RunID     string                 `json:"id" dynamodbav:"run_id" gorm:"column:id;primaryKey"`
	Ticker    string                 `json:"ticker" dynamodbav:"ticker" gorm:"column:ticker"`
	StartDate string                 `json:"start_date" dynamodbav:"start_date" gorm:"column:start_date"`
	EndDate   string                 `json:"end_date" dynamodbav:"end_date" gorm:"column:end_date"`
	Frequency string                 `json:"frequency" dynamodbav:"frequency" gorm:"column:frequency"`
	Config    map[string]interface{} `json:"config" dynamodbav:"config" gorm:"column:config;serializer:json"`
}

// Source returns the provider selector stored in the run config, or def
func (c RunConfig) Source(def string) string {
	if c.Config == nil {
		return def
	}
	if v, ok := c.Config["source"].(string); ok && v != "" {
		return v
	}
	return def
}

// StatusUpdate holds the mutable status fields of a run record
type StatusUpdate struct {
	Status       RunStatus `json:"status" dynamodbav:"status"`
	ProgressStep string    `json:"progress_step" dynamodbav:"progress_step"`
	ProgressPct  int       `json:"progress_pct" dynamodbav:"progress_pct"`
	ErrorMessage *string   `json:"error_message" dynamodbav:"error_message"`
}

// ModelMetrics is one row per (run, model) of scalar performance metrics
type ModelMetrics struct {
	RunID       string                 `json:"run_id" dynamodbav:"run_id" gorm:"column:run_id;primaryKey"`
	ModelName   string                 `json:"model_name" dynamodbav:"model_name" gorm:"column:model_name;primaryKey"`
	MAE         float64                `json:"mae" dynamodbav:"mae" gorm:"column:mae"`
	MSE         float64                `json:"mse" dynamodbav:"mse" gorm:"column:mse"`
	AnnReturn   float64                `json:"annualized_return" dynamodbav:"annualized_return" gorm:"column:annualized_return"`
	AnnVol      float64                `json:"annualized_volatility" dynamodbav:"annualized_volatility" gorm:"column:annualized_volatility"`
	Sharpe      float64                `json:"sharpe_ratio" dynamodbav:"sharpe_ratio" gorm:"column:sharpe_ratio"`
	MaxDrawdown float64                `json:"max_drawdown" dynamodbav:"max_drawdown" gorm:"column:max_drawdown"`
	VaR         float64                `json:"var_95" dynamodbav:"var_95" gorm:"column:var_95"`
	CVaR        float64                `json:"cvar_95" dynamodbav:"cvar_95" gorm:"column:cvar_95"`
	Metadata    map[string]interface{} `json:"metadata" dynamodbav:"metadata" gorm:"column:metadata;serializer:json"`
}

// TimeseriesPoint is one row per (run, model, timestamp)
type TimeseriesPoint struct {
	RunID           string    `json:"run_id" dynamodbav:"run_id" gorm:"column:run_id;primaryKey"`
	ModelName       string    `json:"model_name" dynamodbav:"model_name" gorm:"column:model_name;primaryKey"`
	Timestamp       time.Time `json:"timestamp" dynamodbav:"timestamp" gorm:"column:timestamp;primaryKey"`
	ActualReturn    float64   `json:"actual_return" dynamodbav:"actual_return" gorm:"column:actual_return"`
	PredictedReturn float64   `json:"predicted_return" dynamodbav:"predicted_return" gorm:"column:predicted_return"`
	PredictedVol    float64   `json:"predicted_vol" dynamodbav:"predicted_vol" gorm:"column:predicted_vol"`
	Position        float64   `json:"position" dynamodbav:"position" gorm:"column:position"`
	StrategyReturn  float64   `json:"strategy_return" dynamodbav:"strategy_return" gorm:"column:strategy_return"`
	Equity          float64   `json:"equity" dynamodbav:"equity" gorm:"column:equity"`
	Drawdown        float64   `json:"drawdown" dynamodbav:"drawdown" gorm:"column:drawdown"`
}
