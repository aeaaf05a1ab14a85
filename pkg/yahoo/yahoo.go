package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vignesh-goutham/mmcompute/pkg/ingestion"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// ChartFunc returns the chart bars for the given parameters
type ChartFunc func(params *chart.Params) ([]finance.ChartBar, error)

// Provider fetches daily bars from Yahoo Finance. No credentials are needed.
type Provider struct {
	chart ChartFunc
	log   zerolog.Logger
}

var _ ingestion.Provider = (*Provider)(nil)

// NewProvider uses the public chart endpoint
func NewProvider(log zerolog.Logger) *Provider {
	return NewProviderWithChart(fetchChart, log)
}

// NewProviderWithChart uses fn in place of the chart endpoint
func NewProviderWithChart(fn ChartFunc, log zerolog.Logger) *Provider {
	return &Provider{
		chart: fn,
		log:   log.With().Str("provider", string(ingestion.SourceYahoo)).Logger(),
	}
}

func fetchChart(params *chart.Params) ([]finance.ChartBar, error) {
	iter := chart.Get(params)
	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// Source identifies the provider as yahoo
func (p *Provider) Source() ingestion.Source { return ingestion.SourceYahoo }

// Fetch requests daily bars for [start, end). Bars whose prices are all zero
// are null rows in the chart payload and are skipped.
func (p *Provider) Fetch(ctx context.Context, ticker, start, end string) ingestion.Result {
	if err := ctx.Err(); err != nil {
		return ingestion.Failed(ticker, err)
	}

	startDate, err := ingestion.ParseDate(start)
	if err != nil {
		return ingestion.Failed(ticker, err)
	}
	endDate, err := ingestion.ParseDate(end)
	if err != nil {
		return ingestion.Failed(ticker, err)
	}

	p.log.Info().Str("ticker", ticker).Str("start", start).Str("end", end).Msg("fetching from yahoo finance")

	bars, err := p.chart(&chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&startDate),
		End:      datetime.New(&endDate),
		Interval: datetime.OneDay,
	})
	if err != nil {
		return ingestion.Failed(ticker, fmt.Errorf("yahoo chart: %w", err))
	}

	series := types.RawSeries{Ticker: ticker, Bars: make([]types.Bar, 0, len(bars))}
	for _, bar := range bars {
		if bar.Open.IsZero() && bar.High.IsZero() && bar.Low.IsZero() && bar.Close.IsZero() {
			continue
		}
		row := types.Bar{
			Date:   ingestion.CalendarDate(time.Unix(int64(bar.Timestamp), 0)),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: float64(bar.Volume),
		}
		if adj := bar.AdjClose; !adj.Equal(decimal.Zero) {
			row.AdjClose = types.Float(adj.InexactFloat64())
			series.HasAdjClose = true
		}
		series.Bars = append(series.Bars, row)
	}
	return ingestion.Fetched(series)
}
