package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/ingestion"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Provider fetches raw daily bars from Alpaca's IEX feed
type Provider struct {
	client BarsClient
	log    zerolog.Logger
}

var _ ingestion.Provider = (*Provider)(nil)

// NewProvider wraps a bars client
func NewProvider(client BarsClient, log zerolog.Logger) *Provider {
	return &Provider{
		client: client,
		log:    log.With().Str("provider", string(ingestion.SourceAlpaca)).Logger(),
	}
}

// FromConfig returns an Alpaca provider, or a disabled variant when the
// credentials are missing.
func FromConfig(cfg config.AlpacaConfig, log zerolog.Logger) ingestion.Provider {
	if !cfg.Enabled() {
		log.Warn().Msg("alpaca credentials not found, alpaca fetching will be disabled")
		return ingestion.Disabled(ingestion.SourceAlpaca, "alpaca api not initialized", log)
	}
	log.Info().Str("endpoint", cfg.Endpoint).Str("data_url", cfg.DataURL).Msg("alpaca market data enabled")
	return NewProvider(NewDataClient(cfg), log)
}

// Source identifies the provider as alpaca
func (p *Provider) Source() ingestion.Source { return ingestion.SourceAlpaca }

// Fetch requests unadjusted daily bars for [start, end], end inclusive.
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

	p.log.Info().Str("ticker", ticker).Str("start", start).Str("end", end).Msg("fetching from alpaca")

	bars, err := p.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Raw,
		Feed:       marketdata.IEX,
		Start:      startDate,
		End:        endDate.AddDate(0, 0, 1).Add(-time.Second),
	})
	if err != nil {
		return ingestion.Failed(ticker, fmt.Errorf("error getting bars: %w", err))
	}

	series := types.RawSeries{Ticker: ticker, Bars: make([]types.Bar, 0, len(bars))}
	for _, bar := range bars {
		series.Bars = append(series.Bars, types.Bar{
			Date:   ingestion.CalendarDate(bar.Timestamp),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: float64(bar.Volume),
		})
	}
	return ingestion.Fetched(series)
}
