package alpaca

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/vignesh-goutham/mmcompute/pkg/config"
)

// BarsClient is the part of the Alpaca market data client used for ingestion
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// NewDataClient builds an Alpaca market data client from configuration. The
// trading endpoint is never used for bars.
func NewDataClient(cfg config.AlpacaConfig) *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.DataURL != "" {
		opts.BaseURL = cfg.DataURL
	}
	return marketdata.NewClient(opts)
}
