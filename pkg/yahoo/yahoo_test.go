package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/mmcompute/pkg/ingestion"
)

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestFetch_NormalizesBars(t *testing.T) {
	var got *chart.Params
	fn := func(params *chart.Params) ([]finance.ChartBar, error) {
		got = params
		return []finance.ChartBar{
			{Open: dec(10), High: dec(11), Low: dec(9), Close: dec(10.5), AdjClose: dec(10.2), Volume: 1000,
				Timestamp: int(time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC).Unix())},
			{Timestamp: int(time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC).Unix())},
			{Open: dec(10.5), High: dec(12), Low: dec(10), Close: dec(11), AdjClose: dec(10.7), Volume: 800,
				Timestamp: int(time.Date(2024, 1, 4, 14, 30, 0, 0, time.UTC).Unix())},
		}, nil
	}

	res := NewProviderWithChart(fn, zerolog.Nop()).Fetch(context.Background(), "MSFT", "2024-01-01", "2024-01-05")

	require.Equal(t, ingestion.Success, res.Outcome)
	require.NotNil(t, got)
	assert.Equal(t, "MSFT", got.Symbol)
	assert.Equal(t, datetime.OneDay, got.Interval)

	require.Len(t, res.Series.Bars, 2)
	assert.True(t, res.Series.HasAdjClose)

	first := res.Series.Bars[0]
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.InDelta(t, 10.5, first.Close, 1e-12)
	assert.InDelta(t, 1000, first.Volume, 1e-12)
	require.NotNil(t, first.AdjClose)
	assert.InDelta(t, 10.2, *first.AdjClose, 1e-12)
}

func TestFetch_NoAdjClose(t *testing.T) {
	fn := func(*chart.Params) ([]finance.ChartBar, error) {
		return []finance.ChartBar{{Open: dec(1), High: dec(1), Low: dec(1), Close: dec(1), Timestamp: 1704205800}}, nil
	}

	res := NewProviderWithChart(fn, zerolog.Nop()).Fetch(context.Background(), "MSFT", "2024-01-01", "2024-01-05")
	require.Equal(t, ingestion.Success, res.Outcome)
	assert.False(t, res.Series.HasAdjClose)
	assert.Nil(t, res.Series.Bars[0].AdjClose)
}

func TestFetch_ChartErrorIsTransportError(t *testing.T) {
	fn := func(*chart.Params) ([]finance.ChartBar, error) {
		return nil, errors.New("remote error")
	}

	res := NewProviderWithChart(fn, zerolog.Nop()).Fetch(context.Background(), "MSFT", "2024-01-01", "2024-01-05")
	assert.Equal(t, ingestion.TransportError, res.Outcome)
	assert.Zero(t, res.Rows().Len())
}

func TestFetch_NoBarsIsNoData(t *testing.T) {
	fn := func(*chart.Params) ([]finance.ChartBar, error) { return nil, nil }

	res := NewProviderWithChart(fn, zerolog.Nop()).Fetch(context.Background(), "MSFT", "2024-01-01", "2024-01-05")
	assert.Equal(t, ingestion.NoData, res.Outcome)
}
