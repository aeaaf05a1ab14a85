package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

type stubProvider struct {
	source     Source
	result     Result
	calls      int
	start, end string
}

func (p *stubProvider) Source() Source { return p.source }

func (p *stubProvider) Fetch(_ context.Context, ticker, start, end string) Result {
	p.calls++
	p.start, p.end = start, end
	return p.result
}

type countingObserver map[string]int

func (o countingObserver) ObserveFetch(source, outcome string) { o[source+"/"+outcome]++ }

func TestFetch_UnknownSourceIsValidationError(t *testing.T) {
	svc := NewService(zerolog.Nop(), &stubProvider{source: SourceYahoo})

	_, err := svc.Fetch(context.Background(), "AAPL", "2024-01-01", "2024-02-01", "bloomberg")
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestFetch_EmptyTickerIsValidationError(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.Fetch(context.Background(), "  ", "2024-01-01", "2024-02-01", "yahoo")
	assert.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestFetch_DisabledProviderAlwaysEmpty(t *testing.T) {
	svc := NewService(zerolog.Nop(), Disabled(SourceAlpaca, "alpaca not initialized", zerolog.Nop()))

	for i := 0; i < 3; i++ {
		res, err := svc.Fetch(context.Background(), "AAPL", "2024-01-01", "2024-02-01", "alpaca")
		require.NoError(t, err)
		assert.Equal(t, NoData, res.Outcome)
		assert.Zero(t, res.Rows().Len())
	}
}

func TestFetch_DispatchesNormalizedDates(t *testing.T) {
	p := &stubProvider{
		source: SourceYahoo,
		result: Fetched(types.RawSeries{Ticker: "AAPL", Bars: []types.Bar{{Close: 1}}}),
	}
	obs := countingObserver{}
	svc := NewService(zerolog.Nop(), p).WithObserver(obs)

	start := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC)
	res, err := svc.Fetch(context.Background(), "AAPL", start, &start, "YAHOO")
	require.NoError(t, err)

	assert.Equal(t, Success, res.Outcome)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "2024-01-02", p.start)
	assert.Equal(t, "2024-01-02", p.end)
	assert.Equal(t, 1, obs["yahoo/success"])
}

func TestFetch_TransportErrorIsDistinctFromNoData(t *testing.T) {
	cause := errors.New("connection reset")
	p := &stubProvider{source: SourceAlpaca, result: Failed("AAPL", cause)}
	svc := NewService(zerolog.Nop(), p)

	res, err := svc.Fetch(context.Background(), "AAPL", "2024-01-01", "2024-02-01", "alpaca")
	require.NoError(t, err)
	assert.Equal(t, TransportError, res.Outcome)
	assert.ErrorIs(t, res.Err, cause)
	assert.Zero(t, res.Rows().Len())
}

func TestFetched_ZeroRowsIsNoData(t *testing.T) {
	res := Fetched(types.RawSeries{Ticker: "AAPL"})
	assert.Equal(t, NoData, res.Outcome)
}

func TestNormalizeDate(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC)
	testCases := []struct {
		desc    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{"plain date", "2024-03-15", "2024-03-15", false},
		{"padded", " 2024-03-15 ", "2024-03-15", false},
		{"rfc3339", "2024-03-15T10:00:00Z", "2024-03-15", false},
		{"datetime", "2024-03-15 10:00:00", "2024-03-15", false},
		{"time value", ts, "2024-03-15", false},
		{"time pointer", &ts, "2024-03-15", false},
		{"nil pointer", (*time.Time)(nil), "", true},
		{"garbage", "15/03/2024", "", true},
		{"int", 20240315, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := NormalizeDate(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalendarDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	got := CalendarDate(time.Date(2024, 3, 15, 0, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	got = CalendarDate(time.Date(2024, 3, 15, 21, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), got)
}
