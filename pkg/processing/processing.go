package processing

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

const (
	// MaxFillGap is the longest run of missing business days that is forward-filled.
	MaxFillGap = 5
	// VolWindow is the number of trailing log returns in the volatility window.
	VolWindow = 21
	// TradingDaysPerYear annualizes daily volatility.
	TradingDaysPerYear = 252
)

// Processor turns raw provider bars into the canonical feature series
type Processor struct {
	log zerolog.Logger
}

// New creates a processor logging under the processing component
func New(log zerolog.Logger) *Processor {
	return &Processor{log: log.With().Str("component", "processing").Logger()}
}

// Process cleans raw, aligns it to business days and derives log returns and
// annualized realized volatility. Rows without both features are dropped, so
// the first VolWindow aligned rows never appear in the output.
func (p *Processor) Process(raw types.RawSeries) types.CanonicalSeries {
	hasAdj := hasAdjClose(raw)
	if raw.Len() == 0 {
		p.log.Warn().Str("ticker", raw.Ticker).Msg("empty series")
		return types.CanonicalSeries{Ticker: raw.Ticker, HasAdjClose: hasAdj}
	}

	aligned := Align(raw)
	rows := Derive(aligned, hasAdj)

	p.log.Info().
		Str("ticker", raw.Ticker).
		Int("raw_rows", raw.Len()).
		Int("aligned_rows", len(aligned)).
		Int("rows", len(rows)).
		Msg("processed series")

	return types.CanonicalSeries{Ticker: raw.Ticker, Rows: rows, HasAdjClose: hasAdj}
}

// Align sorts, deduplicates (first occurrence wins), drops non-positive
// closes, reindexes onto the weekday calendar between the first and last
// remaining dates and forward-fills gaps of at most MaxFillGap days. Rows
// still missing a value afterwards are dropped.
func Align(raw types.RawSeries) []types.Bar {
	bars := make([]types.Bar, len(raw.Bars))
	copy(bars, raw.Bars)
	for i := range bars {
		bars[i].Date = calendarDate(bars[i].Date)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	cleaned := make([]types.Bar, 0, len(bars))
	for _, bar := range bars {
		if n := len(cleaned); n > 0 && bar.Date.Equal(cleaned[n-1].Date) {
			continue
		}
		cleaned = append(cleaned, bar)
	}

	positive := make([]types.Bar, 0, len(cleaned))
	for _, bar := range cleaned {
		if bar.Close > 0 {
			positive = append(positive, bar)
		}
	}
	if len(positive) == 0 {
		return nil
	}

	grid := BusinessDays(positive[0].Date, positive[len(positive)-1].Date)
	slot := make(map[time.Time]int, len(grid))
	for i, d := range grid {
		slot[d] = i
	}

	cells := make([]*types.Bar, len(grid))
	for i := range positive {
		if idx, ok := slot[positive[i].Date]; ok {
			cells[idx] = &positive[i]
		}
	}

	hasAdj := hasAdjClose(raw)
	priceValid := make([]bool, len(grid))
	adjValid := make([]bool, len(grid))
	for i, c := range cells {
		priceValid[i] = c != nil
		adjValid[i] = c != nil && c.AdjClose != nil
	}
	priceSrc := fillSources(priceValid, MaxFillGap)
	adjSrc := fillSources(adjValid, MaxFillGap)

	out := make([]types.Bar, 0, len(grid))
	for i, d := range grid {
		if priceSrc[i] < 0 {
			continue
		}
		bar := *cells[priceSrc[i]]
		bar.Date = d
		bar.AdjClose = nil
		if hasAdj {
			if adjSrc[i] < 0 {
				continue
			}
			bar.AdjClose = types.Float(*cells[adjSrc[i]].AdjClose)
		}
		out = append(out, bar)
	}
	return out
}

// Derive computes log returns on the price basis (adjusted close when the
// series has one, else close) and the trailing sample standard deviation of
// VolWindow returns, annualized by sqrt(TradingDaysPerYear). Rows whose
// features are not finite are dropped.
func Derive(bars []types.Bar, useAdj bool) []types.CanonicalRow {
	if len(bars) <= VolWindow {
		return nil
	}

	prices := make([]float64, len(bars))
	for i, bar := range bars {
		prices[i] = bar.Close
		if useAdj && bar.AdjClose != nil {
			prices[i] = *bar.AdjClose
		}
	}

	returns := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		returns[i] = math.Log(prices[i] / prices[i-1])
	}

	annualize := math.Sqrt(TradingDaysPerYear)
	rows := make([]types.CanonicalRow, 0, len(bars)-VolWindow)
	for i := VolWindow; i < len(bars); i++ {
		vol := SampleStdDev(returns[i-VolWindow+1:i+1]) * annualize
		if !finite(returns[i]) || !finite(vol) {
			continue
		}
		rows = append(rows, types.CanonicalRow{
			Bar:         bars[i],
			LogReturn:   returns[i],
			RealizedVol: vol,
		})
	}
	return rows
}

// BusinessDays lists Monday to Friday dates in [start, end]. Holidays are not excluded.
func BusinessDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := calendarDate(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// SampleStdDev divides by n-1. Fewer than two values give NaN.
func SampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)

	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return math.Sqrt(sq / float64(n-1))
}

// fillSources maps each position to the index holding its value: itself when
// valid, the last valid index before a missing run of at most limit, or -1.
func fillSources(valid []bool, limit int) []int {
	src := make([]int, len(valid))
	for i := 0; i < len(valid); {
		if valid[i] {
			src[i] = i
			i++
			continue
		}
		j := i
		for j < len(valid) && !valid[j] {
			j++
		}
		from := -1
		if i > 0 && j-i <= limit {
			from = i - 1
		}
		for k := i; k < j; k++ {
			src[k] = from
		}
		i = j
	}
	return src
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func hasAdjClose(raw types.RawSeries) bool {
	if raw.HasAdjClose {
		return true
	}
	for _, bar := range raw.Bars {
		if bar.AdjClose != nil {
			return true
		}
	}
	return false
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
