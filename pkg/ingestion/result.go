package ingestion

import (
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Outcome distinguishes a successful fetch from an empty one and from a
// failed provider call.
type Outcome int

const (
	Success Outcome = iota
	NoData
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NoData:
		return "no_data"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one provider fetch. Series is populated only on
// Success; Err only on TransportError.
type Result struct {
	Outcome Outcome
	Series  types.RawSeries
	Err     error
}

// Fetched classifies a provider response; zero bars is NoData.
func Fetched(series types.RawSeries) Result {
	if series.Len() == 0 {
		return Empty(series.Ticker)
	}
	return Result{Outcome: Success, Series: series}
}

// Empty is a NoData result
func Empty(ticker string) Result {
	return Result{Outcome: NoData, Series: types.RawSeries{Ticker: ticker}}
}

// Failed is a TransportError result wrapping cause
func Failed(ticker string, cause error) Result {
	return Result{Outcome: TransportError, Series: types.RawSeries{Ticker: ticker}, Err: cause}
}

// Rows returns the series, which is empty for both NoData and TransportError.
func (r Result) Rows() types.RawSeries {
	if r.Outcome != Success {
		return types.RawSeries{Ticker: r.Series.Ticker}
	}
	return r.Series
}
