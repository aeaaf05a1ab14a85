package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Source identifies a market-data provider
type Source string

const (
	SourceAlpaca Source = "alpaca"
	SourceYahoo  Source = "yahoo"
)

// ParseSource validates a provider selector
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case SourceAlpaca, SourceYahoo:
		return src, nil
	default:
		return "", apperr.New(apperr.InvalidArgument, "unknown source: %s", s)
	}
}

// Provider fetches raw daily bars for one ticker. start and end are
// YYYY-MM-DD strings. Implementations never panic on provider failure; they
// return a TransportError result instead.
type Provider interface {
	Source() Source
	Fetch(ctx context.Context, ticker, start, end string) Result
}

// Observer is notified of every fetch outcome
type Observer interface {
	ObserveFetch(source string, outcome string)
}

// Service dispatches fetches to the registered provider variants. It keeps
// no cache; every call goes to the provider.
type Service struct {
	providers map[Source]Provider
	observer  Observer
	log       zerolog.Logger
}

// NewService registers providers by their Source. A later provider with the
// same Source replaces an earlier one.
func NewService(log zerolog.Logger, providers ...Provider) *Service {
	s := &Service{
		providers: make(map[Source]Provider, len(providers)),
		log:       log.With().Str("component", "ingestion").Logger(),
	}
	for _, p := range providers {
		s.providers[p.Source()] = p
	}
	return s
}

// WithObserver attaches a fetch observer
func (s *Service) WithObserver(o Observer) *Service {
	s.observer = o
	return s
}

// Fetch normalizes the request and fetches from the selected source. Dates
// may be strings, time.Time or *time.Time. Validation problems are returned
// as InvalidArgument errors; provider problems come back inside Result.
func (s *Service) Fetch(ctx context.Context, ticker string, start, end interface{}, source string) (Result, error) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return Result{}, apperr.New(apperr.InvalidArgument, "ticker must be non-empty")
	}

	src, err := ParseSource(source)
	if err != nil {
		return Result{}, err
	}

	startStr, err := NormalizeDate(start)
	if err != nil {
		return Result{}, err
	}
	endStr, err := NormalizeDate(end)
	if err != nil {
		return Result{}, err
	}

	provider, ok := s.providers[src]
	if !ok {
		s.log.Error().Str("source", string(src)).Msg("provider not registered")
		return s.observe(src, Empty(ticker)), nil
	}

	log := s.log.With().Str("ticker", ticker).Str("source", string(src)).Logger()
	log.Info().Str("start", startStr).Str("end", endStr).Msg("fetching bars")

	res := provider.Fetch(ctx, ticker, startStr, endStr)
	switch res.Outcome {
	case NoData:
		log.Warn().Msg("no data returned")
	case TransportError:
		log.Error().Err(res.Err).Msg("provider call failed")
	default:
		log.Info().Int("rows", res.Series.Len()).Msg("fetched bars")
	}
	return s.observe(src, res), nil
}

func (s *Service) observe(src Source, res Result) Result {
	if s.observer != nil {
		s.observer.ObserveFetch(string(src), res.Outcome.String())
	}
	return res
}

var dateLayouts = []string{
	types.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeDate renders v as YYYY-MM-DD
func NormalizeDate(v interface{}) (string, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(types.DateLayout), nil
	case *time.Time:
		if d == nil {
			return "", apperr.New(apperr.InvalidArgument, "date must not be nil")
		}
		return d.Format(types.DateLayout), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(types.DateLayout), nil
			}
		}
		return "", apperr.New(apperr.InvalidArgument, "invalid date %q", d)
	default:
		return "", apperr.New(apperr.InvalidArgument, "unsupported date type %T", v)
	}
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Wrap(err, apperr.InvalidArgument, "invalid date")
	}
	return t, nil
}

// CalendarDate drops the time of day after converting t to UTC
func CalendarDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

type disabled struct {
	source Source
	reason string
	log    zerolog.Logger
}

// Disabled is a provider variant that always yields NoData. It stands in for
// a provider whose credentials were not configured.
func Disabled(source Source, reason string, log zerolog.Logger) Provider {
	return &disabled{source: source, reason: reason, log: log}
}

func (d *disabled) Source() Source { return d.source }

func (d *disabled) Fetch(_ context.Context, ticker, _, _ string) Result {
	d.log.Error().Str("source", string(d.source)).Str("ticker", ticker).Msg(d.reason)
	return Empty(ticker)
}
