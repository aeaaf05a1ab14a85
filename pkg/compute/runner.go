package compute

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/evaluate"
	"github.com/vignesh-goutham/mmcompute/pkg/ingestion"
	"github.com/vignesh-goutham/mmcompute/pkg/processing"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Step is a named progress checkpoint of a run
type Step struct {
	Name string
	Pct  int
}

var (
	StepLoadingConfig = Step{"loading_config", 5}
	StepFetchingData  = Step{"fetching_data", 20}
	StepProcessing    = Step{"processing", 50}
	StepEvaluating    = Step{"evaluating", 70}
	StepSavingResults = Step{"saving_results", 85}
	StepComplete      = Step{"complete", 100}
)

// Recorder receives run level metrics
type Recorder interface {
	RecordRun(status string)
	RecordRows(table string, n int)
	ObserveStage(stage string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string)                   {}
func (nopRecorder) RecordRows(string, int)             {}
func (nopRecorder) ObserveStage(string, time.Duration) {}

// Runner executes compute runs end to end against a store
type Runner struct {
	store         store.Store
	ingest        *ingestion.Service
	defaultSource string
	recorder      Recorder
	log           zerolog.Logger
}

// NewRunner creates a runner. defaultSource is used when a run config does
// not name a source.
func NewRunner(st store.Store, ingest *ingestion.Service, defaultSource string, log zerolog.Logger) *Runner {
	return &Runner{
		store:         st,
		ingest:        ingest,
		defaultSource: defaultSource,
		recorder:      nopRecorder{},
		log:           log.With().Str("component", "compute").Logger(),
	}
}

// WithRecorder attaches a metrics recorder
func (r *Runner) WithRecorder(rec Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// Run loads the run config, fetches and processes market data, evaluates
// the models and stores their results, reporting progress on the run record.
// On failure the run is marked failed and the causing error is returned.
func (r *Runner) Run(ctx context.Context, runID string) (types.RunStatus, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", apperr.New(apperr.InvalidArgument, "run_id must be non-empty")
	}

	exec := &execution{Runner: r, runID: runID, log: r.log.With().Str("run_id", runID).Logger()}
	started := time.Now()
	exec.log.Info().Msg("starting run")

	if err := exec.run(ctx); err != nil {
		exec.fail(ctx, err)
		r.recorder.RecordRun(string(types.RunStatusFailed))
		return types.RunStatusFailed, err
	}

	r.recorder.RecordRun(string(types.RunStatusComplete))
	exec.log.Info().Dur("elapsed", time.Since(started)).Msg("run complete")
	return types.RunStatusComplete, nil
}

// execution holds the state of a single run
type execution struct {
	*Runner
	runID       string
	step        Step
	stepStarted time.Time
	log         zerolog.Logger
}

func (e *execution) run(ctx context.Context) error {
	if err := e.advance(ctx, StepLoadingConfig); err != nil {
		return err
	}
	run, err := e.store.GetRun(ctx, e.runID)
	if err != nil {
		return err
	}
	source := run.Source(e.defaultSource)
	e.log = e.log.With().Str("ticker", run.Ticker).Str("source", source).Logger()

	if err := e.advance(ctx, StepFetchingData); err != nil {
		return err
	}
	res, err := e.ingest.Fetch(ctx, run.Ticker, run.StartDate, run.EndDate, source)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case ingestion.TransportError:
		return apperr.Wrap(res.Err, apperr.Transport, fmt.Sprintf("fetch %s from %s", run.Ticker, source))
	case ingestion.NoData:
		return noData(run.Ticker, source)
	}

	if err := e.advance(ctx, StepProcessing); err != nil {
		return err
	}
	series := processing.New(e.log).Process(res.Rows())
	if series.Len() == 0 {
		return noData(run.Ticker, source)
	}

	if err := e.advance(ctx, StepEvaluating); err != nil {
		return err
	}
	results := []evaluate.Results{evaluate.Placeholder(e.runID, series)}

	if err := e.advance(ctx, StepSavingResults); err != nil {
		return err
	}
	if err := e.save(ctx, results); err != nil {
		return err
	}

	return e.advanceTo(ctx, types.RunStatusComplete, StepComplete)
}

func (e *execution) save(ctx context.Context, results []evaluate.Results) error {
	metrics := make([]types.ModelMetrics, 0, len(results))
	var points []types.TimeseriesPoint
	for _, res := range results {
		metrics = append(metrics, res.Metrics)
		points = append(points, res.Points...)
	}

	if err := e.store.UpsertMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("save metrics: %w", err)
	}
	e.recorder.RecordRows("model_metrics", len(metrics))

	if err := e.store.UpsertTimeseries(ctx, points); err != nil {
		return fmt.Errorf("save timeseries: %w", err)
	}
	e.recorder.RecordRows("model_timeseries", len(points))

	e.log.Info().Int("metrics", len(metrics)).Int("points", len(points)).Msg("saved results")
	return nil
}

func (e *execution) advance(ctx context.Context, step Step) error {
	return e.advanceTo(ctx, types.RunStatusRunning, step)
}

func (e *execution) advanceTo(ctx context.Context, status types.RunStatus, step Step) error {
	now := time.Now()
	if e.step.Name != "" {
		e.recorder.ObserveStage(e.step.Name, now.Sub(e.stepStarted))
	}
	e.step = step
	e.stepStarted = now

	e.log.Info().Str("step", step.Name).Int("pct", step.Pct).Msg("progress")
	return e.store.UpdateRun(ctx, e.runID, types.StatusUpdate{
		Status:       status,
		ProgressStep: step.Name,
		ProgressPct:  step.Pct,
	})
}

// fail marks the run failed. Errors from the update itself are only logged.
func (e *execution) fail(ctx context.Context, cause error) {
	msg := apperr.Message(cause)
	e.log.Error().Err(cause).Str("step", e.step.Name).Msg("run failed")

	err := e.store.UpdateRun(context.WithoutCancel(ctx), e.runID, types.StatusUpdate{
		Status:       types.RunStatusFailed,
		ProgressStep: e.step.Name,
		ProgressPct:  e.step.Pct,
		ErrorMessage: &msg,
	})
	if err != nil {
		e.log.Error().Err(err).Msg("failed to mark run as failed")
	}
}

func noData(ticker, source string) error {
	return apperr.New(apperr.NoData, "No data found for %s from %s", ticker, source)
}
