package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// Client talks to the Supabase REST API (PostgREST) with the service role key
type Client struct {
	baseURL      string
	serviceKey   string
	runsTable    string
	metricsTable string
	seriesTable  string
	batchSize    int
	httpClient   *http.Client
	log          zerolog.Logger
}

var _ store.Store = (*Client)(nil)

// New creates a client from configuration
func New(cfg config.SupabaseConfig, log zerolog.Logger) *Client {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 500
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		serviceKey:   cfg.ServiceRoleKey,
		runsTable:    cfg.RunsTable,
		metricsTable: cfg.MetricsTable,
		seriesTable:  cfg.SeriesTable,
		batchSize:    batch,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.With().Str("component", "supabase").Logger(),
	}
}

// GetRun fetches the configuration row of a run
func (c *Client) GetRun(ctx context.Context, runID string) (types.RunConfig, error) {
	query := url.Values{}
	query.Set("id", "eq."+runID)
	query.Set("select", "id,ticker,start_date,end_date,frequency,config")
	query.Set("limit", "1")

	var runs []types.RunConfig
	if err := c.do(ctx, http.MethodGet, c.runsTable, query, nil, "", &runs); err != nil {
		return types.RunConfig{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if len(runs) == 0 {
		return types.RunConfig{}, apperr.New(apperr.NotFound, "run %s not found", runID)
	}
	return runs[0], nil
}

type runPatch struct {
	types.StatusUpdate
	UpdatedAt string `json:"updated_at"`
}

// UpdateRun patches the status fields of a run
func (c *Client) UpdateRun(ctx context.Context, runID string, update types.StatusUpdate) error {
	query := url.Values{}
	query.Set("id", "eq."+runID)
	query.Set("select", "id")

	body := runPatch{StatusUpdate: update, UpdatedAt: time.Now().UTC().Format(time.RFC3339)}
	var updated []struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPatch, c.runsTable, query, body, "return=representation", &updated); err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if len(updated) == 0 {
		return apperr.New(apperr.NotFound, "run %s not found", runID)
	}
	return nil
}

// UpsertMetrics merges on (run_id, model_name)
func (c *Client) UpsertMetrics(ctx context.Context, rows []types.ModelMetrics) error {
	for i, chunk := range store.Chunk(rows, c.batchSize) {
		if err := c.upsert(ctx, c.metricsTable, "run_id,model_name", chunk); err != nil {
			return fmt.Errorf("upsert metrics chunk %d: %w", i, err)
		}
	}
	return nil
}

// UpsertTimeseries merges on (run_id, model_name, timestamp)
func (c *Client) UpsertTimeseries(ctx context.Context, rows []types.TimeseriesPoint) error {
	chunks := store.Chunk(rows, c.batchSize)
	for i, chunk := range chunks {
		if err := c.upsert(ctx, c.seriesTable, "run_id,model_name,timestamp", chunk); err != nil {
			return fmt.Errorf("upsert timeseries chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	c.log.Info().Int("rows", len(rows)).Int("chunks", len(chunks)).Msg("upserted timeseries")
	return nil
}

func (c *Client) upsert(ctx context.Context, table, conflict string, rows interface{}) error {
	query := url.Values{}
	query.Set("on_conflict", conflict)
	return c.do(ctx, http.MethodPost, table, query, rows, "resolution=merge-duplicates,return=minimal", nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body interface{}, prefer string, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("supabase error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if dest == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
