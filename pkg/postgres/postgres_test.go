package postgres

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), config.PostgresConfig{}, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, apperr.Configuration, apperr.KindOf(err))
}

func TestStatusColumns(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cols := statusColumns(types.StatusUpdate{Status: types.RunStatusRunning, ProgressStep: "processing", ProgressPct: 50}, now)
	assert.Equal(t, "running", cols["status"])
	assert.Equal(t, "processing", cols["progress_step"])
	assert.Equal(t, 50, cols["progress_pct"])
	assert.Nil(t, cols["error_message"])
	assert.Equal(t, now, cols["updated_at"])

	msg := "NoData: No data found for AAPL from yahoo"
	cols = statusColumns(types.StatusUpdate{Status: types.RunStatusFailed, ErrorMessage: &msg}, now)
	assert.Equal(t, msg, cols["error_message"])
	assert.Equal(t, 0, cols["progress_pct"])
}

// dryRunStore builds SQL without a server and records each statement
func dryRunStore(t *testing.T, batchSize int) (*Store, *gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=test dbname=test sslmode=disable"), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	var statements []string
	record := func(tx *gorm.DB) { statements = append(statements, tx.Statement.SQL.String()) }
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", record))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:record_update", record))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record_query", record))

	return New(db, batchSize, zerolog.Nop()), db, &statements
}

func timeseriesRows(n int) []types.TimeseriesPoint {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]types.TimeseriesPoint, n)
	for i := range rows {
		rows[i] = types.TimeseriesPoint{RunID: "run-1", ModelName: "placeholder", Timestamp: base.AddDate(0, 0, i), Equity: 1}
	}
	return rows
}

func TestUpsertTimeseries_ChunkedOnConflict(t *testing.T) {
	st, _, statements := dryRunStore(t, 4)

	require.NoError(t, st.UpsertTimeseries(context.Background(), timeseriesRows(9)))

	require.Len(t, *statements, 3)
	for _, sql := range *statements {
		assert.True(t, strings.HasPrefix(sql, `INSERT INTO "model_timeseries"`), sql)
		assert.Contains(t, sql, `ON CONFLICT ("run_id","model_name","timestamp") DO UPDATE SET`)
		assert.Contains(t, sql, `"equity"="excluded"."equity"`)
	}
}

func TestUpsertMetrics_OnConflictRunAndModel(t *testing.T) {
	st, _, statements := dryRunStore(t, 500)

	rows := []types.ModelMetrics{{RunID: "run-1", ModelName: "placeholder", Sharpe: 0.5, Metadata: map[string]interface{}{"ticker": "AAPL"}}}
	require.NoError(t, st.UpsertMetrics(context.Background(), rows))

	require.Len(t, *statements, 1)
	sql := (*statements)[0]
	assert.True(t, strings.HasPrefix(sql, `INSERT INTO "model_metrics"`), sql)
	assert.Contains(t, sql, `ON CONFLICT ("run_id","model_name") DO UPDATE SET`)
	assert.Contains(t, sql, `"sharpe_ratio"="excluded"."sharpe_ratio"`)
}

func TestUpsert_EmptyWritesNothing(t *testing.T) {
	st, _, statements := dryRunStore(t, 500)

	require.NoError(t, st.UpsertTimeseries(context.Background(), nil))
	require.NoError(t, st.UpsertMetrics(context.Background(), nil))
	assert.Empty(t, *statements)
}

func TestUpdateRun_NoRowsIsNotFound(t *testing.T) {
	st, _, statements := dryRunStore(t, 500)

	err := st.UpdateRun(context.Background(), "missing", types.StatusUpdate{Status: types.RunStatusRunning, ProgressStep: "loading_config", ProgressPct: 5})

	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	require.Len(t, *statements, 1)
	assert.True(t, strings.HasPrefix((*statements)[0], `UPDATE "runs" SET`), (*statements)[0])
	assert.Contains(t, (*statements)[0], `WHERE id = $`)
}

func TestGetRun_EmptyResultIsNotFound(t *testing.T) {
	st, db, statements := dryRunStore(t, 500)
	require.NoError(t, db.Callback().Query().After("test:record_query").Register("test:empty_result", func(tx *gorm.DB) {
		_ = tx.AddError(gorm.ErrRecordNotFound)
	}))

	_, err := st.GetRun(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	require.Len(t, *statements, 1)
	assert.Contains(t, (*statements)[0], `FROM "runs" WHERE id = $1 LIMIT $2`)
}
