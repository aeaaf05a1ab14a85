package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

const (
	runsTable    = "runs"
	metricsTable = "model_metrics"
	seriesTable  = "model_timeseries"
)

// Store persists runs and results in PostgreSQL through gorm
type Store struct {
	db        *gorm.DB
	batchSize int
	log       zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to the database named by cfg.DSN and pings it
func Open(ctx context.Context, cfg config.PostgresConfig, log zerolog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, apperr.New(apperr.Configuration, "DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(db, cfg.BatchSize, log), nil
}

// New wraps an existing gorm handle
func New(db *gorm.DB, batchSize int, log zerolog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Store{db: db, batchSize: batchSize, log: log.With().Str("component", "postgres").Logger()}
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetRun reads the configuration row of a run
func (s *Store) GetRun(ctx context.Context, runID string) (types.RunConfig, error) {
	var run types.RunConfig
	err := s.db.WithContext(ctx).Table(runsTable).Where("id = ?", runID).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.RunConfig{}, apperr.New(apperr.NotFound, "run %s not found", runID)
	}
	if err != nil {
		return types.RunConfig{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// UpdateRun writes the status fields of an existing run
func (s *Store) UpdateRun(ctx context.Context, runID string, update types.StatusUpdate) error {
	res := s.db.WithContext(ctx).Table(runsTable).Where("id = ?", runID).Updates(statusColumns(update, time.Now().UTC()))
	if res.Error != nil {
		return fmt.Errorf("update run %s: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "run %s not found", runID)
	}
	return nil
}

// UpsertMetrics merges on (run_id, model_name)
func (s *Store) UpsertMetrics(ctx context.Context, rows []types.ModelMetrics) error {
	for _, chunk := range store.Chunk(rows, s.batchSize) {
		err := s.db.WithContext(ctx).Table(metricsTable).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "run_id"}, {Name: "model_name"}},
				UpdateAll: true,
			}).
			Create(&chunk).Error
		if err != nil {
			return fmt.Errorf("upsert metrics: %w", err)
		}
	}
	return nil
}

// UpsertTimeseries merges on (run_id, model_name, timestamp)
func (s *Store) UpsertTimeseries(ctx context.Context, rows []types.TimeseriesPoint) error {
	for _, chunk := range store.Chunk(rows, s.batchSize) {
		err := s.db.WithContext(ctx).Table(seriesTable).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "run_id"}, {Name: "model_name"}, {Name: "timestamp"}},
				UpdateAll: true,
			}).
			Create(&chunk).Error
		if err != nil {
			return fmt.Errorf("upsert timeseries: %w", err)
		}
	}
	s.log.Debug().Int("rows", len(rows)).Msg("upserted timeseries")
	return nil
}

// statusColumns uses a map so zero values (progress 0, null error) are written
func statusColumns(update types.StatusUpdate, now time.Time) map[string]interface{} {
	var errMsg interface{}
	if update.ErrorMessage != nil {
		errMsg = *update.ErrorMessage
	}
	return map[string]interface{}{
		"status":        string(update.Status),
		"progress_step": update.ProgressStep,
		"progress_pct":  update.ProgressPct,
		"error_message": errMsg,
		"updated_at":    now,
	}
}
