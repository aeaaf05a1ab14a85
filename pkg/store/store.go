package store

import (
	"context"

	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// RunStore reads run configuration and updates run status
type RunStore interface {
	GetRun(ctx context.Context, runID string) (types.RunConfig, error)
	UpdateRun(ctx context.Context, runID string, update types.StatusUpdate) error
}

// ResultStore upserts model results keyed by their natural composite keys
type ResultStore interface {
	UpsertMetrics(ctx context.Context, rows []types.ModelMetrics) error
	UpsertTimeseries(ctx context.Context, rows []types.TimeseriesPoint) error
}

// Store is a backend serving both run records and results
type Store interface {
	RunStore
	ResultStore
}

// Chunk splits items into consecutive batches of at most size. Writes are
// issued per batch; a failed batch does not roll back earlier ones.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
