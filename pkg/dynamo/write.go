package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// UpdateRun sets the mutable status fields of an existing run
func (s *Store) UpdateRun(ctx context.Context, runID string, update types.StatusUpdate) error {
	var errMsg dynamotypes.AttributeValue = &dynamotypes.AttributeValueMemberNULL{Value: true}
	if update.ErrorMessage != nil {
		errMsg = &dynamotypes.AttributeValueMemberS{Value: *update.ErrorMessage}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.runsTable),
		Key: map[string]dynamotypes.AttributeValue{
			"run_id": &dynamotypes.AttributeValueMemberS{Value: runID},
		},
		ConditionExpression: aws.String("attribute_exists(run_id)"),
		UpdateExpression:    aws.String("SET #status = :status, progress_step = :step, progress_pct = :pct, error_message = :err, updated_at = :ts"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]dynamotypes.AttributeValue{
			":status": &dynamotypes.AttributeValueMemberS{Value: string(update.Status)},
			":step":   &dynamotypes.AttributeValueMemberS{Value: update.ProgressStep},
			":pct":    &dynamotypes.AttributeValueMemberN{Value: strconv.Itoa(update.ProgressPct)},
			":err":    errMsg,
			":ts":     &dynamotypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *dynamotypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return apperr.New(apperr.NotFound, "run %s not found", runID)
		}
		return fmt.Errorf("error updating run %s: %w", runID, err)
	}
	return nil
}

// UpsertMetrics puts one item per (run_id, model_name)
func (s *Store) UpsertMetrics(ctx context.Context, rows []types.ModelMetrics) error {
	items := make([]map[string]dynamotypes.AttributeValue, 0, len(rows))
	for _, row := range rows {
		item, err := attributevalue.MarshalMap(row)
		if err != nil {
			return fmt.Errorf("error marshaling metrics: %w", err)
		}
		items = append(items, item)
	}
	return s.batchPut(ctx, s.metricsTable, items)
}

// UpsertTimeseries puts one item per (run_id, series_key), where series_key
// is model_name#timestamp.
func (s *Store) UpsertTimeseries(ctx context.Context, rows []types.TimeseriesPoint) error {
	items := make([]map[string]dynamotypes.AttributeValue, 0, len(rows))
	for _, row := range rows {
		item, err := attributevalue.MarshalMap(row)
		if err != nil {
			return fmt.Errorf("error marshaling timeseries point: %w", err)
		}
		item["series_key"] = &dynamotypes.AttributeValueMemberS{Value: SeriesKey(row)}
		items = append(items, item)
	}
	return s.batchPut(ctx, s.seriesTable, items)
}

// SeriesKey is the sort key of a timeseries item
func SeriesKey(p types.TimeseriesPoint) string {
	return p.ModelName + "#" + p.Timestamp.UTC().Format(time.RFC3339)
}

func (s *Store) batchPut(ctx context.Context, table string, items []map[string]dynamotypes.AttributeValue) error {
	if len(items) == 0 {
		return nil
	}

	requests := make([]dynamotypes.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, dynamotypes.WriteRequest{
			PutRequest: &dynamotypes.PutRequest{Item: item},
		})
	}

	for i, chunk := range store.Chunk(requests, BatchSize) {
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]dynamotypes.WriteRequest{
				table: chunk,
			},
		})
		if err != nil {
			return fmt.Errorf("error batch writing chunk %d to %s: %w", i, table, err)
		}
		if n := len(out.UnprocessedItems[table]); n > 0 {
			return fmt.Errorf("batch write chunk %d to %s left %d items unprocessed", i, table, n)
		}
	}

	s.log.Info().Str("table", table).Int("items", len(items)).Msg("batch wrote items")
	return nil
}
