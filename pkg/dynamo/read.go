package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vignesh-goutham/mmcompute/pkg/apperr"
	"github.com/vignesh-goutham/mmcompute/pkg/types"
)

// GetRun reads the configuration row of a run
func (s *Store) GetRun(ctx context.Context, runID string) (types.RunConfig, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.runsTable),
		Key: map[string]dynamotypes.AttributeValue{
			"run_id": &dynamotypes.AttributeValueMemberS{Value: runID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return types.RunConfig{}, fmt.Errorf("error getting run %s: %w", runID, err)
	}
	if len(out.Item) == 0 {
		return types.RunConfig{}, apperr.New(apperr.NotFound, "run %s not found", runID)
	}

	var run types.RunConfig
	if err := attributevalue.UnmarshalMap(out.Item, &run); err != nil {
		return types.RunConfig{}, fmt.Errorf("error unmarshaling run %s: %w", runID, err)
	}
	return run, nil
}
