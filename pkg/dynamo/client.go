package dynamo

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"

	"github.com/vignesh-goutham/mmcompute/pkg/config"
	"github.com/vignesh-goutham/mmcompute/pkg/store"
)

// BatchSize is the DynamoDB BatchWriteItem limit
const BatchSize = 25

// API is the subset of the DynamoDB client used by Store
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store keeps runs, metrics and timeseries in three DynamoDB tables
type Store struct {
	client       API
	runsTable    string
	metricsTable string
	seriesTable  string
	log          zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// NewClient loads the default AWS configuration, optionally pinned to region
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// New wraps client with the configured table names
func New(client API, cfg config.DynamoConfig, log zerolog.Logger) *Store {
	return &Store{
		client:       client,
		runsTable:    cfg.RunsTable,
		metricsTable: cfg.MetricsTable,
		seriesTable:  cfg.SeriesTable,
		log:          log.With().Str("component", "dynamo").Logger(),
	}
}
