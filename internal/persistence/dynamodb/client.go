// Package dynamodb stores calendar events and estimates in Amazon DynamoDB.
// Optimistic versioning is enforced with condition expressions, so no read is
// needed before a write.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

//go:generate mockgen -source=client.go -destination=mock_api_test.go -package=dynamodb API

// API is the subset of the DynamoDB client used by the repositories.
type API interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *ddb.UpdateItemInput, optFns ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *ddb.DeleteItemInput, optFns ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *ddb.TransactWriteItemsInput, optFns ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *ddb.DescribeTableInput, optFns ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
}

var _ API = (*ddb.Client)(nil)

// Config describes how to reach DynamoDB and which tables to use.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	EventsTable     string
	EstimatesTable  string
}

// Defaults for Config fields left empty.
const (
	DefaultRegion         = "us-east-1"
	DefaultEventsTable    = "calendar_events"
	DefaultEstimatesTable = "estimates"
)

func (c Config) withDefaults() Config {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.EventsTable == "" {
		c.EventsTable = DefaultEventsTable
	}
	if c.EstimatesTable == "" {
		c.EstimatesTable = DefaultEstimatesTable
	}
	return c
}

// NewClient builds a DynamoDB client. Static credentials are used when both
// keys are set, which is what DynamoDB Local expects; otherwise the default
// AWS credential chain applies. A non-empty Endpoint overrides the service
// URL.
func NewClient(ctx context.Context, cfg Config) (*ddb.Client, error) {
	cfg = cfg.withDefaults()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: load aws config: %w", err)
	}

	return ddb.NewFromConfig(awsCfg, func(o *ddb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// EnsureTables creates any missing table keyed by a string "id" and returns
// the names it created.
func EnsureTables(ctx context.Context, api API, tables ...string) ([]string, error) {
	created := make([]string, 0, len(tables))
	for _, table := range tables {
		_, err := api.DescribeTable(ctx, &ddb.DescribeTableInput{TableName: aws.String(table)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return created, fmt.Errorf("dynamodb: describe table %s: %w", table, err)
		}

		_, err = api.CreateTable(ctx, &ddb.CreateTableInput{
			TableName: aws.String(table),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			return created, fmt.Errorf("dynamodb: create table %s: %w", table, err)
		}
		created = append(created, table)
	}
	return created, nil
}
