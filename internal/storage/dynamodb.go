package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/google/uuid"
)

// DynamoDBStorage implements DocumentStore using one DynamoDB table per collection
type DynamoDBStorage struct {
	client      dynamodbiface.DynamoDBAPI
	tablePrefix string
}

// NewDynamoDBStorage creates a new DynamoDB storage instance
func NewDynamoDBStorage(ctx context.Context, cfg config.StorageConfig) (*DynamoDBStorage, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	storage := newDynamoDBStorage(dynamodb.New(sess), cfg.TablePrefix)

	for _, collection := range Collections {
		if err := storage.ensureTable(ctx, storage.tableName(collection)); err != nil {
			return nil, fmt.Errorf("failed to ensure table for %s exists: %w", collection, err)
		}
	}

	return storage, nil
}

func newDynamoDBStorage(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBStorage {
	return &DynamoDBStorage{client: client, tablePrefix: tablePrefix}
}

func (d *DynamoDBStorage) tableName(collection string) string {
	return d.tablePrefix + collection
}

// ensureTable creates the DynamoDB table if it doesn't exist
func (d *DynamoDBStorage) ensureTable(ctx context.Context, tableName string) error {
	_, err := d.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err == nil {
		return nil
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       aws.String("HASH"),
			},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: aws.String("S"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	}

	if _, err := d.client.CreateTableWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return d.client.WaitUntilTableExistsWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
}

// CreateRecord stores one document under a freshly generated id
func (d *DynamoDBStorage) CreateRecord(ctx context.Context, collection string, fields models.Fields) (models.Record, error) {
	if !isKnownCollection(collection) {
		return models.Record{}, fmt.Errorf("unknown collection %q", collection)
	}

	item, err := dynamodbattribute.MarshalMap(fields)
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}

	id := uuid.NewString()
	item["id"] = &dynamodb.AttributeValue{S: aws.String(id)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName(collection)),
		Item:      item,
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to store %s record: %w", collection, err)
	}

	return models.Record{ID: id, Collection: collection, Fields: fields}, nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBStorage) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
