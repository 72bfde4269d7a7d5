package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 10 * time.Second

// MongoDBStorage implements DocumentStore on a MongoDB database, one
// collection per catalog collection.
type MongoDBStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBStorage connects to MongoDB and verifies the deployment is reachable
func NewMongoDBStorage(ctx context.Context, cfg config.StorageConfig) (*MongoDBStorage, error) {
	client, err := ConnectMongo(ctx, cfg.MongoDBURI)
	if err != nil {
		return nil, err
	}

	return &MongoDBStorage{client: client, db: client.Database(cfg.MongoDatabase)}, nil
}

// ConnectMongo opens a client and pings the primary.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client, nil
}

func newMongoDBStorage(db *mongo.Database) *MongoDBStorage {
	return &MongoDBStorage{db: db}
}

// CreateRecord inserts one document with a uuid _id
func (m *MongoDBStorage) CreateRecord(ctx context.Context, collection string, fields models.Fields) (models.Record, error) {
	if !isKnownCollection(collection) {
		return models.Record{}, fmt.Errorf("unknown collection %q", collection)
	}

	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return models.Record{}, fmt.Errorf("failed to store %s record: %w", collection, err)
	}

	return models.Record{ID: id, Collection: collection, Fields: fields}, nil
}

// Close disconnects the client when the store owns it
func (m *MongoDBStorage) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}
