package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const gridFSDisconnectTimeout = 10 * time.Second

// GridFSStore implements BlobStore on a MongoDB GridFS bucket. The access
// policy is kept in the file metadata.
type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

type gridFSFile struct {
	ID         string    `bson:"_id"`
	Length     int64     `bson:"length"`
	UploadDate time.Time `bson:"uploadDate"`
	Metadata   struct {
		Access string `bson:"access"`
	} `bson:"metadata"`
}

// NewGridFSStore connects to MongoDB and opens the configured bucket
func NewGridFSStore(ctx context.Context, cfg config.BlobConfig) (*GridFSStore, error) {
	client, err := storage.ConnectMongo(ctx, cfg.MongoDBURI)
	if err != nil {
		return nil, err
	}

	store, err := newGridFSStore(client.Database(cfg.MongoDatabase), cfg.GridFSBucket)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	store.client = client

	return store, nil
}

func newGridFSStore(db *mongo.Database, bucketName string) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS bucket %s: %w", bucketName, err)
	}
	return &GridFSStore{bucket: bucket}, nil
}

// CreateAsset streams content into a new GridFS file whose _id and filename are id
func (g *GridFSStore) CreateAsset(ctx context.Context, id string, content io.Reader, access AccessPolicy) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	body := &countingReader{r: content}
	opts := options.GridFSUpload().SetMetadata(bson.M{"access": string(access)})
	if err := g.bucket.UploadFromStreamWithID(id, id, body, opts); err != nil {
		return Asset{}, fmt.Errorf("failed to upload asset %s: %w", id, err)
	}

	return Asset{ID: id, Size: body.n, Access: access, CreatedAt: time.Now().UTC()}, nil
}

// ListAssets returns files in upload order
func (g *GridFSStore) ListAssets(ctx context.Context, limit, offset int) (AssetPage, error) {
	total, err := g.bucket.GetFilesCollection().CountDocuments(ctx, bson.M{})
	if err != nil {
		return AssetPage{}, fmt.Errorf("failed to count assets: %w", err)
	}

	opts := options.GridFSFind().
		SetSort(bson.D{{Key: "uploadDate", Value: 1}}).
		SetSkip(int32(offset)).
		SetLimit(int32(limit))
	cursor, err := g.bucket.FindContext(ctx, bson.M{}, opts)
	if err != nil {
		return AssetPage{}, fmt.Errorf("failed to list assets: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridFSFile
	if err := cursor.All(ctx, &files); err != nil {
		return AssetPage{}, fmt.Errorf("failed to decode assets: %w", err)
	}

	page := AssetPage{Total: int(total), Assets: make([]Asset, 0, len(files))}
	for _, f := range files {
		page.Assets = append(page.Assets, Asset{
			ID:        f.ID,
			Size:      f.Length,
			Access:    AccessPolicy(f.Metadata.Access),
			CreatedAt: f.UploadDate,
		})
	}

	return page, nil
}

// DeleteAsset removes the file and its chunks
func (g *GridFSStore) DeleteAsset(ctx context.Context, id string) error {
	if err := g.bucket.DeleteContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", id, err)
	}
	return nil
}

func (g *GridFSStore) Close() error {
	if g.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gridFSDisconnectTimeout)
	defer cancel()
	return g.client.Disconnect(ctx)
}
