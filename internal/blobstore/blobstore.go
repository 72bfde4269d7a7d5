// Package blobstore stores thumbnail images under opaque identifiers.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/config"
)

// ErrUnsupportedType is returned by NewBlobStore for an unknown BLOB_STORE_TYPE.
var ErrUnsupportedType = errors.New("unsupported blob store type")

// AccessPolicy controls who may read an asset.
type AccessPolicy string

const (
	AccessPublic  AccessPolicy = "public"
	AccessPrivate AccessPolicy = "private"
)

// Asset describes a stored blob.
type Asset struct {
	ID        string       `json:"id"`
	Size      int64        `json:"size"`
	Access    AccessPolicy `json:"access"`
	CreatedAt time.Time    `json:"created_at"`
}

// AssetPage is one page of ListAssets. Total counts every asset in the store.
type AssetPage struct {
	Assets []Asset
	Total  int
}

// BlobStore defines the contract for the asset store.
type BlobStore interface {
	CreateAsset(ctx context.Context, id string, content io.Reader, access AccessPolicy) (Asset, error)
	ListAssets(ctx context.Context, limit, offset int) (AssetPage, error)
	DeleteAsset(ctx context.Context, id string) error
	Close() error
}

// NewBlobStore creates a blob store based on configuration
func NewBlobStore(ctx context.Context, cfg config.BlobConfig) (BlobStore, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Store(ctx, cfg)
	case "gridfs":
		return NewGridFSStore(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}

// countingReader records how many bytes a streaming upload consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
