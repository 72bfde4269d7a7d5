package ingestion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cyderes/catalog-ingestion-service/internal/blobstore"
	"github.com/cyderes/catalog-ingestion-service/internal/retry"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
	"github.com/google/uuid"
)

// ErrNoImage is returned when an item has neither poster nor backdrop.
var ErrNoImage = errors.New("item has no image")

// Uploader copies provider images into the blob store.
type Uploader struct {
	images  tmdb.ImageFetcher
	blobs   blobstore.BlobStore
	invoker *retry.Invoker
}

func NewUploader(images tmdb.ImageFetcher, blobs blobstore.BlobStore, invoker *retry.Invoker) *Uploader {
	return &Uploader{images: images, blobs: blobs, invoker: invoker}
}

// Upload streams the image at imagePath into a new public asset and returns
// its id. Every attempt opens a fresh download, so a body consumed by a
// failed write is never re-sent. A 4xx other than 429 from the image host
// ends the loop.
func (u *Uploader) Upload(ctx context.Context, size, imagePath string) (string, error) {
	if strings.TrimSpace(imagePath) == "" {
		return "", ErrNoImage
	}

	asset, err := retry.Do(ctx, u.invoker, func(ctx context.Context) (blobstore.Asset, error) {
		body, err := u.images.FetchImage(ctx, size, imagePath)
		if err != nil {
			err = fmt.Errorf("failed to fetch image %s: %w", imagePath, err)
			var failed *tmdb.FailedRequestError
			if errors.As(err, &failed) && isPermanentStatus(failed.HTTPCode) {
				return blobstore.Asset{}, retry.Permanent(err)
			}
			return blobstore.Asset{}, err
		}
		defer body.Close()

		return u.blobs.CreateAsset(ctx, uuid.NewString(), body, blobstore.AccessPublic)
	})
	if err != nil {
		return "", err
	}

	return asset.ID, nil
}

func isPermanentStatus(code int) bool {
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError && code != http.StatusTooManyRequests
}
