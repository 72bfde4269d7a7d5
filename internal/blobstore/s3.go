package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
)

// S3Store implements BlobStore on an S3 bucket. Assets live under Prefix.
type S3Store struct {
	client   s3iface.S3API
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
}

// NewS3Store creates an S3 blob store and checks that the bucket is reachable
func NewS3Store(ctx context.Context, cfg config.BlobConfig) (*S3Store, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// S3-compatible servers (MinIO, LocalStack) need path-style addressing
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	client := s3.New(sess)
	if _, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s is not accessible: %w", cfg.Bucket, err)
	}

	return newS3Store(client, s3manager.NewUploaderWithClient(client), cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client s3iface.S3API, uploader s3manageriface.UploaderAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(id string) string {
	return s.prefix + id
}

// CreateAsset streams content into the bucket
func (s *S3Store) CreateAsset(ctx context.Context, id string, content io.Reader, access AccessPolicy) (Asset, error) {
	acl := s3.ObjectCannedACLPrivate
	if access == AccessPublic {
		acl = s3.ObjectCannedACLPublicRead
	}

	body := &countingReader{r: content}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
		Body:   body,
		ACL:    aws.String(acl),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("failed to upload asset %s: %w", id, err)
	}

	return Asset{ID: id, Size: body.n, Access: access, CreatedAt: time.Now().UTC()}, nil
}

// ListAssets walks every object under the prefix and returns the requested window
func (s *S3Store) ListAssets(ctx context.Context, limit, offset int) (AssetPage, error) {
	var page AssetPage
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	}, func(out *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range out.Contents {
			if page.Total >= offset && len(page.Assets) < limit {
				page.Assets = append(page.Assets, Asset{
					ID:        strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix),
					Size:      aws.Int64Value(obj.Size),
					CreatedAt: aws.TimeValue(obj.LastModified),
				})
			}
			page.Total++
		}
		return true
	})
	if err != nil {
		return AssetPage{}, fmt.Errorf("failed to list assets: %w", err)
	}

	return page, nil
}

// DeleteAsset removes one object
func (s *S3Store) DeleteAsset(ctx context.Context, id string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset %s: %w", id, err)
	}
	return nil
}

func (s *S3Store) Close() error {
	return nil
}
