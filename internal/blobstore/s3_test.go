package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	s3manageriface.UploaderAPI

	inputs []*s3manager.UploadInput
	bodies []string
	err    error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(data))
	return &s3manager.UploadOutput{}, nil
}

type fakeS3 struct {
	s3iface.S3API

	pages   [][]string
	deleted []string
}

func (f *fakeS3) ListObjectsV2PagesWithContext(_ aws.Context, _ *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	for i, keys := range f.pages {
		out := &s3.ListObjectsV2Output{}
		for _, k := range keys {
			out.Contents = append(out.Contents, &s3.Object{Key: aws.String(k), Size: aws.Int64(10)})
		}
		if !fn(out, i == len(f.pages)-1) {
			return nil
		}
	}
	return nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_CreateAsset(t *testing.T) {
	uploader := &fakeUploader{}
	store := newS3Store(&fakeS3{}, uploader, "catalog-assets", "thumbnails/")

	asset, err := store.CreateAsset(context.Background(), "abc", strings.NewReader("jpeg-bytes"), AccessPublic)

	require.NoError(t, err)
	assert.Equal(t, "abc", asset.ID)
	assert.Equal(t, int64(10), asset.Size)
	require.Len(t, uploader.inputs, 1)
	assert.Equal(t, "catalog-assets", aws.StringValue(uploader.inputs[0].Bucket))
	assert.Equal(t, "thumbnails/abc", aws.StringValue(uploader.inputs[0].Key))
	assert.Equal(t, s3.ObjectCannedACLPublicRead, aws.StringValue(uploader.inputs[0].ACL))
	assert.Equal(t, "jpeg-bytes", uploader.bodies[0])
}

func TestS3Store_CreateAssetPrivate(t *testing.T) {
	uploader := &fakeUploader{}
	store := newS3Store(&fakeS3{}, uploader, "b", "")

	_, err := store.CreateAsset(context.Background(), "x", strings.NewReader(""), AccessPrivate)

	require.NoError(t, err)
	assert.Equal(t, s3.ObjectCannedACLPrivate, aws.StringValue(uploader.inputs[0].ACL))
}

func TestS3Store_CreateAssetError(t *testing.T) {
	store := newS3Store(&fakeS3{}, &fakeUploader{err: errors.New("SlowDown")}, "b", "")

	_, err := store.CreateAsset(context.Background(), "x", strings.NewReader("1"), AccessPublic)

	assert.ErrorContains(t, err, "SlowDown")
}

func TestS3Store_ListAndDelete(t *testing.T) {
	client := &fakeS3{pages: [][]string{
		{"thumbnails/1", "thumbnails/2"},
		{"thumbnails/3"},
	}}
	store := newS3Store(client, &fakeUploader{}, "b", "thumbnails/")

	page, err := store.ListAssets(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Assets, 2)
	assert.Equal(t, "2", page.Assets[0].ID)
	assert.Equal(t, "3", page.Assets[1].ID)

	require.NoError(t, store.DeleteAsset(context.Background(), "2"))
	assert.Equal(t, []string{"thumbnails/2"}, client.deleted)
}
