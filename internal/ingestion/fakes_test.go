package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/cyderes/catalog-ingestion-service/internal/blobstore"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/cyderes/catalog-ingestion-service/internal/retry"
	"github.com/cyderes/catalog-ingestion-service/internal/storage"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
)

var errUnavailable = errors.New("503 service unavailable")

// fakeProvider serves canned TMDB responses keyed by id.
type fakeProvider struct {
	pages    map[tmdb.Kind]map[int]*tmdb.ListingPage
	movies   map[int]*tmdb.MovieDetail
	shows    map[int]*tmdb.ShowDetail
	keywords map[int][]tmdb.Keyword
	credits  map[int]*tmdb.Credits
	seasons  map[[2]int]*tmdb.SeasonDetail
	listErr  error
	failures map[string]error

	mu    sync.Mutex
	calls []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		pages:    map[tmdb.Kind]map[int]*tmdb.ListingPage{tmdb.KindMovie: {}, tmdb.KindShow: {}},
		movies:   map[int]*tmdb.MovieDetail{},
		shows:    map[int]*tmdb.ShowDetail{},
		keywords: map[int][]tmdb.Keyword{},
		credits:  map[int]*tmdb.Credits{},
		seasons:  map[[2]int]*tmdb.SeasonDetail{},
		failures: map[string]error{},
	}
}

func (f *fakeProvider) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failures[call]
}

func notFound() error {
	return &tmdb.FailedRequestError{HTTPCode: http.StatusNotFound, TMDBCode: 34, Message: "The resource you requested could not be found."}
}

func (f *fakeProvider) ListPopular(_ context.Context, kind tmdb.Kind, page int) (*tmdb.ListingPage, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	if listing, ok := f.pages[kind][page]; ok {
		return listing, nil
	}
	return &tmdb.ListingPage{Page: page}, nil
}

func (f *fakeProvider) GetMovie(_ context.Context, id int) (*tmdb.MovieDetail, error) {
	if err := f.record(callKey("movie", id)); err != nil {
		return nil, err
	}
	if detail, ok := f.movies[id]; ok {
		return detail, nil
	}
	return nil, notFound()
}

func (f *fakeProvider) GetShow(_ context.Context, id int) (*tmdb.ShowDetail, error) {
	if err := f.record(callKey("show", id)); err != nil {
		return nil, err
	}
	if detail, ok := f.shows[id]; ok {
		return detail, nil
	}
	return nil, notFound()
}

func (f *fakeProvider) GetKeywords(_ context.Context, _ tmdb.Kind, id int) ([]tmdb.Keyword, error) {
	if err := f.record(callKey("keywords", id)); err != nil {
		return nil, err
	}
	return f.keywords[id], nil
}

func (f *fakeProvider) GetCredits(_ context.Context, _ tmdb.Kind, id int) (*tmdb.Credits, error) {
	if err := f.record(callKey("credits", id)); err != nil {
		return nil, err
	}
	if credits, ok := f.credits[id]; ok {
		return credits, nil
	}
	return &tmdb.Credits{ID: id}, nil
}

func (f *fakeProvider) GetSeason(_ context.Context, showID int, seasonNumber int) (*tmdb.SeasonDetail, error) {
	if err := f.record(callKey("season", showID*1000+seasonNumber)); err != nil {
		return nil, err
	}
	if season, ok := f.seasons[[2]int{showID, seasonNumber}]; ok {
		return season, nil
	}
	return nil, notFound()
}

func callKey(kind string, id int) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// fakeImages serves image bytes and counts downloads.
type fakeImages struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeImages) FetchImage(_ context.Context, size string, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(size + path)), nil
}

func (f *fakeImages) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MockBlobStore is a mock implementation of the BlobStore interface
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) CreateAsset(ctx context.Context, id string, content io.Reader, access blobstore.AccessPolicy) (blobstore.Asset, error) {
	// Drain the stream the way a real store would.
	_, _ = io.Copy(io.Discard, content)
	args := m.Called(ctx, id, content, access)
	return args.Get(0).(blobstore.Asset), args.Error(1)
}

func (m *MockBlobStore) ListAssets(ctx context.Context, limit, offset int) (blobstore.AssetPage, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(blobstore.AssetPage), args.Error(1)
}

func (m *MockBlobStore) DeleteAsset(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBlobStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// flakyStore fails the first failures writes and then delegates.
type flakyStore struct {
	*storage.MemoryStorage

	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) CreateRecord(ctx context.Context, collection string, fields models.Fields) (models.Record, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()

	if fail {
		return models.Record{}, errUnavailable
	}
	return f.MemoryStorage.CreateRecord(ctx, collection, fields)
}

// recordingPublisher keeps every published subject.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

func testInvoker() *retry.Invoker {
	return retry.New(time.Millisecond, zap.NewNop())
}

// newTestWalker wires a sequential walker over in-memory stores.
func newTestWalker(provider tmdb.Provider, images tmdb.ImageFetcher, store storage.DocumentStore, blobs blobstore.BlobStore) *Walker {
	invoker := testInvoker()
	return NewWalker(provider, NewUploader(images, blobs, invoker), store, invoker, zap.NewNop())
}
