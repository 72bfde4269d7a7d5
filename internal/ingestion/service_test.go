package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cyderes/catalog-ingestion-service/internal/blobstore"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/events"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/cyderes/catalog-ingestion-service/internal/storage"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
)

// MockWalker is a mock implementation of the CatalogWalker interface
type MockWalker struct {
	mock.Mock
}

func (m *MockWalker) WalkMovies(ctx context.Context, page int) (PageResult, error) {
	args := m.Called(ctx, page)
	return args.Get(0).(PageResult), args.Error(1)
}

func (m *MockWalker) WalkShows(ctx context.Context, page int) (PageResult, error) {
	args := m.Called(ctx, page)
	return args.Get(0).(PageResult), args.Error(1)
}

func created(collection string, n int) PageResult {
	return PageResult{Items: 20, Created: map[string]int{collection: n}}
}

func TestService_RunWalksPagesInOrder(t *testing.T) {
	// Create mock walker
	walker := new(MockWalker)
	var pages []int
	for page := 1; page <= 3; page++ {
		walker.On("WalkMovies", mock.Anything, page).
			Run(func(args mock.Arguments) { pages = append(pages, args.Int(1)) }).
			Return(created(models.CollectionMovies, 2), nil).Once()
	}

	cfg := config.IngestionConfig{MaxPages: 3, Movies: true}
	publisher := &recordingPublisher{}
	service := NewService(cfg, walker, blobstore.NewMemoryStore(), testInvoker(), publisher, zap.NewNop())

	// Test Run
	err := service.Run(context.Background())

	// Assertions
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pages)
	walker.AssertExpectations(t)
	walker.AssertNotCalled(t, "WalkShows", mock.Anything, mock.Anything)

	status := service.Status()
	assert.Equal(t, models.StatusSuccess, status.Status)
	assert.Equal(t, 3, status.Page)
	assert.Equal(t, 3, status.MaxPages)
	assert.Equal(t, "movie", status.Kind)
	assert.Equal(t, 6, status.RecordsCreated[models.CollectionMovies])
	assert.False(t, status.FinishedAt.IsZero())

	assert.Equal(t, 3, publisher.Count(events.SubjectIngestPage))
	assert.Equal(t, 1, publisher.Count(events.SubjectIngestFinished))
}

func TestService_RunStopsOnListingFailure(t *testing.T) {
	walker := new(MockWalker)
	walker.On("WalkMovies", mock.Anything, 1).Return(created(models.CollectionMovies, 1), nil).Once()
	walker.On("WalkMovies", mock.Anything, 2).Return(PageResult{}, errors.New("failed to list popular movies page 2: 500")).Once()

	cfg := config.IngestionConfig{MaxPages: 5, Movies: true, Shows: true}
	publisher := &recordingPublisher{}
	service := NewService(cfg, walker, blobstore.NewMemoryStore(), testInvoker(), publisher, zap.NewNop())

	err := service.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "movie page 2")
	walker.AssertExpectations(t)
	walker.AssertNotCalled(t, "WalkMovies", mock.Anything, 3)
	walker.AssertNotCalled(t, "WalkShows", mock.Anything, mock.Anything)

	status := service.Status()
	assert.Equal(t, models.StatusFailure, status.Status)
	assert.Contains(t, status.ErrorMessage, "page 2")
	assert.Equal(t, 1, status.RecordsCreated[models.CollectionMovies])

	require.Equal(t, 1, publisher.Count(events.SubjectIngestFinished))
	summary, ok := publisher.payloads[len(publisher.payloads)-1].(RunSummary)
	require.True(t, ok)
	assert.Equal(t, models.StatusFailure, summary.Status)
	assert.NotEmpty(t, summary.Error)
}

func TestService_RunWalksShowsAfterMovies(t *testing.T) {
	walker := new(MockWalker)
	var order []string
	walker.On("WalkMovies", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "movies") }).
		Return(created(models.CollectionMovies, 1), nil)
	walker.On("WalkShows", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "shows") }).
		Return(PageResult{Created: map[string]int{models.CollectionShows: 1, models.CollectionEpisodes: 10}, Skipped: 2}, nil)

	cfg := config.IngestionConfig{MaxPages: 2, Movies: true, Shows: true}
	service := NewService(cfg, walker, blobstore.NewMemoryStore(), testInvoker(), nil, nil)

	require.NoError(t, service.Run(context.Background()))

	assert.Equal(t, []string{"movies", "movies", "shows", "shows"}, order)
	status := service.Status()
	assert.Equal(t, "tv", status.Kind)
	assert.Equal(t, 2, status.RecordsCreated[models.CollectionShows])
	assert.Equal(t, 20, status.RecordsCreated[models.CollectionEpisodes])
	assert.Equal(t, 4, status.ItemsSkipped)
}

func TestService_StatusBeforeRun(t *testing.T) {
	service := NewService(config.IngestionConfig{}, new(MockWalker), blobstore.NewMemoryStore(), testInvoker(), nil, nil)

	status := service.Status()

	assert.Equal(t, models.StatusNeverRun, status.Status)
	assert.Empty(t, status.RecordsCreated)
}

func TestService_WipeAssets(t *testing.T) {
	blobs := blobstore.NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < wipePageSize+25; i++ {
		_, err := blobs.CreateAsset(ctx, callKey("asset", i), strings.NewReader("img"), blobstore.AccessPublic)
		require.NoError(t, err)
	}

	service := NewService(config.IngestionConfig{}, new(MockWalker), blobs, testInvoker(), nil, nil)

	deleted, err := service.WipeAssets(ctx)

	require.NoError(t, err)
	assert.Equal(t, wipePageSize+25, deleted)
	page, err := blobs.ListAssets(ctx, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestService_RunWipesAssetsFirst(t *testing.T) {
	blobs := new(MockBlobStore)
	blobs.On("ListAssets", mock.Anything, wipePageSize, 0).
		Return(blobstore.AssetPage{Assets: []blobstore.Asset{{ID: "old-1"}, {ID: "old-2"}}, Total: 2}, nil).Once()
	blobs.On("ListAssets", mock.Anything, wipePageSize, 0).
		Return(blobstore.AssetPage{}, nil).Once()
	blobs.On("DeleteAsset", mock.Anything, "old-1").Return(errors.New("throttled")).Once()
	blobs.On("DeleteAsset", mock.Anything, "old-1").Return(nil).Once()
	blobs.On("DeleteAsset", mock.Anything, "old-2").Return(nil).Once()

	walker := new(MockWalker)
	walker.On("WalkMovies", mock.Anything, 1).Return(created(models.CollectionMovies, 1), nil).Once()

	cfg := config.IngestionConfig{MaxPages: 1, Movies: true, WipeAssets: true}
	service := NewService(cfg, walker, blobs, testInvoker(), nil, nil)

	require.NoError(t, service.Run(context.Background()))

	blobs.AssertExpectations(t)
	walker.AssertExpectations(t)
}

func TestService_OnWriteRecovered(t *testing.T) {
	publisher := &recordingPublisher{}
	service := NewService(config.IngestionConfig{}, new(MockWalker), blobstore.NewMemoryStore(), testInvoker(), publisher, nil)

	service.OnWriteRecovered(2)
	service.OnWriteRecovered(5)

	assert.Equal(t, 2, service.Status().WriteRecoveries)
	assert.Equal(t, 2, publisher.Count(events.SubjectWriteRecovered))
}

func TestService_RunEndToEnd(t *testing.T) {
	// Page 1 holds an item without a poster, page 2 a complete movie.
	provider := newFakeProvider()
	addMovie(provider, 1, tmdb.ListItem{ID: 1, Title: "Posterless"}, tmdb.MovieDetail{Runtime: 80})
	addMovie(provider, 2,
		tmdb.ListItem{ID: 2, Title: "X", PosterPath: "/x.jpg"},
		tmdb.MovieDetail{Title: "X", Runtime: 45, ReleaseDate: "2020-05-01"},
	)

	store := &flakyStore{MemoryStorage: storage.NewMemoryStorage(), failures: 1}
	blobs := blobstore.NewMemoryStore()
	walker := newTestWalker(provider, &fakeImages{}, store, blobs)

	cfg := config.IngestionConfig{MaxPages: 2, Movies: true}
	service := NewService(cfg, walker, blobs, walker.Invoker, nil, nil)
	walker.Invoker.OnRecovered = service.OnWriteRecovered

	require.NoError(t, service.Run(context.Background()))

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "X", records[0].Fields["name"])

	page, err := blobs.ListAssets(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Assets, 1)
	assert.Equal(t, page.Assets[0].ID, records[0].Fields["thumbnailImageId"])

	status := service.Status()
	assert.Equal(t, models.StatusSuccess, status.Status)
	assert.Equal(t, 1, status.ItemsSkipped)
	assert.Equal(t, 1, status.RecordsCreated[models.CollectionMovies])
	assert.Equal(t, 1, status.WriteRecoveries)
}
