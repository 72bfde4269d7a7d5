package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/blobstore"
	"github.com/cyderes/catalog-ingestion-service/internal/config"
	"github.com/cyderes/catalog-ingestion-service/internal/events"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/cyderes/catalog-ingestion-service/internal/retry"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
	"go.uber.org/zap"
)

const (
	// itemsPerPage is the fixed size of a TMDB listing page.
	itemsPerPage = 20
	wipePageSize = 100
)

// CatalogWalker ingests one listing page of a catalog.
type CatalogWalker interface {
	WalkMovies(ctx context.Context, page int) (PageResult, error)
	WalkShows(ctx context.Context, page int) (PageResult, error)
}

// PageProgress is the payload published after every walked page.
type PageProgress struct {
	Kind     string     `json:"kind"`
	Page     int        `json:"page"`
	MaxPages int        `json:"max_pages"`
	Result   PageResult `json:"result"`
}

// RunSummary is the payload published when a run ends.
type RunSummary struct {
	Status         string         `json:"status"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	RecordsCreated map[string]int `json:"records_created"`
	Error          string         `json:"error,omitempty"`
}

// Service drives one ingestion run over the configured catalogs
type Service struct {
	config    config.IngestionConfig
	walker    CatalogWalker
	blobs     blobstore.BlobStore
	invoker   *retry.Invoker
	publisher events.Publisher
	tracker   *StatusTracker
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new ingestion service
func NewService(cfg config.IngestionConfig, walker CatalogWalker, blobs blobstore.BlobStore, invoker *retry.Invoker, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:    cfg,
		walker:    walker,
		blobs:     blobs,
		invoker:   invoker,
		publisher: publisher,
		tracker:   NewStatusTracker(),
		logger:    logger,
		now:       time.Now,
	}
}

// Status returns the progress of the current or last run.
func (s *Service) Status() models.IngestionStatus {
	return s.tracker.Status()
}

// OnWriteRecovered is hooked into the retry invoker.
func (s *Service) OnWriteRecovered(attempt int) {
	s.tracker.recovered()
	if err := s.publisher.Publish(context.Background(), events.SubjectWriteRecovered, map[string]int{"attempt": attempt}); err != nil {
		s.logger.Warn("failed to publish event", zap.String("subject", events.SubjectWriteRecovered), zap.Error(err))
	}
}

// Run walks pages 1..MaxPages of every enabled catalog, movies first. The
// first listing failure aborts the run.
func (s *Service) Run(ctx context.Context) error {
	started := s.now()
	s.tracker.start(started.UTC(), s.config.MaxPages)
	s.logger.Info("starting ingestion",
		zap.Int("max_pages", s.config.MaxPages),
		zap.Bool("movies", s.config.Movies),
		zap.Bool("shows", s.config.Shows),
		zap.Int("concurrency", s.config.Concurrency),
	)

	err := s.run(ctx)
	elapsed := s.now().Sub(started)
	s.tracker.finish(s.now().UTC(), err)

	status := s.tracker.Status()
	summary := RunSummary{
		Status:         status.Status,
		ElapsedSeconds: elapsed.Seconds(),
		RecordsCreated: status.RecordsCreated,
	}
	if err != nil {
		summary.Error = err.Error()
	}
	s.publish(ctx, events.SubjectIngestFinished, summary)

	if err != nil {
		s.logger.Error("ingestion failed", zap.Float64("elapsed_seconds", elapsed.Seconds()), zap.Error(err))
		return err
	}

	s.logger.Info("ingestion finished",
		zap.Float64("elapsed_seconds", elapsed.Seconds()),
		zap.Any("records_created", status.RecordsCreated),
		zap.Int("items_skipped", status.ItemsSkipped),
		zap.Int("items_failed", status.ItemsFailed),
		zap.Int("write_recoveries", status.WriteRecoveries),
	)
	return nil
}

func (s *Service) run(ctx context.Context) error {
	if s.config.WipeAssets {
		deleted, err := s.WipeAssets(ctx)
		if err != nil {
			return fmt.Errorf("failed to wipe assets: %w", err)
		}
		s.logger.Info("assets wiped", zap.Int("deleted", deleted))
	}

	if s.config.Movies {
		if err := s.walkCatalog(ctx, tmdb.KindMovie, s.walker.WalkMovies); err != nil {
			return err
		}
	}
	if s.config.Shows {
		if err := s.walkCatalog(ctx, tmdb.KindShow, s.walker.WalkShows); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) walkCatalog(ctx context.Context, kind tmdb.Kind, walk func(context.Context, int) (PageResult, error)) error {
	maxPages := s.config.MaxPages
	s.logger.Info(fmt.Sprintf("will download %d*%d %s items", maxPages, itemsPerPage, kind), zap.String("kind", string(kind)))

	for page := 1; page <= maxPages; page++ {
		res, err := walk(ctx, page)
		if err != nil {
			return fmt.Errorf("%s page %d: %w", kind, page, err)
		}

		s.tracker.page(string(kind), page, res)
		s.logger.Info(fmt.Sprintf("[%d/%d]", page, maxPages),
			zap.String("kind", string(kind)),
			zap.Int("items", res.Items),
			zap.Any("created", res.Created),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
		)
		s.publish(ctx, events.SubjectIngestPage, PageProgress{Kind: string(kind), Page: page, MaxPages: maxPages, Result: res})
	}

	return nil
}

// WipeAssets deletes every asset in the blob store, page by page, and
// returns how many were removed.
func (s *Service) WipeAssets(ctx context.Context) (int, error) {
	deleted := 0
	for {
		page, err := s.blobs.ListAssets(ctx, wipePageSize, 0)
		if err != nil {
			return deleted, err
		}
		if len(page.Assets) == 0 {
			return deleted, nil
		}

		for _, asset := range page.Assets {
			err := s.invoker.Run(ctx, func(ctx context.Context) error {
				return s.blobs.DeleteAsset(ctx, asset.ID)
			})
			if err != nil {
				return deleted, err
			}
			deleted++
		}
		s.logger.Info("deleting assets", zap.Int("deleted", deleted), zap.Int("total", page.Total))
	}
}

func (s *Service) publish(ctx context.Context, subject string, payload any) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}
