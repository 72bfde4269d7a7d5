package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cyderes/catalog-ingestion-service/internal/events"
	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/cyderes/catalog-ingestion-service/internal/retry"
	"github.com/cyderes/catalog-ingestion-service/internal/storage"
	"github.com/cyderes/catalog-ingestion-service/internal/tmdb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageResult summarises one walked listing page.
type PageResult struct {
	Items   int            `json:"items"`
	Created map[string]int `json:"created"`
	Skipped int            `json:"skipped"`
	Failed  int            `json:"failed"`
}

func newPageResult() PageResult {
	return PageResult{Created: make(map[string]int)}
}

// itemResult is the outcome of one listing item and its record tree.
type itemResult struct {
	created map[string]int
	skipped bool
	failed  bool
}

// RecordCreated is the payload published for every persisted record.
type RecordCreated struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	TMDBID     int    `json:"tmdb_id"`
}

// Walker turns listing pages into catalog records. Items of one page are
// processed by up to Concurrency goroutines; the records of a single item
// are always written parent first.
type Walker struct {
	Provider  tmdb.Provider
	Uploader  *Uploader
	Store     storage.DocumentStore
	Invoker   *retry.Invoker
	Shape     Shape
	Enricher  Enricher
	Publisher events.Publisher
	Logger    *zap.Logger

	Concurrency    int
	MovieImageSize string
	ShowImageSize  string
}

// NewWalker returns a sequential walker writing the default shape without
// synthetic enrichment or event publishing.
func NewWalker(provider tmdb.Provider, uploader *Uploader, store storage.DocumentStore, invoker *retry.Invoker, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{
		Provider:       provider,
		Uploader:       uploader,
		Store:          store,
		Invoker:        invoker,
		Shape:          DefaultShape(),
		Enricher:       NoEnrichment{},
		Publisher:      events.Nop{},
		Logger:         logger,
		Concurrency:    1,
		MovieImageSize: "original",
		ShowImageSize:  "w500",
	}
}

// WalkMovies ingests every movie on one page of the popular movie listing.
// A listing failure is returned; item failures are only counted.
func (w *Walker) WalkMovies(ctx context.Context, page int) (PageResult, error) {
	listing, err := w.Provider.ListPopular(ctx, tmdb.KindMovie, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to list popular movies page %d: %w", page, err)
	}

	return w.walkItems(ctx, listing.Results, w.ingestMovie)
}

// WalkShows ingests every show on one page of the popular TV listing,
// including all seasons and episodes.
func (w *Walker) WalkShows(ctx context.Context, page int) (PageResult, error) {
	listing, err := w.Provider.ListPopular(ctx, tmdb.KindShow, page)
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to list popular shows page %d: %w", page, err)
	}

	return w.walkItems(ctx, listing.Results, w.ingestShow)
}

func (w *Walker) walkItems(ctx context.Context, items []tmdb.ListItem, ingest func(context.Context, tmdb.ListItem) (itemResult, error)) (PageResult, error) {
	result := newPageResult()
	result.Items = len(items)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(w.Concurrency, 1))

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			res, err := ingest(gctx, item)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for collection, n := range res.created {
				result.Created[collection] += n
			}
			if res.skipped {
				result.Skipped++
			}
			if res.failed {
				result.Failed++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	// A cancelled parent stops the loop without any goroutine failing.
	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

type movieParts struct {
	detail      *tmdb.MovieDetail
	keywords    []tmdb.Keyword
	credits     *tmdb.Credits
	thumbnailID string
}

func (w *Walker) ingestMovie(ctx context.Context, item tmdb.ListItem) (itemResult, error) {
	log := w.Logger.With(zap.String("kind", string(tmdb.KindMovie)), zap.Int("tmdb_id", item.ID), zap.String("title", item.DisplayName()))
	res := itemResult{created: make(map[string]int)}

	imagePath := item.ImagePath()
	if imagePath == "" {
		log.Info("skipping item without poster or backdrop")
		res.skipped = true
		return res, nil
	}

	var parts movieParts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		parts.detail, err = w.Provider.GetMovie(gctx, item.ID)
		return wrapFetch("detail", err)
	})
	g.Go(func() (err error) {
		parts.keywords, err = w.Provider.GetKeywords(gctx, tmdb.KindMovie, item.ID)
		return wrapFetch("keywords", err)
	})
	g.Go(func() (err error) {
		parts.credits, err = w.Provider.GetCredits(gctx, tmdb.KindMovie, item.ID)
		return wrapFetch("credits", err)
	})
	if err := g.Wait(); err != nil {
		return w.itemFailed(ctx, log, res, err)
	}

	// Upload after the join so a failed sub-fetch leaves no asset behind.
	thumbnailID, err := w.Uploader.Upload(ctx, w.MovieImageSize, imagePath)
	if err != nil {
		return w.itemFailed(ctx, log, res, fmt.Errorf("failed to upload thumbnail: %w", err))
	}
	parts.thumbnailID = thumbnailID

	record := BuildMovie(item, parts.detail, parts.keywords, parts.credits, parts.thumbnailID)
	w.Enricher.EnrichMovie(&record)

	if _, err := w.persist(ctx, models.CollectionMovies, record, item.ID); err != nil {
		return w.itemFailed(ctx, log, res, err)
	}
	res.created[models.CollectionMovies]++

	log.Debug("movie ingested")
	return res, nil
}

type showParts struct {
	detail      *tmdb.ShowDetail
	keywords    []tmdb.Keyword
	credits     *tmdb.Credits
	thumbnailID string
}

func (w *Walker) ingestShow(ctx context.Context, item tmdb.ListItem) (itemResult, error) {
	log := w.Logger.With(zap.String("kind", string(tmdb.KindShow)), zap.Int("tmdb_id", item.ID), zap.String("title", item.DisplayName()))
	res := itemResult{created: make(map[string]int)}

	imagePath := item.ImagePath()
	if imagePath == "" {
		log.Info("skipping item without poster or backdrop")
		res.skipped = true
		return res, nil
	}

	var parts showParts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		parts.detail, err = w.Provider.GetShow(gctx, item.ID)
		return wrapFetch("detail", err)
	})
	g.Go(func() (err error) {
		parts.keywords, err = w.Provider.GetKeywords(gctx, tmdb.KindShow, item.ID)
		return wrapFetch("keywords", err)
	})
	g.Go(func() (err error) {
		parts.credits, err = w.Provider.GetCredits(gctx, tmdb.KindShow, item.ID)
		return wrapFetch("credits", err)
	})
	if err := g.Wait(); err != nil {
		return w.itemFailed(ctx, log, res, err)
	}

	// Upload after the join so a failed sub-fetch leaves no asset behind.
	thumbnailID, err := w.Uploader.Upload(ctx, w.ShowImageSize, imagePath)
	if err != nil {
		return w.itemFailed(ctx, log, res, fmt.Errorf("failed to upload thumbnail: %w", err))
	}
	parts.thumbnailID = thumbnailID

	show, err := w.persist(ctx, models.CollectionShows, BuildShow(item, parts.detail, parts.keywords, parts.credits, parts.thumbnailID), item.ID)
	if err != nil {
		return w.itemFailed(ctx, log, res, err)
	}
	res.created[models.CollectionShows]++

	for sortIndex, summary := range parts.detail.Seasons {
		if sortIndex > models.MaxSortIndex {
			log.Warn("season list exceeds sortIndex range, truncating", zap.Int("seasons", len(parts.detail.Seasons)))
			break
		}

		season, err := w.persist(ctx, models.CollectionSeasons, BuildSeason(show.ID, sortIndex, summary), item.ID)
		if err != nil {
			return w.itemFailed(ctx, log, res, err)
		}
		res.created[models.CollectionSeasons]++

		// The episode list is only known once the season has been identified.
		detail, err := w.Provider.GetSeason(ctx, item.ID, summary.SeasonNumber)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Error("failed to fetch season, its episodes are skipped", zap.Int("season_number", summary.SeasonNumber), zap.Error(err))
			res.failed = true
			continue
		}

		for episodeIndex, episode := range detail.Episodes {
			if episodeIndex > models.MaxSortIndex {
				log.Warn("episode list exceeds sortIndex range, truncating", zap.Int("season_number", summary.SeasonNumber), zap.Int("episodes", len(detail.Episodes)))
				break
			}

			if _, err := w.persist(ctx, models.CollectionEpisodes, BuildEpisode(season.ID, episodeIndex, episode), item.ID); err != nil {
				return w.itemFailed(ctx, log, res, err)
			}
			res.created[models.CollectionEpisodes]++
		}
	}

	log.Debug("show ingested", zap.Int("seasons", res.created[models.CollectionSeasons]), zap.Int("episodes", res.created[models.CollectionEpisodes]))
	return res, nil
}

// persist encodes record for the configured shape and writes it through
// the invoker.
func (w *Walker) persist(ctx context.Context, collection string, record any, tmdbID int) (models.Record, error) {
	fields, err := w.Shape.Encode(record)
	if err != nil {
		return models.Record{}, err
	}

	created, err := retry.Do(ctx, w.Invoker, func(ctx context.Context) (models.Record, error) {
		return w.Store.CreateRecord(ctx, collection, fields)
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to persist %s record: %w", collection, err)
	}

	w.publish(ctx, events.SubjectRecordCreated, RecordCreated{Collection: collection, ID: created.ID, TMDBID: tmdbID})
	return created, nil
}

func (w *Walker) publish(ctx context.Context, subject string, payload any) {
	if err := w.Publisher.Publish(ctx, subject, payload); err != nil {
		w.Logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

// itemFailed logs and counts a failed item. Cancellation is not an item
// failure and is returned so the page stops.
func (w *Walker) itemFailed(ctx context.Context, log *zap.Logger, res itemResult, err error) (itemResult, error) {
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	log.Error("item failed, skipping", zap.Error(err))

	var failed *tmdb.FailedRequestError
	if errors.As(err, &failed) {
		log.Error("provider request failed",
			zap.Int("http_code", failed.HTTPCode),
			zap.Int("tmdb_code", failed.TMDBCode),
			zap.String("message", failed.Message),
		)
	}

	res.failed = true
	return res, nil
}

func wrapFetch(part string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to fetch %s: %w", part, err)
}
