package ingestion

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/models"
)

// Enricher fills the synthetic movie attributes that have no provider
// source: isOriginal, netflixReleaseDate and, optionally, trendingIndex.
type Enricher interface {
	EnrichMovie(record *models.MovieRecord)
}

// NoEnrichment leaves records exactly as the builder produced them.
type NoEnrichment struct{}

func (NoEnrichment) EnrichMovie(*models.MovieRecord) {}

// RandomEnricher generates demo values for the synthetic attributes.
// It is safe for concurrent use.
type RandomEnricher struct {
	// OriginalRatio is the probability of a movie being marked original.
	OriginalRatio float64
	// WindowDays bounds how far in the past netflixReleaseDate may fall.
	WindowDays int
	// RandomTrending replaces the popularity based trendingIndex with a
	// value in 1..100.
	RandomTrending bool

	Now func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
}

// NewRandomEnricher seeds a generator from the clock.
func NewRandomEnricher(randomTrending bool) *RandomEnricher {
	seed := uint64(time.Now().UnixNano())
	return NewSeededEnricher(randomTrending, seed)
}

// NewSeededEnricher returns a deterministic enricher.
func NewSeededEnricher(randomTrending bool, seed uint64) *RandomEnricher {
	return &RandomEnricher{
		OriginalRatio:  0.3,
		WindowDays:     1000,
		RandomTrending: randomTrending,
		Now:            time.Now,
		rand:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (e *RandomEnricher) EnrichMovie(record *models.MovieRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	record.IsOriginal = e.rand.Float64() < e.OriginalRatio

	daysAgo := int64(math.Round(e.rand.Float64() * float64(e.WindowDays)))
	record.NetflixReleaseDate = e.Now().Unix() - daysAgo*86400

	if e.RandomTrending {
		record.TrendingIndex = 1 + math.Round(99*e.rand.Float64())
	}
}
