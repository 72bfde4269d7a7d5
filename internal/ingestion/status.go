package ingestion

import (
	"maps"
	"sync"
	"time"

	"github.com/cyderes/catalog-ingestion-service/internal/models"
)

// StatusTracker holds the progress of the current run for the status
// endpoint. It is safe for concurrent use.
type StatusTracker struct {
	mu     sync.RWMutex
	status models.IngestionStatus
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: models.IngestionStatus{
		Status:         models.StatusNeverRun,
		RecordsCreated: make(map[string]int),
	}}
}

func (t *StatusTracker) start(at time.Time, maxPages int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = models.IngestionStatus{
		StartedAt:      at,
		Status:         models.StatusRunning,
		MaxPages:       maxPages,
		RecordsCreated: make(map[string]int),
	}
}

func (t *StatusTracker) page(kind string, page int, res PageResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Kind = kind
	t.status.Page = page
	for collection, n := range res.Created {
		t.status.RecordsCreated[collection] += n
	}
	t.status.ItemsSkipped += res.Skipped
	t.status.ItemsFailed += res.Failed
}

func (t *StatusTracker) recovered() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.WriteRecoveries++
}

func (t *StatusTracker) finish(at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.FinishedAt = at
	if err != nil {
		t.status.Status = models.StatusFailure
		t.status.ErrorMessage = err.Error()
		return
	}
	t.status.Status = models.StatusSuccess
}

// Status returns a copy of the current run status.
func (t *StatusTracker) Status() models.IngestionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := t.status
	snapshot.RecordsCreated = maps.Clone(t.status.RecordsCreated)
	return snapshot
}
