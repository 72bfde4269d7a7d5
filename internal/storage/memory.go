package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyderes/catalog-ingestion-service/internal/models"
	"github.com/google/uuid"
)

// MemoryStorage keeps an ordered, in-process log of every write. It backs
// dry runs and the pipeline tests.
type MemoryStorage struct {
	mu      sync.Mutex
	records []models.Record
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) CreateRecord(_ context.Context, collection string, fields models.Fields) (models.Record, error) {
	if !isKnownCollection(collection) {
		return models.Record{}, fmt.Errorf("unknown collection %q", collection)
	}

	copied := make(models.Fields, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	record := models.Record{ID: uuid.NewString(), Collection: collection, Fields: copied}

	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()

	return record, nil
}

// Records returns every write in the order it was acknowledged.
func (m *MemoryStorage) Records() []models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Collection returns the writes to one collection, in order.
func (m *MemoryStorage) Collection(collection string) []models.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Record
	for _, r := range m.records {
		if r.Collection == collection {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of writes per collection.
func (m *MemoryStorage) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[string]int, len(Collections))
	for _, r := range m.records {
		counts[r.Collection]++
	}
	return counts
}

func (m *MemoryStorage) Close() error {
	return nil
}
