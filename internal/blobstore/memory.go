package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps assets in process. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	order  []string
	assets map[string]Asset
	data   map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets: make(map[string]Asset),
		data:   make(map[string][]byte),
	}
}

func (m *MemoryStore) CreateAsset(ctx context.Context, id string, content io.Reader, access AccessPolicy) (Asset, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return Asset{}, fmt.Errorf("failed to read asset %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assets[id]; exists {
		return Asset{}, fmt.Errorf("asset %s already exists", id)
	}

	asset := Asset{ID: id, Size: int64(buf.Len()), Access: access, CreatedAt: time.Now().UTC()}
	m.assets[id] = asset
	m.data[id] = buf.Bytes()
	m.order = append(m.order, id)

	return asset, nil
}

func (m *MemoryStore) ListAssets(_ context.Context, limit, offset int) (AssetPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := AssetPage{Total: len(m.order)}
	for i := offset; i < len(m.order) && len(page.Assets) < limit; i++ {
		page.Assets = append(page.Assets, m.assets[m.order[i]])
	}
	return page, nil
}

func (m *MemoryStore) DeleteAsset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.assets[id]; !exists {
		return fmt.Errorf("asset %s not found", id)
	}

	delete(m.assets, id)
	delete(m.data, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Content returns the stored bytes of an asset.
func (m *MemoryStore) Content(id string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.data[id]
	return data, ok
}

func (m *MemoryStore) Close() error {
	return nil
}
