package pagecache

import (
	"context"
	"sync"
)

// Memory is a non-persistent cache, handy for tests and --dry-run style runs.
type Memory struct {
	mu     sync.RWMutex
	pages  map[string]Entry
	images map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		pages:  make(map[string]Entry),
		images: make(map[string]string),
	}
}

func (m *Memory) GetPage(ctx context.Context, id string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.pages[id]
	return e, ok, nil
}

func (m *Memory) PutPage(ctx context.Context, id string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pages[id] = e
	return nil
}

func (m *Memory) LookupImage(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.images[key]
	return p, ok, nil
}

func (m *Memory) SaveImage(ctx context.Context, key string, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.images[key] = localPath
	return nil
}
