package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/stagehand-music/stagehand/internal/domain"
)

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in memory for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// NewMemory creates an empty MemoryStore serving URLs under baseURL.
func NewMemory(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: baseURL, objects: make(map[string]Object)}
}

// Put stores a copy of data under key.
func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte, overwrite bool) (string, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; exists && !overwrite {
		return "", fmt.Errorf("%w: %s", domain.ErrAlreadyExists, key)
	}
	m.objects[key] = Object{ContentType: contentType, Data: append([]byte(nil), data...)}
	return joinURL(m.baseURL, key), nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

