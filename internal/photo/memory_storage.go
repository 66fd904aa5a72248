package photo

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStorage is an in-memory implementation of Storage for testing.
type InMemoryStorage struct {
	mu     sync.Mutex
	photos map[string][]byte
}

// NewInMemoryStorage creates a new in-memory photo store.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{photos: make(map[string][]byte)}
}

// Save keeps the photo in memory and returns a synthetic URL.
func (s *InMemoryStorage) Save(_ context.Context, deviceID string, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPhoto
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("memory://photos/%s", deviceID)
	s.photos[url] = data
	return url, nil
}

// Get returns a stored photo by URL, for test assertions.
func (s *InMemoryStorage) Get(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.photos[url]
	return data, ok
}

// Ensure InMemoryStorage implements Storage interface.
var _ Storage = (*InMemoryStorage)(nil)
