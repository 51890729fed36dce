package memory

import (
	"context"
	"sync"

	"github.com/synthmart/shopagent/internal/shopper"
)

// PageIndex maps URLs to blob paths in memory.
type PageIndex struct {
	mu    sync.RWMutex
	paths map[string]string
}

// NewPageIndex constructs a PageIndex.
func NewPageIndex() *PageIndex {
	return &PageIndex{
		paths: make(map[string]string),
	}
}

// Lookup returns the blob path recorded for url.
func (s *PageIndex) Lookup(_ context.Context, url string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.paths[url]
	if !ok {
		return "", shopper.ErrNotFound
	}
	return path, nil
}

// Record stores the URL to blob path mapping. At most one entry per URL;
// an existing entry is left untouched.
func (s *PageIndex) Record(_ context.Context, url, blobPath, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.paths[url]; exists {
		return nil
	}
	s.paths[url] = blobPath
	return nil
}
