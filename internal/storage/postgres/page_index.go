package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/synthmart/shopagent/internal/shopper"
)

// PageIndex implements the fetchcache.PageIndex interface using Postgres.
type PageIndex struct {
	pool Pool
}

// NewPageIndex creates a PageIndex on an existing pool.
func NewPageIndex(pool Pool) (*PageIndex, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PageIndex{pool: pool}, nil
}

// Lookup returns the blob path recorded for url.
func (s *PageIndex) Lookup(ctx context.Context, url string) (string, error) {
	query := `SELECT blob_path FROM pages WHERE url = $1;`
	var path string
	if err := s.pool.QueryRow(ctx, query, url).Scan(&path); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shopper.ErrNotFound
		}
		return "", fmt.Errorf("lookup page: %w", err)
	}
	return path, nil
}

// Record stores the URL to blob mapping. An existing entry wins: once
// written, a page row is immutable.
func (s *PageIndex) Record(ctx context.Context, url, blobPath, blobURI string) error {
	query := `
		INSERT INTO pages (url, blob_path, blob_uri)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING;
	`
	if _, err := s.pool.Exec(ctx, query, url, blobPath, blobURI); err != nil {
		return fmt.Errorf("record page: %w", err)
	}
	return nil
}
