// Package fetchcache provides the URL-keyed page cache shared by all
// concurrently running tasks. Content is fetched at most once per URL; a
// single coarse lock serializes cold fetches system-wide and applies a
// polite randomized delay before releasing.
package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/metrics"
	"github.com/synthmart/shopagent/internal/shopper"
)

// PageIndex maps a URL to the blob location of its cached content.
type PageIndex interface {
	Lookup(ctx context.Context, url string) (string, error)
	Record(ctx context.Context, url, blobPath, blobURI string) error
}

// Hasher computes digests used to derive blob paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Config controls Cache behavior.
type Config struct {
	// UserAgents is the pool rotated across cold fetches.
	UserAgents []string
	// DelayMin/DelayMax bound the randomized post-fetch delay.
	DelayMin time.Duration
	DelayMax time.Duration
	// BlobPrefix prefixes every stored page's blob path.
	BlobPrefix string
	// ContentType is recorded on stored blobs.
	ContentType string
}

const acceptLanguage = "en-US,en;q=0.9"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// Cache implements shopper.PageSource. A URL fetched once is trusted for
// the lifetime of the process; there is no refresh or eviction path.
type Cache struct {
	mu       sync.Mutex
	fetcher  Fetcher
	renderer Fetcher
	detector *RenderDetector
	index    PageIndex
	blobs    shopper.BlobStore
	hasher   Hasher
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Cache. The renderer is optional; when present, bodies
// flagged by the detector are refetched through it before being stored.
func New(
	fetcher Fetcher,
	renderer Fetcher,
	detector *RenderDetector,
	index PageIndex,
	blobs shopper.BlobStore,
	hasher Hasher,
	cfg Config,
	logger *zap.Logger,
) *Cache {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.DelayMin <= 0 {
		cfg.DelayMin = 10 * time.Millisecond
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = 80 * time.Millisecond
	}
	if cfg.BlobPrefix == "" {
		cfg.BlobPrefix = "pages"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher:  fetcher,
		renderer: renderer,
		detector: detector,
		index:    index,
		blobs:    blobs,
		hasher:   hasher,
		cfg:      cfg,
		logger:   logger,
	}
}

// Fetch returns the cached content for url, fetching and storing it on a
// miss. Hits return immediately without network I/O or delay.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	if body, ok, err := c.lookup(ctx, url); err != nil {
		return nil, err
	} else if ok {
		metrics.CacheHits.Inc()
		return body, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another task may have filled this URL while we waited for the lock.
	if body, ok, err := c.lookup(ctx, url); err != nil {
		return nil, err
	} else if ok {
		metrics.CacheHits.Inc()
		return body, nil
	}

	metrics.CacheMisses.Inc()
	body, err := c.fetchCold(ctx, url)
	if err != nil {
		metrics.FetchErrors.Inc()
		return nil, &FetchError{URL: url, Err: err}
	}

	if err := c.store(ctx, url, body); err != nil {
		return nil, err
	}

	c.politeDelay(ctx)
	return body, nil
}

func (c *Cache) lookup(ctx context.Context, url string) ([]byte, bool, error) {
	path, err := c.index.Lookup(ctx, url)
	if errors.Is(err, shopper.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("page index lookup: %w", err)
	}
	body, err := c.blobs.GetObject(ctx, path)
	if errors.Is(err, shopper.ErrNotFound) {
		// The index can outlive the blob store, e.g. a durable index over a
		// memory or pruned local backend. Refetch instead of failing forever.
		c.logger.Warn("indexed page blob missing, refetching",
			zap.String("url", url), zap.String("path", path))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached page %s: %w", path, err)
	}
	return body, true, nil
}

func (c *Cache) fetchCold(ctx context.Context, url string) ([]byte, error) {
	headers := http.Header{}
	headers.Set("User-Agent", c.cfg.UserAgents[rand.IntN(len(c.cfg.UserAgents))])
	headers.Set("Accept-Language", acceptLanguage)

	body, err := c.fetcher.Fetch(ctx, url, headers)
	if err != nil {
		return nil, err
	}

	if c.renderer != nil && c.detector.NeedsRender(body) {
		rendered, renderErr := c.renderer.Fetch(ctx, url, headers)
		if renderErr != nil {
			c.logger.Warn("render promotion failed, keeping plain fetch",
				zap.String("url", url), zap.Error(renderErr))
			return body, nil
		}
		return rendered, nil
	}
	return body, nil
}

func (c *Cache) store(ctx context.Context, url string, body []byte) error {
	digest, err := c.hasher.Hash([]byte(url))
	if err != nil {
		return fmt.Errorf("hash url: %w", err)
	}
	path := c.cfg.BlobPrefix + "/" + digest + ".html"
	uri, err := c.blobs.PutObject(ctx, path, c.cfg.ContentType, body)
	if err != nil {
		return fmt.Errorf("store page blob: %w", err)
	}
	if err := c.index.Record(ctx, url, path, uri); err != nil {
		return fmt.Errorf("record page index: %w", err)
	}
	return nil
}

// politeDelay rate-limits the origin by sleeping a randomized interval
// before the cold-fetch lock is released.
func (c *Cache) politeDelay(ctx context.Context) {
	span := c.cfg.DelayMax - c.cfg.DelayMin
	delay := c.cfg.DelayMin
	if span > 0 {
		delay += time.Duration(rand.Int64N(int64(span)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
