package fetchcache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Fetcher retrieves a URL and returns the raw response body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error)
}

// CollyFetcher implements Fetcher using the Colly collector.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(requestTimeout time.Duration, logger *zap.Logger) *CollyFetcher {
	base := colly.NewCollector(colly.Async(true))
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(requestTimeout)

	return &CollyFetcher{
		baseCollector: base,
		logger:        logger,
	}
}

// Fetch retrieves a page via a clone of the base collector, applying the
// provided request headers.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		for key, values := range headers {
			for _, value := range values {
				r.Headers.Set(key, value)
			}
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= http.StatusBadRequest {
			send(fetchResult{err: fmt.Errorf("unexpected status %d", r.StatusCode)})
			return
		}
		send(fetchResult{body: append([]byte{}, r.Body...)})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", rawURL, err)
	}

	done := make(chan struct{})
	go func() {
		collector.Wait()
		close(done)
	}()

	// Return as soon as the context is canceled; the abandoned request
	// finishes in the background under the collector's own timeout.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	select {
	case res := <-resultCh:
		return res.body, res.err
	default:
		return nil, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	body []byte
	err  error
}
