// Package scraper turns a URL into cleaned plain text for analysis.
package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// FetchResult is a single-page fetch outcome.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher retrieves a single page over plain HTTP using a Colly collector.
type Fetcher struct {
	userAgent string
	timeout   time.Duration
	base      *colly.Collector
}

// NewFetcher builds a Fetcher. A zero timeout defaults to 15s.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		userAgent: userAgent,
		timeout:   timeout,
		base:      c,
	}
}

// Fetch executes one GET and returns the response body. Non-2xx statuses
// surface through Colly's error callback and fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	var (
		result   FetchResult
		fetchErr error
	)
	start := time.Now()

	collector := f.base.Clone()
	collector.UserAgent = f.userAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.timeout)

	collector.OnResponse(func(r *colly.Response) {
		result = FetchResult{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return FetchResult{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return FetchResult{}, fmt.Errorf("visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return FetchResult{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		return result, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
