package scraper

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
)

// PageFetcher retrieves a raw page body.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// DOMRenderer produces a fully rendered DOM for script-heavy pages.
type DOMRenderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Scraper fetches a page, optionally promotes it to a headless render, and
// returns cleaned text. Every failure degrades to empty content; the
// pipeline runs regardless.
type Scraper struct {
	fetcher  PageFetcher
	renderer DOMRenderer
	detector *Heuristic
	blobs    analysis.BlobStore
	logger   *zap.Logger
}

// Option configures optional scraper collaborators.
type Option func(*Scraper)

// WithRenderer enables headless promotion for pages the detector flags.
func WithRenderer(r DOMRenderer, d *Heuristic) Option {
	return func(s *Scraper) {
		s.renderer = r
		s.detector = d
	}
}

// WithBlobStore dumps each scrape to "<host>.txt" in the given store.
func WithBlobStore(b analysis.BlobStore) Option {
	return func(s *Scraper) {
		s.blobs = b
	}
}

// New builds a Scraper around a fetcher.
func New(fetcher PageFetcher, logger *zap.Logger, opts ...Option) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scraper{
		fetcher: fetcher,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns the page's cleaned text, or "" when anything goes wrong.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) string {
	body, ok := s.fetchBody(ctx, pageURL)
	if !ok {
		return ""
	}

	text, err := ExtractText(body)
	if err != nil {
		s.logger.Warn("text extraction failed", zap.String("url", pageURL), zap.Error(err))
		return ""
	}

	s.dump(ctx, pageURL, text)
	return text
}

func (s *Scraper) fetchBody(ctx context.Context, pageURL string) ([]byte, bool) {
	res, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		s.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	body := res.Body

	if s.renderer == nil || s.detector == nil || !s.detector.NeedsRender(body) {
		return body, true
	}

	rendered, err := s.renderer.Render(ctx, pageURL)
	if err != nil {
		// Fall back to the plain body; a partial read beats none.
		s.logger.Warn("headless render failed", zap.String("url", pageURL), zap.Error(err))
		return body, true
	}
	return rendered, true
}

// dump writes the cleaned text to "<host>.txt". Failures are logged and
// otherwise ignored; the dump is a side artifact, not part of the contract.
func (s *Scraper) dump(ctx context.Context, pageURL, text string) {
	if s.blobs == nil {
		return
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		s.logger.Warn("skipping scrape dump for unparseable url", zap.String("url", pageURL))
		return
	}
	path := u.Host + ".txt"
	if _, err := s.blobs.PutObject(ctx, path, "text/plain; charset=utf-8", []byte(text)); err != nil {
		s.logger.Warn("scrape dump failed", zap.String("path", path), zap.Error(err))
	}
}
