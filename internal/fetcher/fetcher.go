package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	MaxConcurrent int
	Spacing       time.Duration
}

// Fetcher downloads EDGAR pages using a Colly collector cloned per request.
// All downloads, index pages included, queue on one shared Limiter.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       *Limiter
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Cloned collectors share the visit store; the same document may be
	// fetched again in a later cycle.
	c.AllowURLRevisit = true
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       NewLimiter(cfg.MaxConcurrent, cfg.Spacing),
		logger:        logger,
	}
}

// Download fetches url under the global limiter and returns the body.
// Non-2xx responses and transport failures return an error without retry;
// the caller treats failure as "no document" for this cycle.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer f.limiter.Release()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("download canceled: %w", err)
	}

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetch %s: %w", url, err)
	})

	if err := collector.Visit(url); err != nil {
		return nil, fmt.Errorf("visit %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	f.logger.Debug("downloaded document", zap.String("url", url), zap.Int("bytes", len(body)))
	return body, nil
}
