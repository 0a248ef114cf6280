package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
)

// Config controls the feed client.
type Config struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches and normalizes the EDGAR Atom feed.
type Client struct {
	cfg     Config
	http    *http.Client
	parser  *gofeed.Parser
	tickers *TickerTable
	logger  *zap.Logger
}

// NewClient builds a Client. A nil httpClient gets a default with the
// configured timeout.
func NewClient(cfg Config, httpClient *http.Client, tickers *TickerTable, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if tickers == nil {
		tickers = NewTickerTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		parser:  gofeed.NewParser(),
		tickers: tickers,
		logger:  logger,
	}
}

// Poll fetches the feed once and returns the normalized filings. The raw
// entry count and matched count are logged; entries that are not filing
// announcements or map to no segment are silently dropped.
func (c *Client) Poll(ctx context.Context) ([]filing.Filing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	// Accept-Encoding stays unset so the transport negotiates gzip and
	// decompresses transparently.
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	parsed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	filings := make([]filing.Filing, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if f, ok := Normalize(item, c.tickers); ok {
			filings = append(filings, f)
		}
	}
	c.logger.Debug("feed polled",
		zap.Int("entries", len(parsed.Items)),
		zap.Int("matched", len(filings)),
	)
	return filings, nil
}
