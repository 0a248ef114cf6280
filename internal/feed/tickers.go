package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// TickerTable maps CIK identifiers to exchange tickers. It is loaded once at
// startup, best-effort; an empty table simply yields no tickers.
type TickerTable struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewTickerTable returns an empty table.
func NewTickerTable() *TickerTable {
	return &TickerTable{m: make(map[string]string)}
}

// tickerEntry mirrors one value of the SEC company_tickers.json object.
type tickerEntry struct {
	CIK    json.Number `json:"cik_str"`
	Ticker string      `json:"ticker"`
}

// Load downloads the bulk CIK-to-ticker JSON and replaces the table contents.
// Callers treat failure as non-fatal; lookups then return "".
func (t *TickerTable) Load(ctx context.Context, client *http.Client, url, userAgent string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build ticker map request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch ticker map: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ticker map returned status %d", resp.StatusCode)
	}

	var raw map[string]tickerEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("decode ticker map: %w", err)
	}

	m := make(map[string]string, len(raw))
	for _, e := range raw {
		if e.Ticker == "" {
			continue
		}
		// cik_str arrives as a bare number; keys are unpadded decimal CIKs.
		m[e.CIK.String()] = e.Ticker
	}

	t.mu.Lock()
	t.m = m
	t.mu.Unlock()

	logger.Info("loaded CIK->ticker mappings", zap.Int("count", len(m)))
	return nil
}

// Lookup resolves a ticker for a CIK, tolerating zero-padded input. Unknown
// CIKs return "".
func (t *TickerTable) Lookup(cik string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if ticker, ok := t.m[cik]; ok {
		return ticker
	}
	// Feed CIKs are zero-padded to 10 digits; the bulk file is not.
	if n, err := strconv.Atoi(cik); err == nil {
		return t.m[strconv.Itoa(n)]
	}
	return ""
}
