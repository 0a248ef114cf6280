// Package poller drives the ingestion pipeline: it polls the EDGAR Atom feed
// on a fixed interval, reserves unseen accession ids in the dedup ledger, and
// fans reserved filings out to a bounded set of processing goroutines.
package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/secpulse/secpulse/internal/archive"
	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
	"github.com/secpulse/secpulse/internal/notify"
)

const (
	fallbackSummaryChars = 150
	fallbackReason       = "Heuristic classification (model unavailable)"
)

// Feed lists new filings from the upstream Atom feed.
type Feed interface {
	Poll(ctx context.Context) ([]filing.Filing, error)
}

// DocumentFetcher resolves and downloads the primary document for a filing.
type DocumentFetcher interface {
	ResolveDocumentURL(ctx context.Context, indexURL string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// DocumentParser turns raw document bytes into text and structured fields.
type DocumentParser interface {
	Parse(formType, raw string) filing.ParsedDocument
}

// Heuristic scores a parsed filing without the generative model.
type Heuristic func(segment filing.Segment, fields map[string]any) int

// Config bounds one Poller.
type Config struct {
	PollInterval  time.Duration
	Workers       int
	TextMaxChars  int
	ArchivePrefix string
	Topic         string
}

// Poller owns the poll-reserve-process loop.
type Poller struct {
	cfg        Config
	feed       Feed
	fetcher    DocumentFetcher
	parser     DocumentParser
	heuristic  Heuristic
	classifier filing.Classifier
	store      filing.Store
	hub        filing.Broadcaster
	publisher  filing.Publisher
	blobs      filing.BlobStore
	clock      filing.Clock
	logger     *zap.Logger

	inflight *inflightTracker
	// ledgerMu serializes the contains-any/insert pair so one batch cannot
	// reserve ids a concurrent batch already took.
	ledgerMu sync.Mutex
}

// Options collects the pluggable collaborators for New.
type Options struct {
	Feed       Feed
	Fetcher    DocumentFetcher
	Parser     DocumentParser
	Heuristic  Heuristic
	Classifier filing.Classifier
	Store      filing.Store
	Hub        filing.Broadcaster
	Publisher  filing.Publisher
	Blobs      filing.BlobStore
	Clock      filing.Clock
	Logger     *zap.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// New assembles a Poller. Publisher is optional; Blobs defaults to a no-op
// archive and Clock to the system clock.
func New(cfg Config, opts Options) (*Poller, error) {
	if opts.Feed == nil || opts.Fetcher == nil || opts.Parser == nil {
		return nil, fmt.Errorf("feed, fetcher and parser are required")
	}
	if opts.Store == nil || opts.Hub == nil || opts.Classifier == nil {
		return nil, fmt.Errorf("store, hub and classifier are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.TextMaxChars <= 0 {
		cfg.TextMaxChars = 20000
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "filings"
	}
	if opts.Heuristic == nil {
		return nil, fmt.Errorf("heuristic is required")
	}
	if opts.Blobs == nil {
		opts.Blobs = archive.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Poller{
		cfg:        cfg,
		feed:       opts.Feed,
		fetcher:    opts.Fetcher,
		parser:     opts.Parser,
		heuristic:  opts.Heuristic,
		classifier: opts.Classifier,
		store:      opts.Store,
		hub:        opts.Hub,
		publisher:  opts.Publisher,
		blobs:      opts.Blobs,
		clock:      opts.Clock,
		logger:     opts.Logger,
		inflight:   newInflightTracker(),
	}, nil
}

// Run polls until the context is canceled. A failed cycle is logged and the
// loop continues; Run only returns the context error.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller starting",
		zap.Duration("interval", p.cfg.PollInterval),
		zap.Int("workers", p.cfg.Workers),
	)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		p.cycle(ctx)
		timer.Reset(p.cfg.PollInterval)
	}
}

// cycle runs one poll iteration. Errors are contained here so a bad feed
// response or a single broken filing never stops the loop.
func (p *Poller) cycle(ctx context.Context) {
	filings, err := p.feed.Poll(ctx)
	if err != nil {
		metrics.ObservePollCycle("feed_error")
		p.logger.Warn("feed poll failed", zap.Error(err))
		return
	}

	fresh, err := p.reserveNew(ctx, filings)
	if err != nil {
		metrics.ObservePollCycle("ledger_error")
		p.logger.Error("ledger reservation failed", zap.Error(err))
		return
	}
	metrics.ObserveFeedEntries("new", len(fresh))
	metrics.ObserveFeedEntries("duplicate", len(filings)-len(fresh))
	if len(fresh) > 0 {
		p.logger.Info("reserved new filings",
			zap.Int("new", len(fresh)),
			zap.Int("total", len(filings)),
		)
	}

	sem := semaphore.NewWeighted(int64(p.cfg.Workers))
	var wg sync.WaitGroup
	for _, f := range fresh {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(f filing.Filing) {
			defer wg.Done()
			defer sem.Release(1)
			if err := p.process(ctx, f); err != nil {
				metrics.ObserveFiling(string(f.Segment), "error")
				p.logger.Error("filing processing failed",
					zap.String("accession_id", f.AccessionID),
					zap.String("form_type", f.FormType),
					zap.Error(err),
				)
			}
		}(f)
	}
	wg.Wait()
	metrics.ObservePollCycle("ok")
}

// reserveNew returns the batch entries whose accession ids were not yet in
// the ledger, marking them seen in the same critical section. Duplicate ids
// within one batch collapse to the last entry.
func (p *Poller) reserveNew(ctx context.Context, batch []filing.Filing) ([]filing.Filing, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	byID := make(map[string]filing.Filing, len(batch))
	order := make([]string, 0, len(batch))
	for _, f := range batch {
		if _, dup := byID[f.AccessionID]; !dup {
			order = append(order, f.AccessionID)
		}
		byID[f.AccessionID] = f
	}

	p.ledgerMu.Lock()
	defer p.ledgerMu.Unlock()

	seen, err := p.store.LedgerContainsAny(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	fresh := make([]filing.Filing, 0, len(order))
	freshIDs := make([]string, 0, len(order))
	for _, id := range order {
		if _, ok := seen[id]; ok {
			continue
		}
		fresh = append(fresh, byID[id])
		freshIDs = append(freshIDs, id)
	}
	if len(freshIDs) == 0 {
		return nil, nil
	}
	if err := p.store.LedgerInsert(ctx, freshIDs, p.clock.Now()); err != nil {
		return nil, fmt.Errorf("ledger insert: %w", err)
	}
	return fresh, nil
}

// process runs the full pipeline for one reserved filing.
func (p *Poller) process(ctx context.Context, f filing.Filing) error {
	if !p.inflight.MarkIfNew(f.AccessionID) {
		return nil
	}
	defer p.inflight.Done(f.AccessionID)

	exists, err := p.store.Exists(ctx, f.AccessionID)
	if err != nil {
		return fmt.Errorf("existence check: %w", err)
	}
	if exists {
		metrics.ObserveFiling(string(f.Segment), "duplicate")
		return nil
	}

	metrics.IncActiveFilings()
	defer metrics.DecActiveFilings()
	discoveredAt := p.clock.Now()

	docURL, err := p.fetcher.ResolveDocumentURL(ctx, f.IndexURL)
	if err != nil {
		return fmt.Errorf("resolve document: %w", err)
	}
	body, err := p.fetcher.Download(ctx, docURL)
	if err != nil {
		return fmt.Errorf("download document: %w", err)
	}

	parsed := p.parser.Parse(f.FormType, string(body))
	heuristicImpact := p.heuristic(f.Segment, parsed.Fields)

	p.hub.Publish(filing.ProcessingEvent(f))

	// The classifier sees the full parsed text; long documents take the
	// chunk-and-consolidate path inside the adapter. TextMaxChars bounds
	// only the persisted extract.
	result, err := p.classifier.Classify(ctx, filing.ClassifyRequest{
		FormType: f.FormType,
		Segment:  f.Segment,
		Company:  f.CompanyName,
		Ticker:   f.Ticker,
		Fields:   parsed.Fields,
		Text:     parsed.Text,
	})
	if err != nil {
		p.logger.Warn("classifier unavailable, using heuristic",
			zap.String("accession_id", f.AccessionID),
			zap.Error(err),
		)
		result = filing.Classification{
			Summary: fallbackSummary(f, parsed.Text),
			Impact:  filing.ClampImpact(heuristicImpact),
			Reasons: []string{fallbackReason},
		}
	}
	result.Impact = filing.ClampImpact(result.Impact)

	rec := filing.Record{
		Filing:       f,
		Summary:      result.Summary,
		Impact:       result.Impact,
		Reasons:      result.Reasons,
		RawExcerpt:   head(parsed.Text, p.cfg.TextMaxChars),
		Fields:       parsed.Fields,
		Priority:     notify.Compute(result.Impact, f.FormType, f.Segment),
		DiscoveredAt: discoveredAt,
		ProcessedAt:  p.clock.Now(),
	}

	if uri := p.archiveDocument(ctx, f, body); uri != "" {
		rec.ArchiveURI = uri
	}

	id, err := p.store.Insert(ctx, rec)
	if errors.Is(err, filing.ErrDuplicate) {
		metrics.ObserveFiling(string(f.Segment), "duplicate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	rec.ID = id

	p.hub.Publish(filing.NewFilingEvent(rec))
	if p.publisher != nil {
		if _, err := p.publisher.Publish(ctx, p.cfg.Topic, filing.NewFilingData{
			Record:        rec,
			LatencyMillis: rec.LatencyMS(),
		}); err != nil {
			p.logger.Warn("external publish failed",
				zap.String("accession_id", f.AccessionID),
				zap.Error(err),
			)
		}
	}

	metrics.ObserveFiling(string(f.Segment), "ok")
	p.logger.Info("filing processed",
		zap.String("accession_id", f.AccessionID),
		zap.String("form_type", f.FormType),
		zap.String("segment", string(f.Segment)),
		zap.Int("impact", rec.Impact),
		zap.String("priority", rec.Priority),
	)
	return nil
}

// archiveDocument writes the raw body to the blob store. Archival is
// best-effort: failures are logged and the filing continues without a URI.
func (p *Poller) archiveDocument(ctx context.Context, f filing.Filing, body []byte) string {
	path := archive.ObjectPath(p.cfg.ArchivePrefix, f, p.clock.Now())
	uri, err := p.blobs.PutObject(ctx, path, "text/html", body)
	if err != nil {
		p.logger.Warn("document archive failed",
			zap.String("accession_id", f.AccessionID),
			zap.Error(err),
		)
		return ""
	}
	return uri
}

func fallbackSummary(f filing.Filing, text string) string {
	var b strings.Builder
	b.WriteString(f.FormType)
	b.WriteString(" filing by ")
	b.WriteString(f.CompanyName)
	if f.Ticker != "" {
		fmt.Fprintf(&b, " ($%s)", f.Ticker)
	}
	b.WriteString(".")
	if excerpt := strings.TrimSpace(head(text, fallbackSummaryChars)); excerpt != "" {
		b.WriteString(" ")
		b.WriteString(excerpt)
		b.WriteString("...")
	}
	return b.String()
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
