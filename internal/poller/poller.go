package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/market-recorder/internal/api"
	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/stream"
)

// BookSource fetches order books.
type BookSource interface {
	GetBook(ctx context.Context, productID string, level int) (*api.BookResponse, error)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 1m)
	Concurrency int           // Max concurrent requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 10s)
	Level       int           // Book level requested (default: 2)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Concurrency: 4,
		Timeout:     10 * time.Second,
		Level:       2,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Cycles  int64
	Fetched int64
	Errors  int64
}

// Poller periodically fetches book snapshots via REST and records them in
// a table. Fetches run concurrently; the table is only touched by the
// goroutine running Run.
type Poller struct {
	cfg      Config
	venue    string
	books    BookSource
	products []string
	table    stream.Table
	logger   *slog.Logger
	now      func() time.Time

	cycles  atomic.Int64
	fetched atomic.Int64
	errors  atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, venue string, books BookSource, products []string, table stream.Table, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Level <= 0 {
		cfg.Level = def.Level
	}
	return &Poller{
		cfg:      cfg,
		venue:    venue,
		books:    books,
		products: products,
		table:    table,
		logger:   logger.With("component", "poller", "venue", venue),
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled, then closes the table. A table failure
// stops the poller with a *stream.PipelineError.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("snapshot poller started",
		"interval", p.cfg.Interval,
		"products", len(p.products),
	)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	err := p.pollAll(ctx)

	for err == nil {
		select {
		case <-ctx.Done():
			return p.close(ctx)
		case <-ticker.C:
			err = p.pollAll(ctx)
		}
	}

	p.logger.Error("snapshot poller failed", "error", err)
	if cerr := p.table.Close(context.WithoutCancel(ctx)); cerr != nil {
		p.logger.Error("failed to close table", "table", p.table.Name(), "error", cerr)
	}
	return &stream.PipelineError{Venue: p.venue, Stage: "write", Err: err}
}

// Stats returns current statistics.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:  p.cycles.Load(),
		Fetched: p.fetched.Load(),
		Errors:  p.errors.Load(),
	}
}

func (p *Poller) close(ctx context.Context) error {
	if err := p.table.Close(context.WithoutCancel(ctx)); err != nil {
		return &stream.PipelineError{Venue: p.venue, Stage: "close", Err: err}
	}
	s := p.Stats()
	p.logger.Info("snapshot poller stopped",
		"cycles", s.Cycles,
		"fetched", s.Fetched,
		"errors", s.Errors,
	)
	return nil
}

// pollAll fetches every product's book concurrently and records the
// snapshots in product order as one row-group.
func (p *Poller) pollAll(ctx context.Context) error {
	start := p.now()
	results := make([]*model.BookSnapshot, len(p.products))

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, product := range p.products {
		wg.Add(1)
		go func(i int, product string) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			snap, err := p.pollProduct(ctx, product)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Warn("failed to poll book",
						"product", product,
						"error", err,
					)
					p.errors.Add(1)
				}
				return
			}

			p.fetched.Add(1)
			results[i] = &snap
		}(i, product)
	}

	wg.Wait()

	recorded := 0
	for _, snap := range results {
		if snap == nil {
			continue
		}
		if err := p.table.Add(ctx, *snap, snap.ReceivedAt); err != nil {
			return err
		}
		recorded++
	}
	if err := p.table.Flush(ctx); err != nil {
		return err
	}
	if err := p.table.Tick(ctx, p.now()); err != nil {
		return err
	}

	p.cycles.Add(1)
	p.logger.Debug("poll cycle complete",
		"products", len(p.products),
		"recorded", recorded,
		"duration", p.now().Sub(start),
	)
	return nil
}

// pollProduct fetches and converts a single product's book.
func (p *Poller) pollProduct(ctx context.Context, product string) (model.BookSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	book, err := p.books.GetBook(ctx, product, p.cfg.Level)
	if err != nil {
		return model.BookSnapshot{}, err
	}
	return api.ToSnapshot(product, book, p.now())
}
