package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-recorder/internal/api"
	"github.com/rickgao/market-recorder/internal/auth"
	"github.com/rickgao/market-recorder/internal/config"
	"github.com/rickgao/market-recorder/internal/connection"
	"github.com/rickgao/market-recorder/internal/database"
	"github.com/rickgao/market-recorder/internal/model"
	"github.com/rickgao/market-recorder/internal/notify"
	"github.com/rickgao/market-recorder/internal/poller"
	"github.com/rickgao/market-recorder/internal/stream"
	"github.com/rickgao/market-recorder/internal/venue/coinbase"
	"github.com/rickgao/market-recorder/internal/writer"
)

// Pinger checks a dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder runs one pipeline per configured venue.
type Recorder struct {
	cfg       *config.RecorderConfig
	runID     uuid.UUID
	logger    *slog.Logger
	observers []writer.FileObserver
	pipelines []*pipeline
	db        Pinger
	closers   []func()
	started   time.Time
}

// pipeline is one venue: its stream consumer and optional book poller.
type pipeline struct {
	venue    string
	consumer *stream.Consumer
	poller   *poller.Poller

	mu  sync.Mutex
	err error // first failure, set when a goroutine returns
}

func (p *pipeline) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

func (p *pipeline) failure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithRunID overrides the generated run id.
func WithRunID(id uuid.UUID) Option {
	return func(r *Recorder) { r.runID = id }
}

// WithObserver adds a file observer to every writer.
func WithObserver(obs writer.FileObserver) Option {
	return func(r *Recorder) { r.observers = append(r.observers, obs) }
}

// New connects the optional catalog and notifier and builds every pipeline.
// Nothing is recorded until Run.
func New(ctx context.Context, cfg *config.RecorderConfig, logger *slog.Logger, opts ...Option) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		cfg:     cfg,
		runID:   uuid.New(),
		logger:  logger,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.With("run_id", r.runID.String())

	if err := r.connectObservers(ctx); err != nil {
		r.Close()
		return nil, err
	}

	for _, vc := range cfg.Venues {
		p, err := r.buildPipeline(ctx, vc)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("venue %s: %w", vc.Name, err)
		}
		r.pipelines = append(r.pipelines, p)
	}
	return r, nil
}

// RunID returns the id stored in every file written by this recorder.
func (r *Recorder) RunID() uuid.UUID { return r.runID }

func (r *Recorder) connectObservers(ctx context.Context) error {
	if r.cfg.Catalog.Enabled {
		db := r.cfg.Catalog.Database
		r.logger.Info("connecting to catalog database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)
		pool, err := database.Connect(ctx, db)
		if err != nil {
			return fmt.Errorf("connect catalog: %w", err)
		}
		r.closers = append(r.closers, pool.Close)
		r.db = pool

		catalog, err := database.NewCatalog(pool, r.cfg.Catalog.Table, r.logger)
		if err != nil {
			return err
		}
		if err := catalog.EnsureSchema(ctx); err != nil {
			return err
		}
		r.observers = append(r.observers, catalog)
	}

	if r.cfg.Notify.Enabled {
		pub, err := notify.Connect(notify.Config{
			URL:           r.cfg.Notify.URL,
			SubjectPrefix: r.cfg.Notify.SubjectPrefix,
			Name:          r.cfg.Notify.Name,
			Timeout:       r.cfg.Notify.Timeout,
		}, r.logger)
		if err != nil {
			return err
		}
		r.closers = append(r.closers, func() {
			if err := pub.Close(); err != nil {
				r.logger.Warn("failed to close notifier", "error", err)
			}
		})
		r.observers = append(r.observers, pub)
	}
	return nil
}

func (r *Recorder) writerConfig(venue string) writer.Config {
	return writer.Config{
		Directory:    r.cfg.Output.Directory,
		Venue:        venue,
		Clean:        r.cfg.Output.Clean,
		Compression:  r.cfg.Output.Compression,
		MaxFileBytes: r.cfg.Rotation.MaxFileBytes,
		MaxRowGroups: r.cfg.Rotation.MaxRowGroups,
		MaxRecords:   r.cfg.Rotation.MaxRecords,
		MaxFileAge:   r.cfg.Rotation.MaxAge,
	}
}

func (r *Recorder) buildPipeline(ctx context.Context, vc config.VenueConfig) (*pipeline, error) {
	logger := r.logger.With("venue", vc.Name)

	var creds *auth.Credentials
	if vc.Auth.Enabled() {
		c, err := auth.LoadCredentials(vc.Auth.Key, vc.Auth.Secret, vc.Auth.Passphrase)
		if err != nil {
			return nil, err
		}
		creds = c
	}

	dec, err := coinbase.NewDecoder(coinbase.Config{
		ProductIDs:  vc.ProductIDs,
		Channels:    vc.Channels,
		Credentials: creds,
	})
	if err != nil {
		return nil, err
	}

	apiOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(vc.API.Timeout),
		api.WithRetries(vc.API.MaxRetries, vc.API.RetryBackoff),
	}
	if creds != nil {
		apiOpts = append(apiOpts, api.WithCredentials(creds))
	}
	rest := api.NewClient(vc.RestURL, apiOpts...)

	if vc.API.CheckProducts && len(vc.ProductIDs) > 0 {
		r.checkProducts(ctx, rest, vc.ProductIDs, logger)
	}

	wcfg := r.writerConfig(vc.Name)
	bcfg := stream.BatchConfig{
		MaxRecords: r.cfg.Batching.MaxRecords,
		MaxAge:     r.cfg.Batching.MaxAge,
	}
	wopts := []writer.Option{writer.WithRunID(r.runID)}
	for _, obs := range r.observers {
		wopts = append(wopts, writer.WithObserver(obs))
	}

	var tables []stream.Table
	for _, name := range dec.Tables() {
		if !enabled(r.cfg.Output.Tables, name) {
			logger.Info("table disabled by output filter", "table", name)
			continue
		}
		t, err := newTable(name, wcfg, bcfg, logger, wopts...)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	conn := vc.Connection
	clientCfg := connection.ClientConfig{
		URL:              vc.WSURL,
		HandshakeTimeout: conn.HandshakeTimeout,
		PingInterval:     conn.PingInterval,
		PingTimeout:      conn.PingTimeout,
		WriteTimeout:     conn.WriteTimeout,
		ReadLimit:        conn.ReadLimit,
		BufferSize:       conn.BufferSize,
	}
	dial := func() connection.Client {
		return connection.NewClient(clientCfg, logger)
	}

	scfg := stream.DefaultConfig()
	scfg.Venue = vc.Name
	scfg.SubscribeTimeout = conn.SubscribeTimeout
	scfg.Backoff = stream.BackoffConfig{
		BaseWait: vc.Reconnect.BaseDelay,
		MaxWait:  vc.Reconnect.MaxDelay,
		Jitter:   vc.Reconnect.Jitter,
	}

	consumer, err := stream.NewConsumer(scfg, dec, dial, tables, r.logger)
	if err != nil {
		return nil, err
	}
	p := &pipeline{venue: vc.Name, consumer: consumer}

	book := model.BookSnapshot{}.TableName()
	if vc.BookPoller.Enabled && enabled(r.cfg.Output.Tables, book) {
		t, err := newTable(book, wcfg, bcfg, logger, wopts...)
		if err != nil {
			return nil, err
		}
		p.poller = poller.New(poller.Config{
			Interval:    vc.BookPoller.Interval,
			Concurrency: vc.BookPoller.Concurrency,
			Timeout:     vc.BookPoller.Timeout,
		}, vc.Name, rest, vc.ProductIDs, t, r.logger)
	}

	logger.Info("pipeline ready",
		"channels", vc.Channels,
		"products", len(vc.ProductIDs),
		"tables", len(tables),
		"book_poller", p.poller != nil,
	)
	return p, nil
}

// checkProducts warns about configured products the venue does not list
// as online. Lookup failures are only logged.
func (r *Recorder) checkProducts(ctx context.Context, rest *api.Client, want []string, logger *slog.Logger) {
	missing, err := rest.MissingProducts(ctx, want)
	if err != nil {
		logger.Warn("product check failed", "error", err)
		return
	}
	if len(missing) > 0 {
		logger.Warn("configured products are not online", "products", missing)
	}
}

// Run records until ctx is cancelled. Each consumer and poller runs in its
// own goroutine; a failed one stops alone. Run returns once all have
// stopped, with the first failure if any.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Info("recorder running",
		"instance_id", r.cfg.Instance.ID,
		"venues", len(r.pipelines),
		"directory", r.cfg.Output.Directory,
	)

	var g errgroup.Group
	for _, p := range r.pipelines {
		p := p
		g.Go(func() error {
			err := p.consumer.Run(ctx)
			if err != nil {
				p.fail(err)
			}
			return err
		})
		if p.poller != nil {
			g.Go(func() error {
				err := p.poller.Run(ctx)
				if err != nil {
					p.fail(err)
				}
				return err
			})
		}
	}
	err := g.Wait()

	for _, p := range r.pipelines {
		stats := p.consumer.TableStats()
		for table, m := range stats {
			r.logger.Info("table summary",
				"venue", p.venue,
				"table", table,
				"files", m.FilesClosed,
				"row_groups", m.RowGroups,
				"records", m.Records,
				"bytes", m.Bytes,
			)
		}
		if p.poller != nil {
			ps := p.poller.Stats()
			r.logger.Info("poller summary",
				"venue", p.venue,
				"cycles", ps.Cycles,
				"fetched", ps.Fetched,
				"errors", ps.Errors,
			)
		}
	}
	return err
}

// Close releases the catalog and notifier connections.
func (r *Recorder) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Failed reports whether any pipeline has failed.
func (r *Recorder) Failed() bool {
	for _, p := range r.pipelines {
		if p.failure() != nil {
			return true
		}
	}
	return false
}
