package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/market-recorder/internal/connection"
	"github.com/rickgao/market-recorder/internal/persist"
	"github.com/rickgao/market-recorder/internal/venue"
	"github.com/rickgao/market-recorder/internal/writer"
)

// maxPayloadLog bounds the payload logged for a malformed frame.
const maxPayloadLog = 256

// Consumer records one venue feed. It owns the venue connection, the
// decoder and one Table per recorded table, all confined to the goroutine
// running Run.
type Consumer struct {
	cfg    Config
	dec    venue.Decoder
	dial   Dialer
	tables map[string]Table
	order  []Table
	logger *slog.Logger

	now     func() time.Time
	after   func(time.Duration) <-chan time.Time
	onState func(State)

	backoff *backoff
	seq     *sequencer

	// disconnectedAt is set while coverage is interrupted.
	disconnectedAt time.Time

	mu    sync.RWMutex
	state State
	stats Stats
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) Option {
	return func(c *Consumer) {
		c.now = now
		c.after = after
	}
}

// WithStateHook registers fn to be called on every state change.
func WithStateHook(fn func(State)) Option {
	return func(c *Consumer) { c.onState = fn }
}

// NewConsumer creates a Consumer. Records for tables not in tables are
// counted and dropped.
func NewConsumer(cfg Config, dec venue.Decoder, dial Dialer, tables []Table, logger *slog.Logger, opts ...Option) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Venue == "" {
		cfg.Venue = dec.Name()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}

	c := &Consumer{
		cfg:     cfg,
		dec:     dec,
		dial:    dial,
		tables:  make(map[string]Table, len(tables)),
		logger:  logger.With("component", "stream", "venue", cfg.Venue),
		now:     time.Now,
		after:   time.After,
		backoff: newBackoff(cfg.Backoff),
		seq:     newSequencer(),
	}
	for _, t := range tables {
		if _, ok := c.tables[t.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name())
		}
		c.tables[t.Name()] = t
		c.order = append(c.order, t)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run records until ctx is cancelled, reconnecting as often as needed. On
// cancellation it flushes pending batches, closes every writer and returns
// nil. A writer failure stops the pipeline with a *PipelineError.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("stream consumer started", "tables", len(c.tables))

	for {
		err := c.session(ctx)

		var pe *PipelineError
		if errors.As(err, &pe) {
			c.setState(StateDisconnected)
			c.logger.Error("pipeline failed", "stage", pe.Stage, "error", pe.Err)
			c.closeTables(context.WithoutCancel(ctx))
			return pe
		}

		if c.disconnectedAt.IsZero() {
			c.disconnectedAt = c.now()
		}
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return c.shutdown(ctx)
		}

		wait := c.backoff.next()
		c.logger.Warn("connection lost, reconnecting",
			"error", err,
			"wait", wait,
		)
		if sleep(ctx, c.after, wait) != nil {
			return c.shutdown(ctx)
		}

		c.mu.Lock()
		c.stats.Reconnects++
		c.mu.Unlock()
	}
}

// State returns the current connection state.
func (c *Consumer) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns current statistics.
func (c *Consumer) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.State = c.state
	return s
}

// TableStats returns writer metrics per table. Writers are confined to the
// goroutine running Run, so call it only after Run has returned.
func (c *Consumer) TableStats() map[string]writer.Metrics {
	m := make(map[string]writer.Metrics, len(c.order))
	for _, t := range c.order {
		m[t.Name()] = t.Stats()
	}
	return m
}

// session runs one connection from connect until it ends. Errors other
// than *PipelineError are transient.
func (c *Consumer) session(ctx context.Context) error {
	c.setState(StateConnecting)

	client := c.dial()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	c.setState(StateSubscribing)

	frames, err := c.dec.Subscribe()
	if err != nil {
		return &PipelineError{Venue: c.cfg.Venue, Stage: "subscribe", Err: err}
	}
	for _, f := range frames {
		if err := client.Send(f); err != nil {
			return fmt.Errorf("send subscription: %w", err)
		}
	}

	var subTimeout <-chan time.Time
	if c.cfg.SubscribeTimeout > 0 {
		subTimeout = c.after(c.cfg.SubscribeTimeout)
	}

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	messages := client.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := c.tick(ctx); err != nil {
				return err
			}

		case <-subTimeout:
			if c.State() == StateSubscribing {
				return ErrSubscribeTimeout
			}

		case msg, ok := <-messages:
			if !ok {
				if err := client.Err(); err != nil {
					return err
				}
				return ErrConnectionClosed
			}
			if err := c.handle(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// handle decodes and routes one frame.
func (c *Consumer) handle(ctx context.Context, msg connection.TimestampedMessage) error {
	c.mu.Lock()
	c.stats.Frames++
	c.mu.Unlock()

	ev, err := c.dec.Decode(msg)
	if err != nil {
		c.mu.Lock()
		c.stats.Malformed++
		c.mu.Unlock()
		c.logger.Warn("dropping malformed frame",
			"error", err,
			"payload", truncate(msg.Data, maxPayloadLog),
		)
		return nil
	}

	switch ev.Type {
	case venue.EventAck:
		if c.State() == StateSubscribing {
			c.streaming(ev.Message)
		}

	case venue.EventHeartbeat:
		if ev.HasSeq() {
			c.observeSeq(ev)
		}

	case venue.EventError:
		c.mu.Lock()
		c.stats.VenueErrors++
		c.mu.Unlock()
		c.logger.Error("venue error", "message", ev.Message)
		return fmt.Errorf("%w: %s", ErrVenue, ev.Message)

	case venue.EventRecord:
		if c.State() == StateSubscribing {
			c.streaming("implicit")
		}
		if ev.HasSeq() && !c.observeSeq(ev) {
			return nil
		}
		return c.route(ctx, ev)

	default:
		c.logger.Debug("skipping message", "type", ev.Message)
	}
	return nil
}

// observeSeq tracks ev's sequence and reports whether ev is new.
func (c *Consumer) observeSeq(ev venue.Event) bool {
	res, gap := c.seq.observe(ev.SeqKey, ev.Seq, ev.Dense)
	switch res {
	case seqDuplicate:
		c.mu.Lock()
		c.stats.Duplicates++
		c.mu.Unlock()
		c.logger.Debug("dropping duplicate", "key", ev.SeqKey, "seq", ev.Seq)
		return false
	case seqGap:
		c.mu.Lock()
		c.stats.SequenceGaps++
		c.mu.Unlock()
		c.logger.Warn("sequence gap detected",
			"key", ev.SeqKey,
			"got", ev.Seq,
			"gap", gap,
		)
	}
	return true
}

func (c *Consumer) route(ctx context.Context, ev venue.Event) error {
	defer c.encodePanic()

	t, ok := c.tables[ev.Table]
	if !ok {
		c.mu.Lock()
		c.stats.Skipped++
		c.mu.Unlock()
		return nil
	}

	if err := t.Add(ctx, ev.Record, c.now()); err != nil {
		return &PipelineError{Venue: c.cfg.Venue, Stage: "write", Err: err}
	}

	c.mu.Lock()
	c.stats.Records++
	c.mu.Unlock()
	return nil
}

func (c *Consumer) tick(ctx context.Context) error {
	defer c.encodePanic()

	now := c.now()
	for _, t := range c.order {
		if err := t.Tick(ctx, now); err != nil {
			return &PipelineError{Venue: c.cfg.Venue, Stage: "tick", Err: err}
		}
	}
	return nil
}

// encodePanic re-raises a record contract violation with the venue that
// produced the record. Other panics pass through unchanged.
func (c *Consumer) encodePanic() {
	r := recover()
	if r == nil {
		return
	}
	if ce, ok := r.(*persist.ContractError); ok {
		panic(&PipelineError{Venue: c.cfg.Venue, Stage: "encode", Err: ce})
	}
	panic(r)
}

// streaming marks the subscription acknowledged.
func (c *Consumer) streaming(ack string) {
	c.setState(StateStreaming)
	c.backoff.reset()
	c.logger.Info("subscribed", "ack", ack)

	if !c.disconnectedAt.IsZero() {
		resumedAt := c.now()
		c.logger.Warn("coverage gap",
			"disconnected_at", c.disconnectedAt,
			"resumed_at", resumedAt,
			"duration", resumedAt.Sub(c.disconnectedAt),
		)
		c.mu.Lock()
		c.stats.CoverageGaps++
		c.mu.Unlock()
		c.disconnectedAt = time.Time{}
	}
}

// shutdown flushes and closes every table.
func (c *Consumer) shutdown(ctx context.Context) error {
	c.logger.Info("stopping stream consumer")

	if err := c.closeTables(context.WithoutCancel(ctx)); err != nil {
		return &PipelineError{Venue: c.cfg.Venue, Stage: "close", Err: err}
	}

	s := c.Stats()
	c.logger.Info("stream consumer stopped",
		"frames", s.Frames,
		"records", s.Records,
		"malformed", s.Malformed,
		"reconnects", s.Reconnects,
		"coverage_gaps", s.CoverageGaps,
		"duplicates", s.Duplicates,
	)
	return nil
}

// closeTables closes every table and returns the first error.
func (c *Consumer) closeTables(ctx context.Context) error {
	var first error
	for _, t := range c.order {
		if err := t.Close(ctx); err != nil {
			c.logger.Error("failed to close table", "table", t.Name(), "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (c *Consumer) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		c.logger.Debug("state changed", "state", s)
		if c.onState != nil {
			c.onState(s)
		}
	}
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
