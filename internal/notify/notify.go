// Package notify publishes finalized-file announcements to NATS.
//
// Each finalized file produces one JSON message on
// <prefix>.<venue>.<table>. Consumers subscribe with wildcards, for
// example "recorder.files.coinbase.>".
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rickgao/market-recorder/internal/writer"
)

// Connection defaults
const (
	ReconnectWait      = 2 * time.Second
	MaxReconnects      = -1 // forever
	PingInterval       = 30 * time.Second
	MaxPingOutstanding = 2
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Config configures the publisher.
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
	Timeout       time.Duration
}

// Publisher implements writer.FileObserver over NATS.
type Publisher struct {
	conn    Conn
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ writer.FileObserver = (*Publisher)(nil)

// Connect dials NATS and returns a publisher.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "notify")

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(ReconnectWait),
		nats.MaxReconnects(MaxReconnects),
		nats.PingInterval(PingInterval),
		nats.MaxPingsOutstanding(MaxPingOutstanding),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("connected to nats", "url", nc.ConnectedUrl())

	return NewPublisher(nc, cfg, logger), nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn Conn, cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Publisher{
		conn:    conn,
		prefix:  strings.TrimSuffix(cfg.SubjectPrefix, "."),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Subject returns the subject a file announcement is published on.
func (p *Publisher) Subject(venue, table string) string {
	return Subject(p.prefix, venue, table)
}

// Subject joins prefix, venue and table into a NATS subject. Characters
// that are not valid in a subject token are replaced with '_'.
func Subject(prefix, venue, table string) string {
	parts := []string{token(venue), token(table)}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// FileClosed publishes info as JSON.
func (p *Publisher) FileClosed(ctx context.Context, info writer.FileInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal file info: %w", err)
	}
	subject := p.Subject(info.Venue, info.Table)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("published file", "subject", subject, "path", info.Path)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	err := p.conn.FlushTimeout(p.timeout)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}
