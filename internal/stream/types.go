package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/market-recorder/internal/connection"
)

// Errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSubscribeTimeout = errors.New("subscription not acknowledged")
	ErrVenue            = errors.New("venue error")
	ErrRecordType       = errors.New("unexpected record type")
	ErrDuplicateTable   = errors.New("duplicate table")
)

// Dialer creates an unconnected client. It is called once per connection
// attempt.
type Dialer func() connection.Client

// Config holds configuration for a Consumer.
type Config struct {
	Venue string

	// TickInterval is how often batch age and file age are checked.
	TickInterval time.Duration // Default: 1s

	// SubscribeTimeout bounds the wait for the first acknowledgement.
	SubscribeTimeout time.Duration // Default: 10s

	Backoff BackoffConfig
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:     time.Second,
		SubscribeTimeout: 10 * time.Second,
		Backoff:          DefaultBackoffConfig(),
	}
}

// BatchConfig bounds a pending batch.
type BatchConfig struct {
	MaxRecords int           // Default: 1000
	MaxAge     time.Duration // Default: 5s
}

// DefaultBatchConfig returns default configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxRecords: 1000,
		MaxAge:     5 * time.Second,
	}
}

// State is the connection state of a Consumer.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// Stats contains runtime statistics.
type Stats struct {
	State        State
	Frames       int64
	Records      int64
	Malformed    int64
	Skipped      int64 // records for tables without a writer
	Duplicates   int64
	SequenceGaps int64
	Reconnects   int64
	CoverageGaps int64
	VenueErrors  int64
}

// PipelineError is returned when a venue pipeline stops on a fatal error.
type PipelineError struct {
	Venue string
	Stage string // subscribe, write, tick, close or encode
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed at %s: %v", e.Venue, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
