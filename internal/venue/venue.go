// Package venue defines the contract between a venue's wire protocol and the
// stream consumer.
package venue

import (
	"errors"

	"github.com/rickgao/market-recorder/internal/connection"
)

// ErrMalformed marks a frame that could not be decoded. Such frames are
// dropped; the connection stays up.
var ErrMalformed = errors.New("malformed frame")

// EventType classifies a decoded frame.
type EventType uint8

const (
	EventSkip EventType = iota
	EventRecord
	EventAck
	EventHeartbeat
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventRecord:
		return "record"
	case EventAck:
		return "ack"
	case EventHeartbeat:
		return "heartbeat"
	case EventError:
		return "error"
	default:
		return "skip"
	}
}

// Event is one decoded frame.
type Event struct {
	Type EventType

	// Record events
	Table  string // destination table
	Record any    // value of the table's record type

	// Sequence carried by the frame, if the venue provides one. SeqKey
	// scopes it, e.g. a product id.
	SeqKey string
	Seq    int64
	Dense  bool // Seq increases by exactly one per frame; a jump is a gap

	// Message is the ack summary or the venue's error text.
	Message string
}

// HasSeq reports whether the event carries a venue sequence number.
func (e Event) HasSeq() bool { return e.SeqKey != "" && e.Seq > 0 }

// Decoder turns frames of one venue into events.
type Decoder interface {
	// Name identifies the venue.
	Name() string

	// Subscribe returns the frames to send after every connect.
	Subscribe() ([][]byte, error)

	// Decode parses one frame. Errors wrap ErrMalformed.
	Decode(msg connection.TimestampedMessage) (Event, error)
}
