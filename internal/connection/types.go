package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://ws-feed.exchange.coinbase.com)
	Header           http.Header   // Extra handshake headers
	HandshakeTimeout time.Duration // Dial + upgrade deadline
	PingInterval     time.Duration // How often we ping the server (0 = never)
	PingTimeout      time.Duration // Max time without any inbound traffic before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	ReadLimit        int64         // Max frame size in bytes (0 = unlimited)
	BufferSize       int           // Initial frame buffer capacity; grows as needed
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     15 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        16 << 20,
		BufferSize:       4096,
	}
}

// BufferStats contains frame buffer statistics.
type BufferStats struct {
	Count       int
	Capacity    int
	Peak        int
	TotalIn     int64
	TotalOut    int64
	ResizeCount int
}
