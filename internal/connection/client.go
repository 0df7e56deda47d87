package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket connection to a venue. A Client is
// used for one connection; reconnecting means creating a new Client.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Messages returns a channel of every received frame in arrival order.
	// It is closed after the connection ends and all buffered frames have
	// been delivered; Err then reports why.
	Messages() <-chan TimestampedMessage

	// Err returns the error that ended the connection, or nil.
	Err() error

	// IsConnected returns current connection state.
	IsConnected() bool

	// Stats returns statistics of the inbound frame buffer.
	Stats() BufferStats
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	frames   *frameBuffer
	messages chan TimestampedMessage
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu           sync.RWMutex
	connected    bool
	closed       bool
	lastActivity time.Time
	err          error
}

// NewClient creates a new WebSocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		cfg:      cfg,
		logger:   logger,
		frames:   newFrameBuffer(cfg.BufferSize),
		messages: make(chan TimestampedMessage),
		done:     make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return err
	}
	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastActivity = time.Now()
	c.mu.Unlock()

	// Server pings count as traffic; gorilla answers them with a pong.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.pump()
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn == nil {
		c.frames.close()
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return conn.Close()
}

// Send writes raw bytes to the connection.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout()))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the messages channel.
func (c *client) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Err returns the error that ended the connection.
func (c *client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Stats returns frame buffer statistics.
func (c *client) Stats() BufferStats {
	return c.frames.stats()
}

func (c *client) writeTimeout() time.Duration {
	if c.cfg.WriteTimeout > 0 {
		return c.cfg.WriteTimeout
	}
	return 5 * time.Second
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// setErr records the first error that ended the connection. Errors caused
// by our own Close are not recorded.
func (c *client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil && !c.closed {
		c.err = err
	}
	c.connected = false
}

// readLoop reads frames into the buffer until the socket fails.
func (c *client) readLoop() {
	defer c.frames.close()

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			c.setErr(err)
			return
		}

		c.touch()
		c.frames.push(TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		})
	}
}

// pump moves frames from the buffer to the messages channel and closes the
// channel when the buffer is drained after the connection ends.
func (c *client) pump() {
	defer close(c.messages)

	for {
		msg, ok := c.frames.pop()
		if !ok {
			return
		}
		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}

// heartbeatLoop pings the server and closes stale connections.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			last := c.lastActivity
			connected := c.connected
			c.mu.RUnlock()

			if !connected {
				return
			}

			if c.cfg.PingTimeout > 0 && time.Since(last) > c.cfg.PingTimeout {
				c.logger.Warn("no traffic received, connection stale",
					"last_activity", last,
					"timeout", c.cfg.PingTimeout,
				)
				c.setErr(ErrStaleConnection)
				conn.Close()
				return
			}

			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.writeTimeout()))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}
