package connection

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// InboundMessage is a raw frame with its local receive timestamp.
type InboundMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// Channel is a single bidirectional connection to the dashboard server.
// Messages() closes when the channel goes down; Err() then reports the read
// error that ended it, or nil for a local close.
type Channel interface {
	// Connect establishes the connection.
	Connect(ctx context.Context) error

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Messages returns the inbound frame stream. Closed on channel death.
	Messages() <-chan InboundMessage

	// Err returns the terminal read error, if any, after Messages closes.
	Err() error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// ChannelConfig holds per-channel settings.
type ChannelConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int
}

// Factory builds a fresh Channel for one connect attempt.
type Factory func(cfg ChannelConfig, logger *slog.Logger) Channel

// wsChannel implements Channel over gorilla/websocket.
type wsChannel struct {
	cfg    ChannelConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan InboundMessage
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
	readErr   error
}

// NewWSChannel creates a WebSocket-backed Channel. It is the default Factory.
func NewWSChannel(cfg ChannelConfig, logger *slog.Logger) Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}

	return &wsChannel{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan InboundMessage, cfg.BufferSize),
		done:     make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop.
func (c *wsChannel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		// Close raced the dial; release the socket it never saw.
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()

	c.logger.Debug("channel connected", "url", c.cfg.URL)

	return nil
}

// Close tears the connection down.
func (c *wsChannel) Close() error {
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

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}

	return nil
}

// Send writes raw bytes to the connection.
func (c *wsChannel) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the inbound frame stream.
func (c *wsChannel) Messages() <-chan InboundMessage {
	return c.messages
}

// Err returns the terminal read error, if any.
func (c *wsChannel) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readErr
}

// IsConnected returns the current connection state.
func (c *wsChannel) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads frames until the connection dies, then closes the message
// stream so the manager observes the shutdown.
func (c *wsChannel) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.messages)
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Errors after Close are expected noise.
			select {
			case <-c.done:
			default:
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
			}
			return
		}

		msg := InboundMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}
