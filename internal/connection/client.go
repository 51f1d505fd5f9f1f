package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client wraps a single websocket. One is created per connection
// attempt and discarded on failure; the Manager owns its lifecycle.
type client struct {
	url    string
	cfg    ManagerConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan RawMessage
	errs     chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	mu        sync.Mutex
	connected bool
	closed    bool
}

func newClient(url string, cfg ManagerConfig, logger *slog.Logger) *client {
	return &client{
		url:      url,
		cfg:      cfg,
		logger:   logger,
		messages: make(chan RawMessage, cfg.MessageBufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// connect dials the server and starts the read loop.
func (c *client) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()

	c.logger.Debug("websocket connected", "url", c.url)
	return nil
}

// close tears the socket down. Safe to call more than once.
func (c *client) close() error {
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

// send writes raw bytes to the socket.
func (c *client) send(data []byte) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// readLoop reads frames until the socket fails or close is called.
// The messages channel is closed on exit so the Manager's forwarder
// can tell this socket is finished.
func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.messages)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Errors after close() are expected teardown noise.
			select {
			case <-c.done:
			default:
				select {
				case c.errs <- err:
				default:
				}
			}
			return
		}

		msg := RawMessage{
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

// isNormalClose reports whether err is a clean websocket closure,
// i.e. the server deliberately ended the session.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
	)
}
