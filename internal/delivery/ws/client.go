package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/goat-rooms/internal/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// ClientOptions tunes a Client. Zero values fall back to the domain defaults.
type ClientOptions struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	PingPeriod     time.Duration
	Logger         *slog.Logger
}

// Client is a single websocket connection. It implements Conn.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce      sync.Once
	maxMessageSize int64
	pongWait       time.Duration
	pingPeriod     time.Duration
	log            *slog.Logger
}

// NewClient wraps an upgraded websocket connection
func NewClient(conn *websocket.Conn, opts ClientOptions) *Client {
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = domain.SendBufferSize
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = domain.MaxMessageSize
	}
	if opts.PongWait <= 0 {
		opts.PongWait = domain.PongWait
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = domain.PingPeriod
	}
	if opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = (opts.PongWait * 9) / 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, opts.SendBufferSize),
		done:           make(chan struct{}),
		maxMessageSize: opts.MaxMessageSize,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
		log:            opts.Logger.With("conn", id),
	}
}

// ID returns the connection identity
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame without blocking. A closed connection or a full
// queue is reported as an error so the caller can treat the peer as gone.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return domain.ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return domain.ErrConnClosed
	default:
		return domain.ErrSendBufferFull
	}
}

// Done is closed once the connection is closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts the connection down. It is safe to call more than once and
// from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn == nil {
			return
		}
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// ReadPump reads frames and hands each to handle until the connection
// fails or is closed. It blocks, and closes the client before returning.
func (c *Client) ReadPump(handle func(raw []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}
		handle(message)
	}
}

// WritePump writes queued frames and heartbeat pings to the peer
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
