package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

// ClientConfig tunes a single websocket connection.
type ClientConfig struct {
	SendBuffer      int
	PingInterval    time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	// SlowConsumerLimit is the number of consecutive deliveries that may
	// find the send buffer full before the connection is closed.
	SlowConsumerLimit int
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 4096
	}
	if c.SlowConsumerLimit <= 0 {
		c.SlowConsumerLimit = c.SendBuffer
	}
	return c
}

// InboundSink accepts frames read from a connection.
type InboundSink interface {
	Enqueue(frame ports.InboundFrame) bool
}

// Client is one authenticated websocket connection. All writes to the
// socket happen on its write pump; Deliver only enqueues.
type Client struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	cfg      ClientConfig
	log      zerolog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	drops  int
}

var _ Subscriber = (*Client)(nil)

func NewClient(conn *websocket.Conn, identity domain.Identity, cfg ClientConfig, log zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		cfg:      cfg,
		log:      log.With().Str("conn_id", id).Int64("subject_id", identity.SubjectID).Logger(),
		send:     make(chan []byte, cfg.SendBuffer),
	}
}

func (c *Client) ID() string                { return c.id }
func (c *Client) Identity() domain.Identity { return c.identity }

// Deliver queues frame for the write pump. A full buffer fails this
// delivery only, until SlowConsumerLimit consecutive failures close the
// connection.
func (c *Client) Deliver(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		c.drops = 0
		return nil
	default:
		c.drops++
		if c.drops >= c.cfg.SlowConsumerLimit {
			c.log.Warn().Int("dropped", c.drops).Msg("closing slow consumer")
			c.closeLocked()
		}
		return domain.ErrSlowConsumer
	}
}

// Close stops the write pump, which sends a close frame and closes the
// socket. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run pumps the connection until either side goes away, then removes it
// from hub. inbound may be nil, in which case client frames are discarded.
func (c *Client) Run(hub *Hub, inbound InboundSink) {
	go c.writePump()
	c.readPump(inbound)
	hub.Unregister(c.id)
	c.Close()
}

func (c *Client) readPump(inbound InboundSink) {
	pongWait := c.cfg.PingInterval + c.cfg.WriteWait
	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("connection read failed")
			}
			return
		}
		if inbound == nil {
			continue
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.log.Debug().Err(err).Msg("malformed client frame ignored")
			continue
		}
		inbound.Enqueue(ports.InboundFrame{
			ConnID:   c.id,
			Identity: c.identity,
			Event:    env.Event,
			Data:     env.Data,
		})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("connection write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
