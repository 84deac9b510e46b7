// Package relay manages individual WebSocket connections, handling the
// read/write pumps and per-connection lifecycle.
package relay

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client is one WebSocket connection. Its id is server-assigned and stable
// for the connection's lifetime; a reconnect produces a fresh id and the
// peer must re-join its rooms.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	addr string
	log  *zap.Logger
}

// NewClient wraps an upgraded connection. The send channel is buffered so
// fan-out to this client never blocks the router; overflow frames are
// dropped by the registry.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg *Config, log *zap.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, cfg.SendBufferSize),
		hub:  hub,
		addr: addr,
		log:  log,
	}
}

// ID returns the server-assigned connection identifier.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) setupReadConnection() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError classifies the error that ended the read loop.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("frame exceeded read limit", zap.String("conn", c.id))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure),
		errors.Is(err, io.EOF),
		isExpectedCloseError(err):
		c.log.Debug("client disconnected", zap.String("conn", c.id), zap.Error(err))
	default:
		c.log.Warn("websocket read error", zap.String("conn", c.id), zap.Error(err))
	}
}

// readPump processes inbound frames one at a time, in arrival order, until
// the connection drops, then triggers cleanup of all connection state.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("close after read pump", zap.String("conn", c.id), zap.Error(err))
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.hub.router.Dispatch(c.id, raw)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when the channel closes or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Debug("close after write pump", zap.String("conn", c.id), zap.Error(err))
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(frame) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrame writes one frame plus anything already queued, one message per
// frame so clients can decode envelopes independently.
func (c *Client) writeFrame(frame []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug("write failed", zap.String("conn", c.id), zap.Error(err))
		}
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		queued, ok := <-c.send
		if !ok {
			return false
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, queued); err != nil {
			return false
		}
	}
	return true
}

// isExpectedCloseError reports whether an error is routine connection
// teardown noise.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
