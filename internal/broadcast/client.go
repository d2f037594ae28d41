package broadcast

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khanbekov/market-pulse/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait    = 10 * time.Second
	sendBuffer   = 16
	refreshFrame = "refresh"
)

// errorFrame is the §4.E / §6.4 error wire shape:
// {"error":"No data available for <symbol>"}.
type errorFrame struct {
	Error string `json:"error"`
}

// Client is one open `/ws/market/{symbol}` session.
type Client struct {
	id     uuid.UUID
	symbol string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	store  snapshot.Store
	logger zerolog.Logger
}

func newClient(symbol string, hub *Hub, conn *websocket.Conn, store snapshot.Store, logger zerolog.Logger) *Client {
	return &Client{
		id:     uuid.New(),
		symbol: symbol,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		store:  store,
		logger: logger,
	}
}

// serve registers the session, pushes the current snapshot (or an error
// frame), and runs the read/write pumps until the connection closes. It
// blocks until the session ends.
func (c *Client) serve(ctx context.Context) {
	c.hub.register(c)
	c.logger.Debug().Str("symbol", c.symbol).Str("sessionId", c.id.String()).Msg("broadcast session opened")
	defer func() {
		c.hub.unregister(c)
		c.hub.parent.drop(c.symbol)
		c.logger.Debug().Str("symbol", c.symbol).Str("sessionId", c.id.String()).Msg("broadcast session closed")
	}()

	c.pushCurrentSnapshot(ctx)

	done := make(chan struct{})
	go c.writePump(done)
	c.readPump(ctx)
	close(done)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.conn.Close()
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if string(msg) == refreshFrame {
			c.pushCurrentSnapshot(ctx)
		}
	}
}

func (c *Client) writePump(done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug().Err(err).Str("symbol", c.symbol).Msg("broadcast send failed")
				return
			}
		case <-done:
			return
		}
	}
}

// pushCurrentSnapshot reads the symbol's latest snapshot via the
// non-blocking store variant and enqueues it (or an error frame) on this
// client's send channel. A missing snapshot is a debug log, not an error
// (spec §4.E "a missing snapshot produces a debug log, not an error frame"
// refers to the server-side log; the client still receives the documented
// error JSON payload).
func (c *Client) pushCurrentSnapshot(ctx context.Context) {
	res := <-snapshot.FindLatestSnapshotAsync(ctx, c.store, c.symbol)

	var payload []byte
	if res.Err != nil {
		c.logger.Debug().Str("symbol", c.symbol).Msg("no snapshot available")
		payload, _ = json.Marshal(errorFrame{Error: "No data available for " + c.symbol})
	} else {
		payload, _ = json.Marshal(res.Snapshot)
	}

	select {
	case c.send <- payload:
	default:
		c.logger.Debug().Str("symbol", c.symbol).Msg("broadcast client send buffer full, dropping")
	}
}

// deliver enqueues a pre-serialized snapshot for this client, used by the
// scheduled Broadcaster push (as opposed to the per-session refresh path).
func (c *Client) deliver(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.logger.Debug().Str("symbol", c.symbol).Msg("broadcast client send buffer full, dropping")
	}
}
