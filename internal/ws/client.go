package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer
	},
}

// Client is one websocket connection bound to one room. A connection
// never changes rooms; a player opening another room opens another
// connection.
type Client struct {
	conn   *websocket.Conn
	roomID string
	send   chan []byte

	// last player id seen in a well-formed move frame on this connection,
	// used as the chat sender label.
	playerID string

	// mu guards closed so a broadcaster racing the disconnect path can
	// never send on a closed channel.
	mu     sync.Mutex
	closed bool

	log *zap.Logger
}

func newClient(conn *websocket.Conn, roomID string, log *zap.Logger) *Client {
	return &Client{
		conn:   conn,
		roomID: roomID,
		send:   make(chan []byte, sendBuffer),
		log:    log,
	}
}

// enqueue hands payload to the write pump without blocking. A full
// buffer means the reader is not keeping up; the caller drops the
// connection. Enqueue on an already-closed client reports failure
// instead of panicking.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// sendJSON encodes v and enqueues it on this connection only.
func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("encode frame", zap.Error(err))
		return
	}
	if !c.enqueue(data) {
		c.log.Warn("send buffer full, frame dropped", zap.String("room_id", c.roomID))
	}
}

func (c *Client) sendError(msg string) {
	c.sendJSON(NewErrorFrame(msg))
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump consumes inbound frames and hands each to handle. Frames are
// processed one at a time, so responses to a single connection keep
// their order. Returns when the connection drops or errors.
func (c *Client) readPump(handle func(raw []byte)) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", zap.String("room_id", c.roomID), zap.Error(err))
			}
			return
		}
		handle(raw)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("websocket write error", zap.String("room_id", c.roomID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
