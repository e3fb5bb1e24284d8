package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type connState int

const (
	stateUnjoined connState = iota
	stateJoined
	stateDisconnected
)

func (s connState) String() string {
	switch s {
	case stateUnjoined:
		return "unjoined"
	case stateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Client is one websocket connection. Every outbound frame goes through
// send, which only the write pump drains; send is closed once, at teardown.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu          sync.Mutex
	closed      bool
	state       connState
	roomID      string
	displayName string
}

func newClient(id string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

func (c *Client) ID() string { return c.id }

// enqueue hands msg to the write pump. It is a no-op on a closed client and
// drops the frame when the buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		zap.L().Debug("ws.emit_after_close", zap.String("conn_id", c.id))
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		zap.L().Warn("ws.send_buffer_full", zap.String("conn_id", c.id), zap.String("room_id", c.roomID))
		return false
	}
}

func (c *Client) emit(event string, body any) bool {
	msg, err := encodeFrame(event, body)
	if err != nil {
		zap.L().Error("ws.encode_frame", zap.String("event", event), zap.Error(err))
		return false
	}
	return c.enqueue(msg)
}

func (c *Client) emitError(err error) {
	c.emit(EventError, ErrorBody{Error: err.Error()})
}

// close tears the outbound channel down. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.state = stateDisconnected
	close(c.send)
}

func (c *Client) currentState() connState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// markJoined moves an unjoined client into roomID. It reports false if the
// client is not unjoined anymore.
func (c *Client) markJoined(roomID, displayName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateUnjoined {
		return false
	}
	c.state = stateJoined
	c.roomID = roomID
	c.displayName = displayName
	return true
}

// room returns the joined room id, or false before join and after teardown.
func (c *Client) room() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.state == stateJoined
}

// readPump feeds every text frame to handle until the peer goes away.
func (c *Client) readPump(maxMessageSize int64, handle func(msg []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		handle(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				zap.L().Debug("ws.write", zap.String("conn_id", c.id), zap.Error(err))
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
