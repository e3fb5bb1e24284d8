package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"drawsyncgo/internal/batch"
	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/presence"
	"drawsyncgo/internal/room"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	handlerTimeout = 2 * time.Second
)

// History is the durable side of a room as the gateway sees it. Both calls
// return immediately.
type History interface {
	UpsertRoom(roomID string)
	FetchHistory(roomID string, done func([]drawing.Element, error))
}

type Deps struct {
	Presence *presence.Manager
	Rooms    *room.Registry
	Batch    *batch.Broadcaster
	History  History

	// Redis carries the cross-instance change feed; nil disables it.
	Redis  *redis.Client
	Origin string

	MaxMessageSize int64
	SendBuffer     int
}

type WsServer struct {
	hub      *Hub
	subMgr   *subscriptionManager
	router   *Router
	presence *presence.Manager
	rooms    *room.Registry
	batch    *batch.Broadcaster
	history  History
	upgrader websocket.Upgrader

	maxMessageSize int64
	sendBuffer     int

	clients sync.Map // conn id -> *Client
	conns   atomic.Int64
}

func NewWsServer(h *Hub, deps Deps) *WsServer {
	if deps.MaxMessageSize <= 0 {
		deps.MaxMessageSize = 1 << 20
	}
	if deps.SendBuffer <= 0 {
		deps.SendBuffer = 256
	}
	srv := &WsServer{
		hub:      h,
		subMgr:   newSubscriptionManager(deps.Redis, h, deps.Origin),
		router:   NewRouter(),
		presence: deps.Presence,
		rooms:    deps.Rooms,
		batch:    deps.Batch,
		history:  deps.History,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
		},
		maxMessageSize: deps.MaxMessageSize,
		sendBuffer:     deps.SendBuffer,
	}
	srv.registerHandlers()
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	c := s.attach(newClient(uuid.NewString(), rawConn, s.sendBuffer))
	zap.L().Debug("ws.connected", zap.String("conn_id", c.id), zap.String("remote", rawConn.RemoteAddr().String()))

	go c.writePump()
	go func() {
		defer s.disconnect(c)
		c.readPump(s.maxMessageSize, func(msg []byte) { s.handleFrame(c, msg) })
	}()
}

// ConnectionCount is the number of open websocket connections.
func (s *WsServer) ConnectionCount() int {
	return int(s.conns.Load())
}

// Close drops every open connection; each one runs its normal teardown.
func (s *WsServer) Close() {
	s.clients.Range(func(_, v any) bool {
		if c := v.(*Client); c.conn != nil {
			_ = c.conn.Close()
		}
		return true
	})
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) attach(c *Client) *Client {
	s.clients.Store(c.id, c)
	s.conns.Add(1)
	return c
}

func (s *WsServer) handleFrame(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		zap.L().Debug("ws.bad_frame", zap.String("conn_id", c.id), zap.Error(err))
		c.emitError(errMalformedFrame)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	err := s.router.dispatch(ctx, c, env)
	cancel()

	// ---- error -> {"event":"error", "body":{...}} ---------------
	if err != nil {
		zap.L().Debug("ws.rejected",
			zap.String("conn_id", c.id), zap.String("event", env.Event), zap.Error(err))
		c.emitError(err)
	}
}

func (s *WsServer) publishPresence(roomID string) {
	s.hub.Publish(roomID, EventPresence, PresenceBody{Participants: s.presence.ListByRoom(roomID)}, "")
}
