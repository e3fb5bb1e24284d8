package roomhandler

import (
	"net/http"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/room"
	"drawsyncgo/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type RoomLister interface {
	ActiveRooms() []room.Summary
}

type ConnectionCounter interface {
	ConnectionCount() int
}

type Handler struct {
	rooms   RoomLister
	conns   ConnectionCounter
	history store.HistoryStore
}

func New(rooms RoomLister, conns ConnectionCounter, history store.HistoryStore) *Handler {
	return &Handler{rooms: rooms, conns: conns, history: history}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/rooms", h.list)
	r.GET("/rooms/:id/history", h.roomHistory)
}

// @Summary		Health check
// @Description	Open connections and the ids of rooms live on this instance.
// @Tags			Status
// @Success		200	{object}	HealthResponse
// @Router			/health [get]
func (h *Handler) health(c *gin.Context) {
	ids := lo.Map(h.rooms.ActiveRooms(), func(s room.Summary, _ int) string { return s.ID })
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		Connections: h.conns.ConnectionCount(),
		Rooms:       ids,
	})
}

// @Summary		List active rooms
// @Tags			Rooms
// @Success		200	{array}	room.Summary
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.ActiveRooms())
}

// @Summary		Stored room history
// @Description	Durable drawing history of a room, ordered by sequence.
// @Tags			Rooms
// @Param			id	path		string	true	"Room ID"
// @Success		200	{object}	HistoryResponse
// @Failure		404	{object}	ErrorResponse
// @Failure		500	{object}	ErrorResponse
// @Router			/rooms/{id}/history [get]
func (h *Handler) roomHistory(c *gin.Context) {
	roomID := c.Param("id")
	ctx := c.Request.Context()

	row, err := h.history.GetRoom(ctx, roomID)
	if err != nil {
		zap.L().Warn("http.room_lookup", zap.String("room_id", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: room.ErrRoomNotFound.Error()})
		return
	}

	rows, err := h.history.ListDrawings(ctx, roomID)
	if err != nil {
		zap.L().Warn("http.room_history", zap.String("room_id", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	elements := make([]drawing.Element, 0, len(rows))
	for _, r := range rows {
		el, err := drawing.Unmarshal(r.Data)
		if err != nil {
			continue
		}
		el.Sequence = r.Sequence
		elements = append(elements, el)
	}

	c.JSON(http.StatusOK, HistoryResponse{
		RoomID:    row.ID,
		Active:    row.Active,
		CreatedAt: row.CreatedAt,
		Elements:  elements,
	})
}
