package ws

import (
	"sync"

	"drawsyncgo/internal/drawing"

	"go.uber.org/zap"
)

// Hub keeps client sets per roomID.
type Hub struct {
	groups sync.Map // roomID -> *group
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) Join(roomID string, c *Client) {
	for {
		g, _ := h.groups.LoadOrStore(roomID, &group{})
		if g.(*group).add(c) {
			return
		}
		// the group emptied under us; unlink it if still present and retry
		h.groups.CompareAndDelete(roomID, g)
	}
}

func (h *Hub) Leave(roomID string, c *Client) {
	g, ok := h.groups.Load(roomID)
	if !ok {
		return
	}
	if g.(*group).remove(c) {
		h.groups.CompareAndDelete(roomID, g)
	}
}

// Publish sends one event to the room, skipping the client with exceptID
// (empty for everyone).
func (h *Hub) Publish(roomID, event string, body any, exceptID string) {
	g, ok := h.groups.Load(roomID)
	if !ok {
		return
	}
	msg, err := encodeFrame(event, body)
	if err != nil {
		zap.L().Error("ws.encode_frame", zap.String("event", event), zap.Error(err))
		return
	}
	g.(*group).broadcast(msg, exceptID)
}

// EmitBatch is the batch broadcaster's sink.
func (h *Hub) EmitBatch(roomID string, elements []drawing.Element) {
	h.Publish(roomID, EventBatch, elementsBody(elements), "")
}

// Size reports how many local clients are in the room.
func (h *Hub) Size(roomID string) int {
	g, ok := h.groups.Load(roomID)
	if !ok {
		return 0
	}
	return g.(*group).size()
}
