package roomhandler

import (
	"time"

	"drawsyncgo/internal/drawing"
)

type HealthResponse struct {
	Status      string   `json:"status"      example:"healthy"`
	Connections int      `json:"connections" example:"3"`
	Rooms       []string `json:"rooms"`
} // @name HealthResponse

type HistoryResponse struct {
	RoomID    string            `json:"roomId"    example:"r1"`
	Active    bool              `json:"active"`
	CreatedAt time.Time         `json:"createdAt"`
	Elements  []drawing.Element `json:"elements"`
} // @name HistoryResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
