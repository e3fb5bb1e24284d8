package store

import (
	"context"
	"errors"
	"time"
)

var ErrUnsupportedDriver = errors.New("unsupported store driver")

type RoomRow struct {
	ID        string    `json:"id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Drawing is one durable history row. Data is opaque to the store.
type Drawing struct {
	RoomID   string
	Sequence int
	Data     []byte
}

// HistoryStore is the durable, room partitioned, sequence ordered table of
// drawings plus the rooms table.
type HistoryStore interface {
	UpsertRoom(ctx context.Context, roomID string) error
	GetRoom(ctx context.Context, roomID string) (*RoomRow, error)
	SaveDrawing(ctx context.Context, roomID string, sequence int, data []byte) error
	ListDrawings(ctx context.Context, roomID string) ([]Drawing, error)
	DeleteDrawing(ctx context.Context, roomID string, sequence int) error
	DeleteDrawings(ctx context.Context, roomID string) error
	Close() error
}
