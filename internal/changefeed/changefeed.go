package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is published for every drawing that reached the history store.
type Event struct {
	Origin   string          `json:"origin"`
	RoomID   string          `json:"roomId"`
	Sequence int             `json:"sequence"`
	Element  json.RawMessage `json:"element"`
}

func Channel(roomID string) string {
	return "room:" + roomID + ":drawings"
}

func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.RoomID == "" || len(ev.Element) == 0 {
		return Event{}, fmt.Errorf("decode change event: missing room or element")
	}
	return ev, nil
}

// Drawing decodes the element carried by the event.
func (ev Event) Drawing() (drawing.Element, error) {
	el, err := drawing.Unmarshal(ev.Element)
	if err != nil {
		return drawing.Element{}, err
	}
	el.Sequence = ev.Sequence
	return el, nil
}

// PublishingStore wraps a HistoryStore and announces each saved drawing on
// the room's Redis channel. Only SaveDrawing is intercepted.
type PublishingStore struct {
	store.HistoryStore
	rdb    *redis.Client
	origin string
}

var _ store.HistoryStore = (*PublishingStore)(nil)

func NewPublishingStore(hs store.HistoryStore, rdb *redis.Client, origin string) *PublishingStore {
	return &PublishingStore{HistoryStore: hs, rdb: rdb, origin: origin}
}

// SaveDrawing publishes only after the store accepted the row. A failed
// publish is logged; the save still counts.
func (p *PublishingStore) SaveDrawing(ctx context.Context, roomID string, sequence int, data []byte) error {
	if err := p.HistoryStore.SaveDrawing(ctx, roomID, sequence, data); err != nil {
		return err
	}

	payload, err := Encode(Event{Origin: p.origin, RoomID: roomID, Sequence: sequence, Element: data})
	if err != nil {
		zap.L().Warn("changefeed.encode", zap.String("room_id", roomID), zap.Error(err))
		return nil
	}
	if err := p.rdb.Publish(ctx, Channel(roomID), payload).Err(); err != nil {
		zap.L().Warn("changefeed.publish",
			zap.String("room_id", roomID), zap.Int("sequence", sequence), zap.Error(err))
	}
	return nil
}

func Encode(ev Event) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
