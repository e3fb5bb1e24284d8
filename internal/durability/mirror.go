package durability

import (
	"context"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/room"
	"drawsyncgo/internal/store"

	"go.uber.org/zap"
)

// Mirror makes room history durable through a Writer. It also serves the
// gateway's store reads so they queue behind the room's pending writes.
type Mirror struct {
	w     *Writer
	store store.HistoryStore
}

var _ room.Mirror = (*Mirror)(nil)

func NewMirror(w *Writer, hs store.HistoryStore) *Mirror {
	return &Mirror{w: w, store: hs}
}

func (m *Mirror) SaveDrawing(roomID string, el drawing.Element) {
	data, err := el.Marshal()
	if err != nil {
		zap.L().Error("durability.encode_element", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	m.w.Submit(roomID, "save_drawing", func(ctx context.Context) error {
		return m.store.SaveDrawing(ctx, roomID, el.Sequence, data)
	})
}

func (m *Mirror) DeleteDrawing(roomID string, sequence int) {
	m.w.Submit(roomID, "delete_drawing", func(ctx context.Context) error {
		return m.store.DeleteDrawing(ctx, roomID, sequence)
	})
}

func (m *Mirror) DeleteDrawings(roomID string) {
	m.w.Submit(roomID, "delete_drawings", func(ctx context.Context) error {
		return m.store.DeleteDrawings(ctx, roomID)
	})
}

// UpsertRoom marks the durable room row active.
func (m *Mirror) UpsertRoom(roomID string) {
	m.w.Submit(roomID, "upsert_room", func(ctx context.Context) error {
		return m.store.UpsertRoom(ctx, roomID)
	})
}

// FetchHistory loads the durable history of roomID after every write
// already submitted for it, then calls done from the writer goroutine.
// Rows that fail to decode are skipped.
func (m *Mirror) FetchHistory(roomID string, done func([]drawing.Element, error)) {
	ok := m.w.Submit(roomID, "fetch_history", func(ctx context.Context) error {
		rows, err := m.store.ListDrawings(ctx, roomID)
		if err != nil {
			done(nil, err)
			return err
		}
		elements := make([]drawing.Element, 0, len(rows))
		for _, row := range rows {
			el, err := drawing.Unmarshal(row.Data)
			if err != nil {
				zap.L().Warn("durability.decode_row",
					zap.String("room_id", roomID), zap.Int("sequence", row.Sequence), zap.Error(err))
				continue
			}
			el.Sequence = row.Sequence
			elements = append(elements, el)
		}
		done(elements, nil)
		return nil
	})
	if !ok {
		done(nil, ErrClosed)
	}
}
