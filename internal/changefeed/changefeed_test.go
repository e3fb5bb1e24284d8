package changefeed

import (
	"context"
	"errors"
	"testing"

	"drawsyncgo/internal/drawing"
	"drawsyncgo/internal/store"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refusingStore struct {
	*store.MemoryStore
}

func (refusingStore) SaveDrawing(context.Context, string, int, []byte) error {
	return errors.New("disk full")
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "room:r1:drawings", Channel("r1"))
}

func TestSaveDrawingPublishes(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mem := store.NewMemoryStore()
	ps := NewPublishingStore(mem, rdb, "node-a")

	data := []byte(`{"tool":"line","startX":1,"startY":2,"endX":3,"endY":4}`)
	payload, err := Encode(Event{Origin: "node-a", RoomID: "r1", Sequence: 1, Element: data})
	require.NoError(t, err)
	mock.ExpectPublish("room:r1:drawings", payload).SetVal(1)

	require.NoError(t, ps.SaveDrawing(context.Background(), "r1", 1, data))
	require.NoError(t, mock.ExpectationsWereMet())

	rows, err := mem.ListDrawings(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestPublishFailureIsNotAStoreFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ps := NewPublishingStore(store.NewMemoryStore(), rdb, "node-a")

	data := []byte(`{"tool":"rect"}`)
	payload, err := Encode(Event{Origin: "node-a", RoomID: "r1", Sequence: 2, Element: data})
	require.NoError(t, err)
	mock.ExpectPublish("room:r1:drawings", payload).SetErr(errors.New("redis gone"))

	assert.NoError(t, ps.SaveDrawing(context.Background(), "r1", 2, data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedSaveIsNotPublished(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ps := NewPublishingStore(refusingStore{store.NewMemoryStore()}, rdb, "node-a")

	err := ps.SaveDrawing(context.Background(), "r1", 1, []byte(`{}`))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOtherMethodsPassThrough(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mem := store.NewMemoryStore()
	ps := NewPublishingStore(mem, rdb, "node-a")
	ctx := context.Background()

	require.NoError(t, ps.UpsertRoom(ctx, "r1"))
	row, err := ps.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDecode(t *testing.T) {
	ev, err := Decode(`{"origin":"node-b","roomId":"r1","sequence":4,"element":{"tool":"pencil","path":[[1,2]]}}`)
	require.NoError(t, err)
	assert.Equal(t, "node-b", ev.Origin)
	assert.Equal(t, "r1", ev.RoomID)

	el, err := ev.Drawing()
	require.NoError(t, err)
	assert.Equal(t, drawing.ToolPencil, el.Tool)
	assert.Equal(t, 4, el.Sequence)
	assert.Equal(t, []drawing.Point{{1, 2}}, el.Path)

	_, err = Decode(`not json`)
	assert.Error(t, err)
	_, err = Decode(`{"origin":"x"}`)
	assert.Error(t, err)
}
