package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitAfterCloseIsNoop(t *testing.T) {
	c := newClient("c1", nil, 4)
	c.close()
	c.close()

	assert.False(t, c.emit(EventNotice, NoticeBody{Text: "late"}))
	assert.Equal(t, stateDisconnected, c.currentState())
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	c := newClient("c1", nil, 1)
	assert.True(t, c.emit(EventNotice, NoticeBody{Text: "one"}))
	assert.False(t, c.emit(EventNotice, NoticeBody{Text: "two"}))
	assert.Len(t, c.send, 1)
}

func TestMarkJoinedOnlyOnce(t *testing.T) {
	c := newClient("c1", nil, 1)
	_, joined := c.room()
	assert.False(t, joined)

	require.True(t, c.markJoined("r1", "alice"))
	assert.False(t, c.markJoined("r2", "alice"))

	roomID, joined := c.room()
	assert.True(t, joined)
	assert.Equal(t, "r1", roomID)

	c.close()
	_, joined = c.room()
	assert.False(t, joined)
}

func TestHubPublishSkipsSender(t *testing.T) {
	h := NewHub()
	a := newClient("a", nil, 4)
	b := newClient("b", nil, 4)
	h.Join("r1", a)
	h.Join("r1", b)
	h.Join("r1", b)
	assert.Equal(t, 2, h.Size("r1"))

	h.Publish("r1", EventNotice, NoticeBody{Text: "hi"}, "a")
	assert.Len(t, a.send, 0)
	require.Len(t, b.send, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(<-b.send, &env))
	assert.Equal(t, EventNotice, env.Event)
	assert.JSONEq(t, `{"text":"hi"}`, string(env.Body))
}

func TestHubDropsEmptyGroup(t *testing.T) {
	h := NewHub()
	a := newClient("a", nil, 4)
	h.Join("r1", a)
	h.Leave("r1", a)

	_, ok := h.groups.Load("r1")
	assert.False(t, ok)

	h.Join("r1", a)
	assert.Equal(t, 1, h.Size("r1"))
}

func TestHubJoinRetriesDeadGroup(t *testing.T) {
	h := NewHub()
	dead := &group{dead: true}
	h.groups.Store("r1", dead)

	a := newClient("a", nil, 4)
	h.Join("r1", a)

	g, ok := h.groups.Load("r1")
	require.True(t, ok)
	assert.NotSame(t, dead, g)
	assert.Equal(t, 1, h.Size("r1"))
}

func TestRouterDecodesAndValidates(t *testing.T) {
	r := NewRouter()
	var got JoinRequest
	Register(r, EventJoin, func(_ context.Context, _ *Client, req JoinRequest) error {
		got = req
		return nil
	})
	c := newClient("c1", nil, 1)

	err := r.dispatch(context.Background(), c, Envelope{
		Event: EventJoin,
		Body:  json.RawMessage(`{"roomId":"r1","displayName":"alice","isHost":true}`),
	})
	require.NoError(t, err)
	assert.Equal(t, JoinRequest{RoomID: "r1", DisplayName: "alice", IsHost: true}, got)

	err = r.dispatch(context.Background(), c, Envelope{Event: EventJoin, Body: json.RawMessage(`{"roomId":"r1"}`)})
	assert.Error(t, err)

	err = r.dispatch(context.Background(), c, Envelope{Event: EventJoin, Body: json.RawMessage(`[1,2]`)})
	assert.True(t, errors.Is(err, errMalformedFrame))

	err = r.dispatch(context.Background(), c, Envelope{Event: "nope"})
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestRegisterPanicsOnEmptyEvent(t *testing.T) {
	assert.Panics(t, func() {
		Register(NewRouter(), "", func(context.Context, *Client, EmptyBody) error { return nil })
	})
}
