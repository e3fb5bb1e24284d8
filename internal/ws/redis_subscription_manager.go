package ws

import (
	"context"
	"sync"

	"drawsyncgo/internal/changefeed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// subscriptionManager guarantees that we have **exactly one** Redis
// subscription per room channel, no matter how many websocket clients of
// this process joined the room. A nil client disables it.
type subscriptionManager struct {
	rdb    *redis.Client
	hub    *Hub
	origin string
	mu     sync.Mutex
	subs   map[string]*subEntry // roomID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub, origin string) *subscriptionManager {
	return &subscriptionManager{
		rdb:    rdb,
		hub:    hub,
		origin: origin,
		subs:   make(map[string]*subEntry),
	}
}

// Subscribe ensures that the process listens on the room's change feed;
// subsequent calls for the same room only increment the ref-counter.
func (sm *subscriptionManager) Subscribe(roomID string) {
	if sm.rdb == nil {
		return
	}
	sm.mu.Lock()
	if e, ok := sm.subs[roomID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer -> create Redis SUB and fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, changefeed.Channel(roomID))

	sm.subs[roomID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}
				sm.forward(roomID, m.Payload)
			}
		}
	}()
}

// forward relays a drawing persisted by another instance to local clients.
func (sm *subscriptionManager) forward(roomID, payload string) {
	ev, err := changefeed.Decode(payload)
	if err != nil {
		zap.L().Warn("ws.changefeed_decode", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if ev.Origin == sm.origin || ev.RoomID != roomID {
		return
	}
	el, err := ev.Drawing()
	if err != nil {
		zap.L().Warn("ws.changefeed_element", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	sm.hub.Publish(roomID, EventDraw, el, "")
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down when the
// last websocket client leaves the room.
func (sm *subscriptionManager) Unsubscribe(roomID string) {
	if sm.rdb == nil {
		return
	}
	sm.mu.Lock()
	e, ok := sm.subs[roomID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, roomID)
	sm.mu.Unlock()

	// Outside the lock -> stop the fan-out goroutine.
	e.cancel()
}

func (sm *subscriptionManager) active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.subs)
}
