package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"drawsyncgo/internal/drawing"

	"go.uber.org/zap"
)

// EmitFunc sends one coalesced batch to a room.
type EmitFunc func(roomID string, elements []drawing.Element)

// Locker serializes a room's flush with the mutations of its history, so a
// batch cannot land after the undo or clear that invalidated it. WithRoom
// returns an error when the room is gone.
type Locker interface {
	WithRoom(roomID string, fn func()) error
}

type unlocked struct{}

func (unlocked) WithRoom(_ string, fn func()) error {
	fn()
	return nil
}

// Broadcaster coalesces per-room drawing updates and emits them once per
// period, so the outbound rate of a room does not follow its input rate.
//
// Lock order is room lock, then mu. Enqueue, Discard and Drop may be called
// with the room locked; Flush takes the room lock itself.
type Broadcaster struct {
	period time.Duration
	emit   EmitFunc
	rooms  Locker

	mu      sync.Mutex
	pending map[string][]drawing.Element
}

// New builds a Broadcaster. rooms may be nil, in which case flushes are
// not ordered against anything.
func New(period time.Duration, emit EmitFunc, rooms Locker) *Broadcaster {
	if rooms == nil {
		rooms = unlocked{}
	}
	return &Broadcaster{
		period:  period,
		emit:    emit,
		rooms:   rooms,
		pending: make(map[string][]drawing.Element),
	}
}

// Enqueue adds el to the room's pending list. It never flushes.
func (b *Broadcaster) Enqueue(roomID string, el drawing.Element) {
	b.mu.Lock()
	b.pending[roomID] = append(b.pending[roomID], el.Clone())
	b.mu.Unlock()
}

// Drop discards whatever the room has pending.
func (b *Broadcaster) Drop(roomID string) {
	b.mu.Lock()
	delete(b.pending, roomID)
	b.mu.Unlock()
}

// Discard removes pending finalized elements carrying sequence, so a batch
// sent after an undo does not bring the undone element back.
func (b *Broadcaster) Discard(roomID string, sequence int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	els, ok := b.pending[roomID]
	if !ok {
		return
	}
	kept := els[:0]
	for _, el := range els {
		if el.Sequence != sequence {
			kept = append(kept, el)
		}
	}
	b.pending[roomID] = kept
}

// Flush emits every non-empty pending list, rooms in id order, and returns
// how many rooms were emitted to. Each room is taken and emitted while the
// room is locked; entries of a room that no longer exists are dropped.
func (b *Broadcaster) Flush() int {
	b.mu.Lock()
	roomIDs := make([]string, 0, len(b.pending))
	for id := range b.pending {
		roomIDs = append(roomIDs, id)
	}
	b.mu.Unlock()
	sort.Strings(roomIDs)

	emitted := 0
	for _, id := range roomIDs {
		err := b.rooms.WithRoom(id, func() {
			if els := b.take(id); len(els) > 0 {
				b.emitRoom(id, els)
				emitted++
			}
		})
		if err != nil {
			b.Drop(id)
		}
	}
	return emitted
}

func (b *Broadcaster) take(roomID string) []drawing.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	els := b.pending[roomID]
	delete(b.pending, roomID)
	return els
}

func (b *Broadcaster) emitRoom(roomID string, elements []drawing.Element) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("batch.emit_panic", zap.String("room_id", roomID), zap.Any("panic", r))
		}
	}()
	b.emit(roomID, elements)
}

// Run flushes every period until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	tk := time.NewTicker(b.period)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				b.Flush()
			}
		}
	}()
}
