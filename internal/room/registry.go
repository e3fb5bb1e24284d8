package room

import (
	"errors"
	"sort"
	"sync"

	"drawsyncgo/internal/drawing"

	"github.com/samber/lo"
)

var ErrRoomNotFound = errors.New("room not found")

// Mirror receives every history change so it can be made durable. Calls
// must not block; failures stay inside the implementation.
type Mirror interface {
	SaveDrawing(roomID string, el drawing.Element)
	DeleteDrawing(roomID string, sequence int)
	DeleteDrawings(roomID string)
}

// Room is the live state of one room: its ordered history and the
// connection ids currently in it.
type Room struct {
	ID string

	mu           sync.Mutex
	elements     []drawing.Element
	participants []string
	// revision increments on every history mutation.
	revision uint64
}

type Summary struct {
	ID           string `json:"id"`
	Participants int    `json:"participants"`
	Elements     int    `json:"elements"`
}

// Registry holds the rooms that have at least one connected participant.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	mirror Mirror
}

func NewRegistry(mirror Mirror) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		mirror: mirror,
	}
}

// EnsureRoom returns the room, creating it if absent. Concurrent callers
// for the same id all get the same *Room.
func (r *Registry) EnsureRoom(roomID string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ensureLocked(roomID)
}

func (r *Registry) ensureLocked(roomID string) *Room {
	if rm, ok := r.rooms[roomID]; ok {
		return rm
	}
	rm := &Room{ID: roomID}
	r.rooms[roomID] = rm
	return rm
}

func (r *Registry) get(roomID string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

func (r *Registry) Exists(roomID string) bool {
	_, err := r.get(roomID)
	return err == nil
}

// Join ensures the room and adds connID to it. It returns the current
// history and its revision, which then (if not nil) also receives while
// the room is still locked.
func (r *Registry) Join(roomID, connID string, then func(elements []drawing.Element, revision uint64)) ([]drawing.Element, uint64) {
	r.mu.Lock()
	rm := r.ensureLocked(roomID)
	rm.mu.Lock()
	r.mu.Unlock()
	defer rm.mu.Unlock()

	if !lo.Contains(rm.participants, connID) {
		rm.participants = append(rm.participants, connID)
	}
	elements := rm.snapshotLocked()
	if then != nil {
		then(elements, rm.revision)
	}
	return elements, rm.revision
}

// Leave removes connID from the room and drops the room once nobody is
// left. It reports whether the room was dropped.
func (r *Registry) Leave(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.participants = lo.Without(rm.participants, connID)
	if len(rm.participants) > 0 {
		return false
	}
	delete(r.rooms, roomID)
	return true
}

func (r *Registry) Participants(roomID string) ([]string, error) {
	rm, err := r.get(roomID)
	if err != nil {
		return nil, err
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return append([]string(nil), rm.participants...), nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ActiveRooms lists live rooms sorted by id.
func (r *Registry) ActiveRooms() []Summary {
	r.mu.RLock()
	rooms := lo.Values(r.rooms)
	r.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		out = append(out, Summary{
			ID:           rm.ID,
			Participants: len(rm.participants),
			Elements:     len(rm.elements),
		})
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// caller holds rm.mu
func (rm *Room) snapshotLocked() []drawing.Element {
	out := make([]drawing.Element, len(rm.elements))
	for i, el := range rm.elements {
		out[i] = el.Clone()
	}
	return out
}
