package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]RoomRow
	drawings map[string]map[int][]byte
}

var _ HistoryStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]RoomRow),
		drawings: make(map[string]map[int][]byte),
	}
}

func (m *MemoryStore) UpsertRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = RoomRow{ID: roomID, CreatedAt: time.Now().UTC()}
	}
	r.Active = true
	m.rooms[roomID] = r
	return nil
}

func (m *MemoryStore) GetRoom(_ context.Context, roomID string) (*RoomRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryStore) SaveDrawing(_ context.Context, roomID string, sequence int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.drawings[roomID]
	if !ok {
		rows = make(map[int][]byte)
		m.drawings[roomID] = rows
	}
	rows[sequence] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) ListDrawings(_ context.Context, roomID string) ([]Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]Drawing, 0, len(m.drawings[roomID]))
	for seq, data := range m.drawings[roomID] {
		list = append(list, Drawing{RoomID: roomID, Sequence: seq, Data: append([]byte(nil), data...)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}

func (m *MemoryStore) DeleteDrawing(_ context.Context, roomID string, sequence int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drawings[roomID], sequence)
	return nil
}

func (m *MemoryStore) DeleteDrawings(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drawings, roomID)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
