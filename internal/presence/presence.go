// Package presence tracks connected participants and hands out their
// display colors.
package presence

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/samber/lo"
)

// Palette is handed out in order; the first entry unused in a room wins.
var Palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#e6beff",
	"#9a6324", "#fffac8", "#800000", "#aaffc3",
	"#808000", "#ffd8b1", "#000075", "#808080",
}

type Participant struct {
	ID          string
	DisplayName string
	RoomID      string
	IsHost      bool
	IsPresenter bool
	Color       string
}

// Projection is the public view of a participant sent in presence lists.
type Projection struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

func (p Participant) Projection() Projection {
	return Projection{ID: p.ID, DisplayName: p.DisplayName, Color: p.Color}
}

// Manager owns the roster of every active participant across rooms.
type Manager struct {
	mu     sync.RWMutex
	roster []Participant

	randomColor func() string
}

func NewManager() *Manager {
	return &Manager{randomColor: randomColor}
}

// Join registers a participant and assigns the first palette color not
// already used inside roomID. Once the room has used the whole palette the
// color is random and may collide.
func (m *Manager) Join(connID, displayName, roomID string, isHost, isPresenter bool) Participant {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Participant{
		ID:          connID,
		DisplayName: displayName,
		RoomID:      roomID,
		IsHost:      isHost,
		IsPresenter: isPresenter,
		Color:       m.colorFor(roomID),
	}
	m.roster = append(m.roster, p)
	return p
}

// Leave removes the participant with connID. A second call for the same
// connection reports false.
func (m *Manager) Leave(connID string) (Participant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, idx, ok := lo.FindIndexOf(m.roster, func(p Participant) bool { return p.ID == connID })
	if !ok {
		return Participant{}, false
	}
	p := m.roster[idx]
	m.roster = append(m.roster[:idx], m.roster[idx+1:]...)
	return p, true
}

// ListByRoom returns the room's participants in join order.
func (m *Manager) ListByRoom(roomID string) []Projection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.FilterMap(m.roster, func(p Participant, _ int) (Projection, bool) {
		return p.Projection(), p.RoomID == roomID
	})
}

func (m *Manager) Get(connID string) (Participant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Find(m.roster, func(p Participant) bool { return p.ID == connID })
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roster)
}

// caller holds m.mu
func (m *Manager) colorFor(roomID string) string {
	used := make(map[string]struct{})
	for _, p := range m.roster {
		if p.RoomID == roomID {
			used[p.Color] = struct{}{}
		}
	}
	for _, c := range Palette {
		if _, taken := used[c]; !taken {
			return c
		}
	}
	return m.randomColor()
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(0x1000000))
}
