package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAssignsPaletteInOrder(t *testing.T) {
	m := NewManager()

	alice := m.Join("c1", "Alice", "r1", true, true)
	bob := m.Join("c2", "Bob", "r1", false, false)

	assert.Equal(t, "#e6194b", alice.Color)
	assert.Equal(t, "#3cb44b", bob.Color)
	assert.True(t, alice.IsHost)
	assert.Equal(t, "r1", bob.RoomID)
}

func TestColorsAreRoomScoped(t *testing.T) {
	m := NewManager()

	a := m.Join("c1", "Alice", "r1", false, false)
	b := m.Join("c2", "Bob", "r2", false, false)

	assert.Equal(t, a.Color, b.Color, "first participant of every room gets palette[0]")
}

func TestFreedColorIsReused(t *testing.T) {
	m := NewManager()

	m.Join("c1", "Alice", "r1", false, false)
	m.Join("c2", "Bob", "r1", false, false)
	_, ok := m.Leave("c1")
	require.True(t, ok)

	carol := m.Join("c3", "Carol", "r1", false, false)
	assert.Equal(t, Palette[0], carol.Color)
}

func TestPaletteExhaustionFallsBackToRandom(t *testing.T) {
	m := NewManager()
	m.randomColor = func() string { return "#123456" }

	for i := range Palette {
		p := m.Join(fmt.Sprintf("c%d", i), "user", "r1", false, false)
		require.Equal(t, Palette[i], p.Color)
	}

	extra := m.Join("extra", "late", "r1", false, false)
	assert.Equal(t, "#123456", extra.Color)
}

func TestRandomColorFormat(t *testing.T) {
	for range 50 {
		c := randomColor()
		require.Len(t, c, 7)
		require.Equal(t, byte('#'), c[0])
	}
}

func TestLeaveTwiceIsNoop(t *testing.T) {
	m := NewManager()
	m.Join("c1", "Alice", "r1", false, false)

	p, ok := m.Leave("c1")
	require.True(t, ok)
	assert.Equal(t, "Alice", p.DisplayName)

	_, ok = m.Leave("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestRosterRestoredAfterJoinLeave(t *testing.T) {
	m := NewManager()
	m.Join("c1", "Alice", "r1", false, false)
	m.Join("c2", "Bob", "r1", false, false)
	m.Join("x", "Other", "r2", false, false)
	before := m.ListByRoom("r1")

	m.Join("c3", "Carol", "r1", false, false)
	m.Leave("c3")

	assert.Equal(t, before, m.ListByRoom("r1"))
}

func TestListByRoomKeepsInsertionOrder(t *testing.T) {
	m := NewManager()
	m.Join("c2", "Zed", "r1", false, false)
	m.Join("c1", "Amy", "r1", false, false)
	m.Join("c3", "Elsewhere", "r2", false, false)

	list := m.ListByRoom("r1")
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c1", list[1].ID)

	assert.Empty(t, m.ListByRoom("nobody-here"))
}

func TestGet(t *testing.T) {
	m := NewManager()
	m.Join("c1", "Alice", "r1", false, true)

	p, ok := m.Get("c1")
	require.True(t, ok)
	assert.True(t, p.IsPresenter)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestConcurrentJoinLeave(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			m.Join(id, "user", "r1", false, false)
			if i%2 == 0 {
				m.Leave(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, m.Count())
	assert.Len(t, m.ListByRoom("r1"), 50)
}
