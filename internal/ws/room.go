package ws

import (
	"sync"
)

// group is the broadcast set of one room on this process, in join order.
type group struct {
	mu      sync.RWMutex
	clients []*Client
	// dead is set once the last client left and the group was unlinked
	// from the hub; a joiner that raced with that must retry.
	dead bool
}

func (g *group) add(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead {
		return false
	}
	for _, existing := range g.clients {
		if existing == c {
			return true
		}
	}
	g.clients = append(g.clients, c)
	return true
}

// remove drops c and reports whether the group is now empty and dead.
func (g *group) remove(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.clients {
		if existing == c {
			g.clients = append(g.clients[:i], g.clients[i+1:]...)
			break
		}
	}
	if len(g.clients) == 0 {
		g.dead = true
	}
	return g.dead
}

func (g *group) broadcast(msg []byte, exceptID string) {
	// Take a quick snapshot of the current clients
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		if c.id != exceptID {
			clients = append(clients, c)
		}
	}
	g.mu.RUnlock()

	// Enqueue outside the lock
	for _, c := range clients {
		c.enqueue(msg)
	}
}

func (g *group) size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}
