package state

import (
	"slices"
	"sync"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

// State is the conversation currently open plus the peer directory.
type State struct {
	SelectedPeer     *models.Peer
	Messages         []models.Message
	Peers            []models.Peer
	IsLoadingPeers   bool
	IsLoadingHistory bool

	// Generation is bumped on every selection change. History responses
	// issued under an older generation are stale.
	Generation uint64
}

func (s State) clone() State {
	c := s
	if s.SelectedPeer != nil {
		p := *s.SelectedPeer
		c.SelectedPeer = &p
	}
	c.Messages = slices.Clone(s.Messages)
	c.Peers = slices.Clone(s.Peers)
	return c
}

// Observer receives the post-write snapshot.
type Observer func(State)

type notification struct {
	snapshot  State
	observers []Observer
}

// Container owns the single State of a session. Every read and write goes
// through it; a write is applied under the lock and observers run after the
// lock is released, in registration order.
//
// Notifications are delivered in write order. The first writer to find the
// queue idle drains it; concurrent and nested writers only enqueue, so their
// Write may return before observers have seen it.
type Container struct {
	mu        sync.Mutex
	state     State
	observers map[int]Observer
	order     []int
	nextID    int

	pending  []notification
	draining bool
}

func New() *Container {
	return &Container{observers: make(map[int]Observer)}
}

// Read returns a snapshot that shares no memory with the container.
func (c *Container) Read() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Write applies fn atomically and notifies observers.
func (c *Container) Write(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	if len(c.order) == 0 {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, notification{
		snapshot:  c.state.clone(),
		observers: c.snapshotObservers(),
	})
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	c.mu.Unlock()

	c.drain()
}

func (c *Container) drain() {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.pending = nil
			c.draining = false
			c.mu.Unlock()
			return
		}
		n := c.pending[0]
		c.pending[0] = notification{}
		c.pending = c.pending[1:]
		c.mu.Unlock()

		for _, o := range n.observers {
			o(n.snapshot)
		}
	}
}

// Reset discards the session state.
func (c *Container) Reset() {
	c.Write(func(s *State) {
		*s = State{Generation: s.Generation + 1}
	})
}

// Observe registers o and returns a func that removes it.
func (c *Container) Observe(o Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.observers[id] = o
	c.order = append(c.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.observers, id)
			c.order = slices.DeleteFunc(c.order, func(v int) bool { return v == id })
		})
	}
}

func (c *Container) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.observers[id])
	}
	return out
}
