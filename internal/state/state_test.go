package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

func TestReadReturnsIsolatedSnapshot(t *testing.T) {
	c := New()
	c.Write(func(s *State) {
		s.SelectedPeer = &models.Peer{ID: "u1"}
		s.Messages = []models.Message{{ID: "m1", SenderID: "u1", ReceiverID: "me"}}
	})

	snap := c.Read()
	snap.SelectedPeer.ID = "changed"
	snap.Messages[0].ID = "changed"
	snap.Messages = append(snap.Messages, models.Message{ID: "m2"})

	got := c.Read()
	require.NotNil(t, got.SelectedPeer)
	assert.Equal(t, "u1", got.SelectedPeer.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "m1", got.Messages[0].ID)
}

func TestObserversSeePostWriteState(t *testing.T) {
	c := New()

	var seen []int
	cancel := c.Observe(func(s State) {
		seen = append(seen, len(s.Messages))
	})

	c.Write(func(s *State) { s.Messages = append(s.Messages, models.Message{ID: "m1"}) })
	c.Write(func(s *State) { s.Messages = append(s.Messages, models.Message{ID: "m2"}) })
	cancel()
	cancel()
	c.Write(func(s *State) { s.Messages = nil })

	assert.Equal(t, []int{1, 2}, seen)
}

func TestObserverCanReadDuringNotification(t *testing.T) {
	c := New()

	var fromRead bool
	c.Observe(func(s State) {
		fromRead = c.Read().IsLoadingPeers
	})

	c.Write(func(s *State) { s.IsLoadingPeers = true })
	assert.True(t, fromRead)
}

func TestResetBumpsGeneration(t *testing.T) {
	c := New()
	c.Write(func(s *State) {
		s.Generation = 4
		s.Peers = []models.Peer{{ID: "u1"}}
		s.SelectedPeer = &models.Peer{ID: "u1"}
		s.IsLoadingHistory = true
	})

	c.Reset()

	got := c.Read()
	assert.Equal(t, uint64(5), got.Generation)
	assert.Nil(t, got.SelectedPeer)
	assert.Empty(t, got.Peers)
	assert.False(t, got.IsLoadingHistory)
}

func TestObserversSeeConcurrentWritesInOrder(t *testing.T) {
	c := New()

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var seen []int
	calls := 0
	c.Observe(func(s State) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, len(s.Messages))
		mu.Unlock()
	})

	go c.Write(func(s *State) { s.Messages = append(s.Messages, models.Message{ID: "m1"}) })
	<-entered

	// the second writer must not wait for the blocked notification
	c.Write(func(s *State) { s.Messages = append(s.Messages, models.Message{ID: "m2"}) })
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
	assert.Len(t, c.Read().Messages, seen[len(seen)-1])
}

func TestObserverWriteIsDeliveredAfterCurrent(t *testing.T) {
	c := New()

	var seen []bool
	c.Observe(func(s State) {
		seen = append(seen, s.IsLoadingPeers)
		if s.IsLoadingPeers {
			c.Write(func(s *State) { s.IsLoadingPeers = false })
		}
	})

	c.Write(func(s *State) { s.IsLoadingPeers = true })

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, c.Read().IsLoadingPeers)
}
