package chat

import (
	"context"

	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

// Selector changes which conversation is open.
type Selector struct {
	state   *state.Container
	history *History
}

func NewSelector(st *state.Container, h *History) *Selector {
	return &Selector{state: st, history: h}
}

// Select opens the conversation with peer, or closes the current one when
// peer is nil. It never waits for the history fetch; the returned channel
// is closed once that fetch settles and may be ignored. A newer Select
// abandons the previous fetch without cancelling it.
//
// Closing the conversation leaves Messages untouched.
func (c *Selector) Select(ctx context.Context, peer *models.Peer) <-chan struct{} {
	var gen uint64
	c.state.Write(func(s *state.State) {
		s.Generation++
		gen = s.Generation
		if peer == nil {
			s.SelectedPeer = nil
			s.IsLoadingHistory = false
			return
		}
		p := *peer
		s.SelectedPeer = &p
		s.IsLoadingHistory = true
	})

	done := make(chan struct{})
	if peer == nil {
		logger.Log.Debug("selection cleared", zap.Uint64("generation", gen))
		close(done)
		return done
	}

	p := *peer
	logger.Log.Debug("peer selected", zap.String("peer", p.ID), zap.Uint64("generation", gen))
	go func() {
		defer close(done)
		c.history.load(ctx, gen, p)
	}()
	return done
}
