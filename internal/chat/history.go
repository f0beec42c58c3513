package chat

import (
	"context"

	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

// History loads the message history for one peer.
type History struct {
	state    *state.Container
	messages MessageLister
	notifier Notifier
}

func NewHistory(st *state.Container, messages MessageLister, n Notifier) *History {
	return &History{state: st, messages: messages, notifier: n}
}

// LoadHistory replaces Messages with the history for peer. The call starts
// a new generation, so it supersedes any fetch still in flight and is itself
// superseded by a later LoadHistory or Select.
func (h *History) LoadHistory(ctx context.Context, peer models.Peer) {
	var gen uint64
	h.state.Write(func(s *state.State) {
		s.Generation++
		gen = s.Generation
		s.IsLoadingHistory = true
	})
	h.load(ctx, gen, peer)
}

// load runs a fetch issued under generation gen. Only a fetch whose
// generation is still current may write Messages or clear the loading flag;
// anything else belongs to an abandoned selection. Messages are written only
// for the selected peer, or when nothing is selected.
func (h *History) load(ctx context.Context, gen uint64, peer models.Peer) {
	msgs, err := h.messages.ListMessages(ctx, peer.ID)

	var stale, foreign bool
	h.state.Write(func(s *state.State) {
		if s.Generation != gen {
			stale = true
			return
		}
		s.IsLoadingHistory = false
		if s.SelectedPeer != nil && s.SelectedPeer.ID != peer.ID {
			foreign = true
			return
		}
		if err == nil {
			s.Messages = msgs
		}
	})

	switch {
	case stale:
		logger.Log.Debug("dropping stale history",
			zap.String("peer", peer.ID),
			zap.Uint64("generation", gen),
			zap.Bool("failed", err != nil),
		)
	case foreign:
		logger.Log.Debug("dropping history for unselected peer", zap.String("peer", peer.ID))
	case err != nil:
		logger.Log.Error("cannot load history", zap.String("peer", peer.ID), zap.Error(err))
		report(h.notifier, err, FallbackFetchMessages)
	default:
		logger.Log.Debug("history loaded", zap.String("peer", peer.ID), zap.Int("count", len(msgs)))
	}
}
