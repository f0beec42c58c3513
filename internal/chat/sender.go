package chat

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

// Sender posts messages to the selected peer.
type Sender struct {
	state    *state.Container
	messages MessageSender
	notifier Notifier
}

func NewSender(st *state.Container, messages MessageSender, n Notifier) *Sender {
	return &Sender{state: st, messages: messages, notifier: n}
}

// Send posts msg to the selected peer and appends the created message,
// unless the conversation was reopened or changed while the request was in
// flight. Own messages never come back on the live transport.
func (s *Sender) Send(ctx context.Context, msg models.OutgoingMessage) {
	snap := s.state.Read()
	peer, gen := snap.SelectedPeer, snap.Generation
	if peer == nil {
		logger.Log.Debug("no peer selected, not sending")
		return
	}
	if err := validate.Struct(msg); err != nil {
		logger.Log.Warn("invalid outgoing message", zap.Error(err))
		report(s.notifier, err, FallbackSendMessage)
		return
	}

	created, err := s.messages.SendMessage(ctx, peer.ID, msg)
	if err != nil {
		logger.Log.Error("cannot send message", zap.String("peer", peer.ID), zap.Error(err))
		report(s.notifier, err, FallbackSendMessage)
		return
	}

	s.state.Write(func(st *state.State) {
		if st.Generation != gen || st.SelectedPeer == nil || st.SelectedPeer.ID != peer.ID {
			return
		}
		if lo.ContainsBy(st.Messages, func(m models.Message) bool { return m.ID == created.ID }) {
			return
		}
		st.Messages = append(st.Messages, created)
	})
}
