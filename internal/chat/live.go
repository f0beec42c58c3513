package chat

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

var validate = validator.New()

// Live keeps at most one newMessage handler attached to the transport.
type Live struct {
	state      *state.Container
	transports TransportProvider

	mu     sync.Mutex
	active *Subscription
}

// Subscription is the handle for one attached handler.
type Subscription struct {
	live   *Live
	detach func()
	closed bool
}

// Close detaches the handler. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.live.mu.Lock()
	defer s.live.mu.Unlock()
	s.closeLocked()
}

// closeLocked detaches s and releases the active slot. l.mu must be held, so
// a concurrent Start never attaches while the old handler is still on the
// transport.
func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.detach()
	if s.live.active == s {
		s.live.active = nil
	}
}

func NewLive(st *state.Container, transports TransportProvider) *Live {
	return &Live{state: st, transports: transports}
}

// Start attaches the handler and returns its handle. It returns the
// already active handle if there is one, and nil when nothing is selected
// or no transport is connected.
func (l *Live) Start() *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		return l.active
	}
	if l.state.Read().SelectedPeer == nil {
		return nil
	}

	var t Transport
	if l.transports != nil {
		t = l.transports.Transport()
	}
	if t == nil {
		logger.Log.Warn("live transport is not connected, not subscribing to messages")
		return nil
	}

	sub := &Subscription{live: l}
	sub.detach = t.On(models.EventNewMessage, l.handle)
	l.active = sub
	logger.Log.Debug("subscribed to live messages")
	return sub
}

// Stop detaches the active handler, if any.
func (l *Live) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active != nil {
		l.active.closeLocked()
		logger.Log.Debug("unsubscribed from live messages")
	}
}

// Active reports whether a handler is attached.
func (l *Live) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active != nil
}

// handle appends msg if it comes from the peer selected at delivery time.
func (l *Live) handle(data json.RawMessage) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Log.Warn("cannot decode live message", zap.Error(err))
		return
	}
	if err := validate.Struct(msg); err != nil {
		logger.Log.Warn("invalid live message", zap.Error(err))
		return
	}

	l.state.Write(func(s *state.State) {
		if s.SelectedPeer == nil || msg.SenderID != s.SelectedPeer.ID {
			return
		}
		s.Messages = append(s.Messages, msg)
	})
}
