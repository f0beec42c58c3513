package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
)

// Handler receives the raw data of one event frame.
type Handler = func(json.RawMessage)

type registration struct {
	id      string
	handler Handler
}

// Socket is a client-side live connection. Handlers are keyed by event
// name; several owners may register for the same or different events.
type Socket struct {
	conn *websocket.Conn

	mu       sync.RWMutex
	handlers map[string][]registration

	closeOnce sync.Once
	closed    atomic.Bool
}

func Dial(ctx context.Context, url string, header http.Header) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newSocket(conn), nil
}

func newSocket(conn *websocket.Conn) *Socket {
	return &Socket{
		conn:     conn,
		handlers: make(map[string][]registration),
	}
}

// On registers h for event and returns a func that removes exactly this
// registration.
func (s *Socket) On(event string, h Handler) func() {
	id := uuid.NewString()

	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], registration{id: id, handler: h})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(event, id) })
	}
}

// Off removes every handler registered for event.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	delete(s.handlers, event)
	s.mu.Unlock()
}

// HandlerCount reports how many handlers are registered for event.
func (s *Socket) HandlerCount(event string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[event])
}

func (s *Socket) remove(event, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := s.handlers[event]
	for i, r := range regs {
		if r.id == id {
			s.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(s.handlers[event]) == 0 {
		delete(s.handlers, event)
	}
}

// Listen reads frames until ctx is done or the connection drops. Handlers
// run on the calling goroutine.
func (s *Socket) Listen(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if s.closed.Load() {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		s.dispatch(env)
	}
}

func (s *Socket) dispatch(env models.Envelope) {
	s.mu.RLock()
	regs := append([]registration(nil), s.handlers[env.Event]...)
	s.mu.RUnlock()

	if len(regs) == 0 {
		logger.Log.Debug("no handler for event", zap.String("event", env.Event))
		return
	}
	for _, r := range regs {
		r.handler(env.Data)
	}
}

func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = s.conn.Close()
	})
	return err
}
