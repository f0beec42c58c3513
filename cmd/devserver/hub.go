package main

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
)

// hub tracks live connections per user id.
type hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

func (h *hub) add(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *hub) remove(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
	_ = conn.Close()
}

// emit sends one event frame to every connection of userID.
func (h *hub) emit(userID, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("cannot encode event", zap.String("event", event), zap.Error(err))
		return
	}
	frame, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		logger.Log.Error("cannot encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Log.Warn("ws send failed, dropping connection", zap.String("user", userID), zap.Error(err))
			delete(h.conns[userID], conn)
			_ = conn.Close()
		}
	}
}

func (h *hub) online(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}
