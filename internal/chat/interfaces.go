//go:generate mockgen -destination=mock/mock_chat.go -package=mock . API,Transport,TransportProvider,Notifier
package chat

import (
	"context"
	"encoding/json"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

const (
	FallbackFetchUsers    = "Failed to fetch users"
	FallbackFetchMessages = "Failed to fetch messages"
	FallbackSendMessage   = "Failed to send message"
)

type PeerLister interface {
	ListPeers(ctx context.Context) ([]models.Peer, error)
}

type MessageLister interface {
	ListMessages(ctx context.Context, peerID string) ([]models.Message, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, peerID string, msg models.OutgoingMessage) (models.Message, error)
}

// API is the request/response side of the chat backend.
type API interface {
	PeerLister
	MessageLister
	MessageSender
}

// Transport is a live connection shared with other owners. On returns a
// func that detaches only the registration it created.
type Transport interface {
	On(event string, handler func(json.RawMessage)) func()
}

// TransportProvider hands out the current live connection. Transport
// returns nil while no connection exists.
type TransportProvider interface {
	Transport() Transport
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Error(message string)
}
