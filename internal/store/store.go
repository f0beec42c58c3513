//go:generate mockgen -destination=mock/mock_store.go -package=mock . Store
package store

import (
	"context"
	"errors"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the dev backend's user and message storage.
type Store interface {
	FindUser(ctx context.Context, username string) (models.Peer, error)
	SaveUser(ctx context.Context, username string, user models.Peer) error
	ListUsers(ctx context.Context, exceptID string) ([]models.Peer, error)
	ListMessages(ctx context.Context, userID, peerID string) ([]models.Message, error)
	SaveMessage(ctx context.Context, msg models.Message) error
}
