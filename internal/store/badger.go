package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

// Badger keeps users and messages in a badger database. Keys:
//
//	user:{id}                           -> Peer
//	username:{name}                     -> id
//	msg:{lo}|{hi}:{unixnano 19}:{id}    -> Message
//
// where lo/hi are the two participant ids in lexical order, so a prefix
// scan returns one conversation in time order.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens the database at dir, or an in-memory one when dir is
// empty.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func userKey(id string) []byte {
	return []byte("user:" + id)
}

func usernameKey(name string) []byte {
	return []byte("username:" + strings.ToLower(name))
}

func conversationPrefix(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("msg:%s|%s:", a, b)
}

func messageKey(m models.Message) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s",
		conversationPrefix(m.SenderID, m.ReceiverID),
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

func (b *Badger) FindUser(_ context.Context, username string) (models.Peer, error) {
	var user models.Peer
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(userKey(string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.Peer{}, ErrNotFound
	}
	if err != nil {
		return models.Peer{}, fmt.Errorf("find user %s: %w", username, err)
	}
	return user, nil
}

func (b *Badger) SaveUser(_ context.Context, username string, user models.Peer) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(userKey(user.ID), raw); err != nil {
			return err
		}
		return txn.Set(usernameKey(username), []byte(user.ID))
	})
}

func (b *Badger) ListUsers(_ context.Context, exceptID string) ([]models.Peer, error) {
	users := []models.Peer{}
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var u models.Peer
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &u)
			}); err != nil {
				return err
			}
			if u.ID != exceptID {
				users = append(users, u)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (b *Badger) ListMessages(_ context.Context, userID, peerID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(conversationPrefix(userID, peerID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m models.Message
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &m)
			}); err != nil {
				return err
			}
			msgs = append(msgs, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list messages %s/%s: %w", userID, peerID, err)
	}
	return msgs, nil
}

func (b *Badger) SaveMessage(_ context.Context, msg models.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), raw)
	})
}
