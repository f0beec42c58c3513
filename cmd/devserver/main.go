// Command devserver is a development chat backend serving the endpoints
// chatsync talks to.
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/store"
)

func main() {
	if err := parseFlags(); err != nil {
		panic(err)
	}
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	if err := logger.Initialize(flagLogLevel); err != nil {
		return err
	}

	db, err := store.OpenBadger(flagDatabaseURI)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seed(context.Background(), db, seedUsernames()); err != nil {
		return err
	}

	appInstance := newApp(db, []byte(flagJWTSecret))

	logger.Log.Info("running server", zap.String("address", flagRunAddr))

	return http.ListenAndServe(flagRunAddr, appInstance.routes())
}

// seed creates the users that do not exist yet.
func seed(ctx context.Context, s store.Store, usernames []string) error {
	for _, name := range usernames {
		_, err := s.FindUser(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		user := models.Peer{ID: uuid.NewString(), FullName: name}
		if err := s.SaveUser(ctx, name, user); err != nil {
			return err
		}
		logger.Log.Info("seeded user", zap.String("username", name), zap.String("id", user.ID))
	}
	return nil
}
