// Command chatsync is an interactive terminal chat client.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bitbucket.org/sotavant/chatsync/internal/api"
	"bitbucket.org/sotavant/chatsync/internal/chat"
	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/session"
	"bitbucket.org/sotavant/chatsync/internal/state"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := api.New(flagServerAddr, flagTimeout)
	sess, err := session.New(flagServerAddr, apiClient)
	if err != nil {
		return err
	}

	switch {
	case flagToken != "":
		err = sess.UseToken(flagToken)
	case flagUsername != "":
		err = sess.Login(ctx, flagUsername)
	default:
		err = errors.New("either -u or -t is required")
	}
	if err != nil {
		return err
	}

	sock, err := sess.Connect(ctx)
	if err != nil {
		logger.Log.Warn("live updates unavailable", zap.Error(err))
	}
	defer func() {
		if err := sess.Disconnect(); err != nil {
			logger.Log.Debug("disconnect", zap.Error(err))
		}
	}()

	conv := chat.New(state.New(), apiClient, sess, newColorNotifier(os.Stderr))
	defer conv.Close()

	repl := newClient(conv, sess.UserID(), os.Stdout)
	defer repl.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	if sock != nil {
		eg.Go(func() error {
			return sock.Listen(egCtx)
		})
	}
	eg.Go(func() error {
		defer cancel()
		return repl.run(egCtx, os.Stdin)
	})

	return eg.Wait()
}
