package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/api"
	"bitbucket.org/sotavant/chatsync/internal/chat"
	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/transport"
)

var ErrNoToken = errors.New("session has no token")

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Session owns the authentication token and the live connection. The
// connection is absent until Connect succeeds and after Disconnect.
type Session struct {
	client *api.Client
	wsURL  string

	mu     sync.RWMutex
	token  string
	userID string
	socket *transport.Socket
}

func New(baseURL string, client *api.Client) (*Session, error) {
	wsURL, err := liveURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Session{client: client, wsURL: wsURL}, nil
}

func liveURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Login obtains a token for username from the backend.
func (s *Session) Login(ctx context.Context, username string) error {
	resp, err := s.client.Login(ctx, username)
	if err != nil {
		return err
	}
	return s.UseToken(resp.Token)
}

// UseToken adopts an existing token. The signature is verified by the
// server; here the claims are only read to learn who we are.
func (s *Session) UseToken(token string) error {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("parse session token: %w", err)
	}
	if claims.UserID == "" {
		return errors.New("session token carries no userId")
	}

	s.mu.Lock()
	s.token = token
	s.userID = claims.UserID
	s.mu.Unlock()

	s.client.SetToken(token)
	logger.Log.Info("session established", zap.String("user", claims.UserID))
	return nil
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Connect dials the live connection. The caller runs Listen on the result.
func (s *Session) Connect(ctx context.Context) (*transport.Socket, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return nil, ErrNoToken
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("Cookie", (&http.Cookie{Name: api.TokenCookie, Value: token}).String())

	sock, err := transport.Dial(ctx, s.wsURL, header)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.socket
	s.socket = sock
	s.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	logger.Log.Info("live connection established", zap.String("url", s.wsURL))
	return sock, nil
}

// Transport returns the live connection, or nil when there is none.
func (s *Session) Transport() chat.Transport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.socket == nil {
		return nil
	}
	return s.socket
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	sock := s.socket
	s.socket = nil
	s.mu.Unlock()

	if sock == nil {
		return nil
	}
	return sock.Close()
}
