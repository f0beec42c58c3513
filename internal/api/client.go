package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
)

const (
	TokenCookie     = "jwt"
	RequestIDHeader = "X-Request-ID"
)

// Error is a non-2xx response from the chat backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("chat api: status %d: %s", e.StatusCode, e.Message)
}

// UserMessage is the human-readable text the server attached, if any.
func (e *Error) UserMessage() string {
	return e.Message
}

type Client struct {
	http *resty.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetError(&models.ErrorResponse{}).
		OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
			r.SetHeader(RequestIDHeader, uuid.NewString())
			return nil
		})

	return &Client{http: logger.Resty(c)}
}

// SetToken authenticates every following request with the session token.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
	c.http.SetCookie(&http.Cookie{Name: TokenCookie, Value: token})
}

func (c *Client) Login(ctx context.Context, username string) (models.LoginResponse, error) {
	var out models.LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.LoginRequest{Username: username}).
		SetResult(&out).
		Post("/auth/login")
	if err := check(resp, err); err != nil {
		return models.LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	return out, nil
}

func (c *Client) ListPeers(ctx context.Context) ([]models.Peer, error) {
	var out []models.Peer
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/messages/users")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	var out []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("peerId", peerID).
		SetResult(&out).
		Get("/messages/{peerId}")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("list messages with %s: %w", peerID, err)
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, peerID string, msg models.OutgoingMessage) (models.Message, error) {
	var out models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("peerId", peerID).
		SetBody(msg).
		SetResult(&out).
		Post("/messages/send/{peerId}")
	if err := check(resp, err); err != nil {
		return models.Message{}, fmt.Errorf("send message to %s: %w", peerID, err)
	}
	return out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &Error{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*models.ErrorResponse); ok && body != nil {
		apiErr.Message = body.Message
	}
	return apiErr
}
