package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/sotavant/chatsync/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListPeers(t *testing.T) {
	var gotAuth, gotCookie, gotRequestID string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/messages/users", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(RequestIDHeader)
		if ck, err := r.Cookie(TokenCookie); err == nil {
			gotCookie = ck.Value
		}
		writeJSON(w, http.StatusOK, []models.Peer{{ID: "u1", FullName: "Ann"}, {ID: "u2"}})
	})
	c.SetToken("tok")

	peers, err := c.ListPeers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Peer{{ID: "u1", FullName: "Ann"}, {ID: "u2"}}, peers)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "tok", gotCookie)
	assert.NotEmpty(t, gotRequestID)
}

func TestListMessagesKeepsServerOrder(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/u1", r.URL.Path)
		writeJSON(w, http.StatusOK, []models.Message{
			{ID: "m2", SenderID: "u1", ReceiverID: "me", Text: "second"},
			{ID: "m1", SenderID: "me", ReceiverID: "u1", Text: "first"},
		})
	})

	msgs, err := c.ListMessages(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m1", msgs[1].ID)
}

func TestSendMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/send/u1", r.URL.Path)

		var body models.OutgoingMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Text)

		writeJSON(w, http.StatusCreated, models.Message{ID: "m9", SenderID: "me", ReceiverID: "u1", Text: body.Text})
	})

	msg, err := c.SendMessage(context.Background(), "u1", models.OutgoingMessage{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "m9", msg.ID)
}

func TestErrors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        any
		wantMessage string
	}{
		{
			name:        "server_message",
			status:      http.StatusUnauthorized,
			body:        models.ErrorResponse{Message: "Unauthorized - No Token Provided"},
			wantMessage: "Unauthorized - No Token Provided",
		},
		{
			name:        "no_message",
			status:      http.StatusInternalServerError,
			body:        map[string]string{},
			wantMessage: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := c.ListPeers(context.Background())
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.wantMessage, apiErr.UserMessage())
		})
	}
}

func TestLogin(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		writeJSON(w, http.StatusOK, models.LoginResponse{Peer: models.Peer{ID: "me", FullName: req.Username}, Token: "tok"})
	})

	resp, err := c.Login(context.Background(), "ann")
	require.NoError(t, err)
	assert.Equal(t, "me", resp.ID)
	assert.Equal(t, "ann", resp.FullName)
	assert.Equal(t, "tok", resp.Token)
}
