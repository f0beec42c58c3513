package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/sotavant/chatsync/internal/api"
)

func signedToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestLiveURL(t *testing.T) {
	testCases := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "https_with_path", base: "https://chat.example.com/api", want: "wss://chat.example.com/ws"},
		{name: "bad_scheme", base: "ftp://x", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := liveURL(tc.base)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUseToken(t *testing.T) {
	s, err := New("http://localhost:8080", api.New("http://localhost:8080", time.Second))
	require.NoError(t, err)

	require.NoError(t, s.UseToken(signedToken(t, "me")))
	assert.Equal(t, "me", s.UserID())

	assert.Error(t, s.UseToken("garbage"))
	assert.Error(t, s.UseToken(signedToken(t, "")))
	assert.Equal(t, "me", s.UserID())
}

func TestConnectRequiresToken(t *testing.T) {
	s, err := New("http://localhost:8080", api.New("http://localhost:8080", time.Second))
	require.NoError(t, err)

	_, err = s.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Nil(t, s.Transport())
}

func TestConnectAndDisconnect(t *testing.T) {
	token := signedToken(t, "me")

	gotAuth := make(chan string, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws", r.URL.Path)
		gotAuth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s, err := New(srv.URL, api.New(srv.URL, time.Second))
	require.NoError(t, err)
	require.NoError(t, s.UseToken(token))

	assert.Nil(t, s.Transport())

	_, err = s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, <-gotAuth)
	assert.NotNil(t, s.Transport())

	require.NoError(t, s.Disconnect())
	assert.Nil(t, s.Transport())
	assert.NoError(t, s.Disconnect())
}
