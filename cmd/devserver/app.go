package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/api"
	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/session"
	"bitbucket.org/sotavant/chatsync/internal/store"
)

const tokenTTL = 7 * 24 * time.Hour

type ctxKey struct{}

var validate = validator.New()

type app struct {
	store    store.Store
	hub      *hub
	secret   []byte
	upgrader websocket.Upgrader
	now      func() time.Time
}

func newApp(s store.Store, secret []byte) *app {
	return &app{
		store:    s,
		hub:      newHub(),
		secret:   secret,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		now:      time.Now,
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", logger.RequestLogger(gzipMiddleware(a.login)))
	mux.HandleFunc("GET /messages/users", logger.RequestLogger(gzipMiddleware(a.auth(a.users))))
	mux.HandleFunc("GET /messages/{peerId}", logger.RequestLogger(gzipMiddleware(a.auth(a.messages))))
	mux.HandleFunc("POST /messages/send/{peerId}", logger.RequestLogger(gzipMiddleware(a.auth(a.send))))
	mux.HandleFunc("GET /ws", logger.RequestLogger(a.auth(a.ws)))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		logger.Log.Debug("error encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Message: message})
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (a *app) issueToken(userID string) (string, error) {
	now := a.now()
	claims := session.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chatsync-devserver",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func tokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(api.TokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// auth rejects requests without a valid session token.
func (a *app) auth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized - No Token Provided")
			return
		}

		var claims session.Claims
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || claims.UserID == "" {
			logger.Log.Debug("rejecting token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid Token")
			return
		}

		h(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.UserID)))
	}
}

func (a *app) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		logger.Log.Debug("cannot decode login request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}

	user, err := a.store.FindUser(r.Context(), req.Username)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		logger.Log.Error("cannot find user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	token, err := a.issueToken(user.ID)
	if err != nil {
		logger.Log.Error("cannot sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(tokenTTL / time.Second),
	})
	writeJSON(w, http.StatusOK, models.LoginResponse{Peer: user, Token: token})
}

func (a *app) users(w http.ResponseWriter, r *http.Request) {
	users, err := a.store.ListUsers(r.Context(), userID(r.Context()))
	if err != nil {
		logger.Log.Error("cannot list users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *app) messages(w http.ResponseWriter, r *http.Request) {
	msgs, err := a.store.ListMessages(r.Context(), userID(r.Context()), r.PathValue("peerId"))
	if err != nil {
		logger.Log.Error("cannot load messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (a *app) send(w http.ResponseWriter, r *http.Request) {
	var body models.OutgoingMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Log.Debug("cannot decode request JSON body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid message body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Message must have text or image")
		return
	}

	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   userID(r.Context()),
		ReceiverID: r.PathValue("peerId"),
		Text:       body.Text,
		Image:      body.Image,
		CreatedAt:  a.now().UTC(),
	}
	if err := a.store.SaveMessage(r.Context(), msg); err != nil {
		logger.Log.Error("cannot save message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	a.hub.emit(msg.ReceiverID, models.EventNewMessage, msg)
	writeJSON(w, http.StatusCreated, msg)
}

func (a *app) ws(w http.ResponseWriter, r *http.Request) {
	id := userID(r.Context())
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Debug("cannot upgrade connection", zap.Error(err))
		return
	}

	a.hub.add(id, conn)
	defer a.hub.remove(id, conn)
	logger.Log.Debug("live connection opened", zap.String("user", id))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logger.Log.Debug("live connection closed", zap.String("user", id), zap.Error(err))
			return
		}
	}
}
