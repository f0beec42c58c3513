package models

import (
	"encoding/json"
	"time"
)

const (
	EventNewMessage = "newMessage"
)

type Peer struct {
	ID         string `json:"_id" validate:"required"`
	FullName   string `json:"fullName,omitempty"`
	Email      string `json:"email,omitempty"`
	ProfilePic string `json:"profilePic,omitempty"`
}

type Message struct {
	ID         string    `json:"_id" validate:"required"`
	SenderID   string    `json:"senderId" validate:"required"`
	ReceiverID string    `json:"receiverId" validate:"required"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// OutgoingMessage is the body of a send request.
type OutgoingMessage struct {
	Text  string `json:"text,omitempty" validate:"required_without=Image"`
	Image string `json:"image,omitempty" validate:"required_without=Text"`
}

// Envelope is one frame on the live transport.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
}

type LoginResponse struct {
	Peer
	Token string `json:"token"`
}
