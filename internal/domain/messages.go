package domain

import "encoding/json"

// WebSocket message types from client.
const (
	MsgTypeAuth = "auth"
	MsgTypePing = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeAuthSuccess  = "auth_success"
	MsgTypeAuthError    = "auth_error"
	MsgTypePong         = "pong"
	MsgTypeNotification = "notification"
	MsgTypeError        = "error"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// AuthMessage is sent by a client to authenticate its connection.
type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Server -> Client messages

// AuthSuccessMessage confirms authentication and registration.
type AuthSuccessMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// AuthErrorMessage reports a failed authentication attempt. The connection
// stays open but remains unaddressable for pushes.
type AuthErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NotificationMessage is pushed to a specific user. It is outbound-only,
// never sent in direct response to a client frame.
type NotificationMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorMessage is sent when a frame cannot be handled.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewErrorMessage creates a new error message.
func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
