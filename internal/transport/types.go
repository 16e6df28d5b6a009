package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/piyush4299/chat-app/internal/auth"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrTimeout         = errors.New("request timeout")
	ErrAlreadyClosed   = errors.New("already closed")
)

// RemoteError is a rejection reported by the chat service.
type RemoteError struct {
	Type    MessageType
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s rejected: %s: %s", e.Type, e.Code, e.Message)
}

// MessageType tags every frame exchanged with the chat service.
type MessageType string

const (
	TypeCreateSession     MessageType = "createSession"
	TypeJoinSession       MessageType = "joinSession"
	TypeSendMessage       MessageType = "sendMessage"
	TypeSetTypingPresence MessageType = "setTypingPresence"
)

// Handlers receives connection lifecycle and inbound traffic.
// OnMessage is called from the read loop, one message at a time.
type Handlers struct {
	OnReady   func()
	OnClose   func(err error)
	OnMessage func(Message)
}

// Transport is a single connection to the chat service.
type Transport interface {
	// Connect opens the connection and calls h.OnReady once it is usable.
	Connect(ctx context.Context, h Handlers) error

	// CreateRoom asks the service for a new room and returns its id.
	CreateRoom(ctx context.Context, nickname, icon string) (string, error)

	// JoinRoom joins an existing room and returns its message backlog.
	JoinRoom(ctx context.Context, nickname, roomID, icon string) ([]ChatMessage, error)

	// Send writes a fire-and-forget message.
	Send(ctx context.Context, typ MessageType, payload any) error

	// Close shuts the connection down without calling OnClose.
	Close() error
}

// Factory opens a fresh, unconnected Transport.
type Factory func() Transport

// Message is an inbound frame that was not a reply to a request.
type Message struct {
	Type       MessageType
	Data       json.RawMessage
	ReceivedAt time.Time
}

// Request is the client to server envelope.
type Request struct {
	Action     MessageType `json:"action"`
	CallbackID string      `json:"callbackId,omitempty"`
	Data       any         `json:"data,omitempty"`
}

// Frame is the server to client envelope. Replies carry the CallbackID of
// the request they answer.
type Frame struct {
	Type       MessageType     `json:"type"`
	CallbackID string          `json:"callbackId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *ErrorMsg       `json:"error,omitempty"`
}

// ErrorMsg is the error body of a rejected request.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionParams are the parameters for createSession and joinSession.
type SessionParams struct {
	SessionID string `json:"sessionId,omitempty"`
	Nickname  string `json:"userNickname"`
	Icon      string `json:"userIcon,omitempty"`
}

// CreateSessionResult is the reply body for createSession.
type CreateSessionResult struct {
	SessionID string `json:"sessionId"`
}

// JoinSessionResult is the reply body for joinSession.
type JoinSessionResult struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is a message as broadcast by the service.
type ChatMessage struct {
	IsSystemMessage bool   `json:"isSystemMessage"`
	UserIcon        string `json:"userIcon,omitempty"`
	UserNickname    string `json:"userNickname,omitempty"`
	Body            string `json:"body"`
	PermID          string `json:"permId,omitempty"`
	Timestamp       int64  `json:"timestamp"` // Unix milliseconds
}

// SendMessageParams is the payload for sendMessage.
type SendMessageParams struct {
	Body string `json:"body"`
}

// TypingParams is the payload for setTypingPresence.
type TypingParams struct {
	Typing bool `json:"typing"`
}

// TypingPresence is the setTypingPresence broadcast body.
type TypingPresence struct {
	UsersTyping []string `json:"usersTyping"`
}

// ClientConfig configures the WebSocket transport.
type ClientConfig struct {
	URL              string            // e.g. wss://chat.example.com/ws
	Origin           string            // Origin header, optional
	Credentials      *auth.Credentials // nil = unsigned handshake
	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration // Max wait for a createSession/joinSession reply
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	PingTimeout      time.Duration // Max time without a pong before the connection is stale
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		RequestTimeout:   10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
	}
}

// NewFactory returns a Factory producing WebSocket clients for cfg.
func NewFactory(cfg ClientConfig, logger *slog.Logger) Factory {
	return func() Transport {
		return NewClient(cfg, logger)
	}
}
