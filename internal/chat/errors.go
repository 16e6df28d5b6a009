package chat

import "errors"

// Errors returned by Manager operations. Transport causes are wrapped, so
// both the sentinel and the cause match with errors.Is / errors.As.
var (
	ErrRoomCreation = errors.New("room creation failed")
	ErrRoomJoin     = errors.New("room join failed")
	ErrSend         = errors.New("send message failed")

	// ErrStopped is returned by operations once the manager has stopped.
	ErrStopped = errors.New("connection manager stopped")

	// Stop causes, wrapped by ErrStopped.
	ErrManagerClosed      = errors.New("manager closed")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// Logged only; never returned to callers.
var (
	ErrNoSession      = errors.New("no room joined")
	ErrPresenceUpdate = errors.New("typing presence update failed")
)
