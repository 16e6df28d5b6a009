package chat

import (
	"encoding/json"
	"time"

	"github.com/piyush4299/chat-app/internal/transport"
)

// Event is anything delivered to an EventHandler or subscription.
// Consumers type-switch on the concrete types below.
type Event interface {
	isEvent()
}

// EventHandler receives events synchronously, in transport order. It must
// not block.
type EventHandler func(Event)

// ChatMessage is a message posted to the room, including the caller's own
// messages echoed back by the service.
type ChatMessage struct {
	Nickname  string
	Icon      string
	Body      string
	Timestamp time.Time
	System    bool
	PermID    string
}

// TypingUpdate carries everyone currently typing. It replaces any
// previously delivered set.
type TypingUpdate struct {
	Nicknames []string
}

// Has reports whether nickname is in the set.
func (u TypingUpdate) Has(nickname string) bool {
	for _, n := range u.Nicknames {
		if n == nickname {
			return true
		}
	}
	return false
}

// OtherEvent is an inbound message the manager does not interpret.
type OtherEvent struct {
	Type transport.MessageType
	Data json.RawMessage
}

// StateChange reports a connection state transition.
type StateChange struct {
	From ConnectionState
	To   ConnectionState
	Err  error // Cause of a drop or stop, if any
}

// SessionLost reports that the active room no longer has a live
// membership on the service. Rejoin with JoinRoom to continue.
type SessionLost struct {
	RoomID string
	Err    error
}

// SessionRestored reports a successful automatic rejoin.
type SessionRestored struct {
	RoomID  string
	Backlog []ChatMessage
}

func (ChatMessage) isEvent()     {}
func (TypingUpdate) isEvent()    {}
func (OtherEvent) isEvent()      {}
func (StateChange) isEvent()     {}
func (SessionLost) isEvent()     {}
func (SessionRestored) isEvent() {}

func fromWire(m transport.ChatMessage) ChatMessage {
	return ChatMessage{
		Nickname:  m.UserNickname,
		Icon:      m.UserIcon,
		Body:      m.Body,
		Timestamp: time.UnixMilli(m.Timestamp),
		System:    m.IsSystemMessage,
		PermID:    m.PermID,
	}
}

func fromWireAll(ms []transport.ChatMessage) []ChatMessage {
	if ms == nil {
		return nil
	}
	out := make([]ChatMessage, len(ms))
	for i, m := range ms {
		out[i] = fromWire(m)
	}
	return out
}

// decode turns an inbound transport message into an Event. Known types
// that fail to decode fall through to OtherEvent.
func decode(msg transport.Message) (Event, error) {
	switch msg.Type {
	case transport.TypeSendMessage:
		var m transport.ChatMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return OtherEvent{Type: msg.Type, Data: msg.Data}, err
		}
		return fromWire(m), nil

	case transport.TypeSetTypingPresence:
		var p transport.TypingPresence
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return OtherEvent{Type: msg.Type, Data: msg.Data}, err
		}
		return TypingUpdate{Nicknames: dedupe(p.UsersTyping)}, nil
	}

	return OtherEvent{Type: msg.Type, Data: msg.Data}, nil
}

// dedupe removes repeated nicknames, keeping first-seen order.
func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
