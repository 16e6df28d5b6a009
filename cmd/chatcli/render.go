package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/piyush4299/chat-app/internal/chat"
)

// printer writes chat events to a terminal.
type printer struct {
	w      io.Writer
	self   string
	typing bool // indicator currently shown
}

func newPrinter(w io.Writer, self string) *printer {
	return &printer{w: w, self: self}
}

// Print renders one event. It reports false once the manager has stopped.
func (p *printer) Print(ev chat.Event) bool {
	switch e := ev.(type) {
	case chat.ChatMessage:
		p.message(e)

	case chat.TypingUpdate:
		// Hidden while the user is typing themselves.
		show := len(e.Nicknames) > 0 && !e.Has(p.self)
		if show && !p.typing {
			fmt.Fprintln(p.w, "  someone is typing...")
		}
		p.typing = show

	case chat.SessionLost:
		fmt.Fprintf(p.w, "!! left room %s: %v\n", e.RoomID, e.Err)

	case chat.SessionRestored:
		fmt.Fprintf(p.w, "-- rejoined room %s\n", e.RoomID)
		p.Backlog(e.Backlog)

	case chat.StateChange:
		switch e.To {
		case chat.StateClosed:
			fmt.Fprintf(p.w, "-- disconnected (%v), reconnecting\n", e.Err)
		case chat.StateReady:
			fmt.Fprintln(p.w, "-- connected")
		case chat.StateStopped:
			fmt.Fprintf(p.w, "-- stopped: %v\n", e.Err)
			return false
		}
	}
	return true
}

// Backlog prints messages returned by a join, oldest first.
func (p *printer) Backlog(msgs []chat.ChatMessage) {
	if len(msgs) == 0 {
		return
	}
	fmt.Fprintf(p.w, "-- %s earlier messages, oldest %s\n",
		humanize.Comma(int64(len(msgs))), humanize.Time(msgs[0].Timestamp))
	for _, m := range msgs {
		p.message(m)
	}
}

func (p *printer) message(m chat.ChatMessage) {
	if m.System {
		fmt.Fprintf(p.w, "[%s] * %s\n", m.Timestamp.Format("15:04:05"), m.Body)
		return
	}

	who := m.Nickname
	if who == p.self {
		who += " (you)"
	}
	if m.Icon != "" {
		who = m.Icon + " " + who
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), who, m.Body)
}
