package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/piyush4299/chat-app/internal/chat"
	"github.com/piyush4299/chat-app/internal/config"
	"github.com/piyush4299/chat-app/internal/fanout"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		create   bool
		roomID   string
		want     request
		wantErr  string
	}{
		{"create", " alice ", true, "", request{nickname: "alice", create: true}, ""},
		{"join", "bob", false, " room-42 ", request{nickname: "bob", roomID: "room-42"}, ""},
		{"blank nickname", "   ", true, "", request{}, "please enter a nickname"},
		{"no action", "bob", false, "  ", request{}, "please enter a room ID with -join, or pass -create"},
		{"both actions", "bob", true, "room-42", request{}, "use either -create or -join, not both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateRequest(tt.nickname, "", tt.create, tt.roomID)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestManagerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Policy = "rejoin"
	cfg.Reconnect.MaxAttempts = -1

	mc, err := managerConfig(cfg)
	if err != nil {
		t.Fatalf("managerConfig failed: %v", err)
	}
	if mc.Session != chat.SessionRejoin {
		t.Errorf("Session = %v, want rejoin", mc.Session)
	}
	if mc.Reconnect.BaseDelay != config.DefaultReconnectBase || mc.Reconnect.MaxDelay != config.DefaultReconnectMax {
		t.Errorf("Reconnect = %+v", mc.Reconnect)
	}
	if mc.Reconnect.Exhausted(1000) {
		t.Error("negative max_attempts should retry forever")
	}

	cfg.Session.Policy = "forget"
	if _, err := managerConfig(cfg); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestClientConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Origin = "https://chat.example.com"

	cc := clientConfig(cfg, nil)
	if cc.URL != config.DefaultServerURL || cc.Origin != "https://chat.example.com" {
		t.Errorf("endpoint = %q / %q", cc.URL, cc.Origin)
	}
	if cc.RequestTimeout != config.DefaultRequestTimeout || cc.PingTimeout != config.DefaultPingTimeout {
		t.Errorf("timeouts = %+v", cc)
	}
	if cc.Credentials != nil {
		t.Error("credentials set without auth config")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "room_id", "room-42")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, `"room_id":"room-42"`) {
		t.Errorf("json output missing attribute: %s", out)
	}
}

func TestPrinter_Messages(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "alice")
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.Local)

	p.Print(chat.ChatMessage{Nickname: "bob", Body: "hi", Timestamp: at})
	p.Print(chat.ChatMessage{Nickname: "alice", Icon: "A", Body: "hello", Timestamp: at})
	p.Print(chat.ChatMessage{System: true, Body: "carol joined", Timestamp: at})

	want := "[09:30:00] bob: hi\n" +
		"[09:30:00] A alice (you): hello\n" +
		"[09:30:00] * carol joined\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestPrinter_TypingIndicator(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "alice")

	steps := []struct {
		typing []string
		shown  bool
	}{
		{[]string{"bob"}, true},
		{[]string{"bob", "carol"}, true},
		{[]string{"bob", "alice"}, false},
		{nil, false},
		{[]string{"carol"}, true},
	}
	for i, s := range steps {
		p.Print(chat.TypingUpdate{Nicknames: s.typing})
		if p.typing != s.shown {
			t.Errorf("step %d: indicator = %v, want %v", i, p.typing, s.shown)
		}
	}

	// Printed once per time it turns on.
	if n := strings.Count(buf.String(), "someone is typing"); n != 2 {
		t.Errorf("indicator printed %d times, want 2", n)
	}
}

func TestPrinter_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "alice")

	if !p.Print(chat.StateChange{From: chat.StateReady, To: chat.StateClosed, Err: errors.New("reset")}) {
		t.Error("Print reported stop on a drop")
	}
	p.Print(chat.SessionRestored{RoomID: "room-42", Backlog: []chat.ChatMessage{
		{Nickname: "bob", Body: "still here", Timestamp: time.Now().Add(-3 * time.Hour)},
	}})
	if p.Print(chat.StateChange{From: chat.StateClosed, To: chat.StateStopped, Err: chat.ErrReconnectExhausted}) {
		t.Error("Print did not report stop")
	}

	out := buf.String()
	for _, want := range []string{"disconnected (reset)", "rejoined room room-42", "1 earlier messages, oldest 3 hours ago", "bob: still here", "stopped: reconnect attempts exhausted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_BacklogSummary(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, "alice")

	p.Backlog(nil)
	if buf.Len() != 0 {
		t.Errorf("empty backlog printed %q", buf.String())
	}

	msgs := make([]chat.ChatMessage, 1200)
	for i := range msgs {
		msgs[i] = chat.ChatMessage{Nickname: "bob", Body: "x", Timestamp: time.Now().Add(-48 * time.Hour)}
	}
	p.Backlog(msgs)

	first, _, _ := strings.Cut(buf.String(), "\n")
	if first != "-- 1,200 earlier messages, oldest 2 days ago" {
		t.Errorf("summary = %q", first)
	}
	if n := strings.Count(buf.String(), "bob: x"); n != 1200 {
		t.Errorf("printed %d messages, want 1200", n)
	}
}

type fakePresence struct {
	calls       []bool
	hadDeadline bool
	ctxErr      error
	err         error
}

func (f *fakePresence) UpdateTypingPresence(ctx context.Context, typing bool) error {
	f.calls = append(f.calls, typing)
	_, f.hadDeadline = ctx.Deadline()
	f.ctxErr = ctx.Err()
	return f.err
}

func TestClearTyping(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sends typing false with a live bounded context", func(t *testing.T) {
		p := &fakePresence{}
		clearTyping(p, time.Second, logger)

		if len(p.calls) != 1 || p.calls[0] {
			t.Fatalf("calls = %v, want [false]", p.calls)
		}
		if !p.hadDeadline {
			t.Error("context had no deadline")
		}
		if p.ctxErr != nil {
			t.Errorf("context already done: %v", p.ctxErr)
		}
	})

	t.Run("stopped manager is logged only", func(t *testing.T) {
		var logs bytes.Buffer
		p := &fakePresence{err: chat.ErrStopped}
		clearTyping(p, time.Second, newLogger(config.LogConfig{Level: "debug"}, &logs))

		if !strings.Contains(logs.String(), "typing presence not cleared") {
			t.Errorf("log output = %q, want a debug entry", logs.String())
		}
	})
}

func TestCloseSubscription(t *testing.T) {
	hub := fanout.NewHub[chat.Event](4)
	sub := hub.Subscribe()
	hub.Publish(chat.StateChange{From: chat.StateConnecting, To: chat.StateReady})

	var logs bytes.Buffer
	closeSubscription(sub, newLogger(config.LogConfig{Level: "debug"}, &logs))

	out := logs.String()
	for _, want := range []string{"event subscription closed", "published=1", "dropped="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
	if hub.Len() != 0 {
		t.Errorf("hub still has %d subscribers", hub.Len())
	}
}
