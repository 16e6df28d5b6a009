package chat

import (
	"testing"
	"time"
)

func TestReconnectPolicy_Delay(t *testing.T) {
	p := DefaultConfig().Reconnect

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 3 * time.Second},
		{2, 6 * time.Second},
		{3, 12 * time.Second},
		{5, 48 * time.Second},
		{6, 60 * time.Second},
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestReconnectPolicy_UncappedDelaySaturates(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: 3 * time.Second, Multiplier: 2}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 100; attempt++ {
		d := p.Delay(attempt)
		if d <= 0 {
			t.Fatalf("Delay(%d) = %v, want positive", attempt, d)
		}
		if d < prev {
			t.Fatalf("Delay(%d) = %v, shorter than Delay(%d) = %v", attempt, d, attempt-1, prev)
		}
		prev = d
	}
}

func TestReconnectPolicy_FixedDelay(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: time.Second, Multiplier: 1}
	for attempt := 1; attempt <= 5; attempt++ {
		if got := p.Delay(attempt); got != time.Second {
			t.Errorf("Delay(%d) = %v, want 1s", attempt, got)
		}
	}

	// Multipliers below one are treated as one.
	p.Multiplier = 0.5
	if got := p.Delay(4); got != time.Second {
		t.Errorf("Delay(4) with shrinking multiplier = %v, want 1s", got)
	}
}

func TestReconnectPolicy_Exhausted(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		attempt     int
		want        bool
	}{
		{"within budget", 3, 3, false},
		{"over budget", 3, 4, true},
		{"unlimited zero", 0, 1000, false},
		{"unlimited negative", -1, 1000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ReconnectPolicy{MaxAttempts: tt.maxAttempts}
			if got := p.Exhausted(tt.attempt); got != tt.want {
				t.Errorf("Exhausted(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestParseSessionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    SessionPolicy
		wantErr bool
	}{
		{"", SessionNotify, false},
		{"notify", SessionNotify, false},
		{" Rejoin ", SessionRejoin, false},
		{"PRESERVE", SessionPreserve, false},
		{"retry", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSessionPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := map[ConnectionState]string{
		StateConnecting:     "connecting",
		StateReady:          "ready",
		StateClosed:         "closed",
		StateStopped:        "stopped",
		ConnectionState(42): "state(42)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
