package chat

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ConnectionState is the manager's view of the transport.
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateReady
	StateClosed
	// StateStopped is terminal: Close was called or reconnecting gave up.
	StateStopped
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionPolicy decides what happens to the active room when the
// connection drops.
type SessionPolicy int

const (
	// SessionNotify emits SessionLost and clears the room on disconnect.
	SessionNotify SessionPolicy = iota
	// SessionRejoin re-issues the join on the new connection before it is
	// reported ready.
	SessionRejoin
	// SessionPreserve keeps the room id without telling the service.
	SessionPreserve
)

func (p SessionPolicy) String() string {
	switch p {
	case SessionNotify:
		return "notify"
	case SessionRejoin:
		return "rejoin"
	case SessionPreserve:
		return "preserve"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseSessionPolicy parses "notify", "rejoin" or "preserve".
func ParseSessionPolicy(s string) (SessionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "notify":
		return SessionNotify, nil
	case "rejoin":
		return SessionRejoin, nil
	case "preserve":
		return SessionPreserve, nil
	default:
		return 0, fmt.Errorf("unknown session policy %q", s)
	}
}

// ReconnectPolicy controls the delay between reconnect attempts.
type ReconnectPolicy struct {
	BaseDelay   time.Duration // Delay before the first attempt
	MaxDelay    time.Duration // Cap on any single delay (0 = no cap)
	Multiplier  float64       // Growth per attempt; 1 gives a fixed delay
	MaxAttempts int           // Consecutive failures before giving up (<= 0 = never)
}

// Delay returns the wait before the given 1-based attempt.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		next := float64(d) * mult
		if next >= math.MaxInt64 {
			// Saturate instead of wrapping negative.
			break
		}
		d = time.Duration(next)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether attempt exceeds the attempt budget.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}

// Config configures a Manager.
type Config struct {
	Reconnect ReconnectPolicy
	Session   SessionPolicy

	// SubscriberBufferSize is the initial queue capacity of each Subscribe.
	SubscriberBufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Reconnect: ReconnectPolicy{
			BaseDelay:   3 * time.Second,
			MaxDelay:    60 * time.Second,
			Multiplier:  2,
			MaxAttempts: 10,
		},
		Session:              SessionNotify,
		SubscriberBufferSize: 64,
	}
}
