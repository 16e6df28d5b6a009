package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/piyush4299/chat-app/internal/fanout"
	"github.com/piyush4299/chat-app/internal/transport"
)

// Manager owns one transport connection to the chat service at a time,
// gates operations on readiness and reconnects when the connection drops.
type Manager struct {
	cfg     Config
	factory transport.Factory
	onEvent EventHandler
	logger  *slog.Logger
	hub     *fanout.Hub[Event]

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Serializes handler and subscriber delivery.
	deliverMu sync.Mutex

	mu        sync.Mutex
	state     ConnectionState
	ready     chan struct{} // closed once the current segment reaches Ready
	stopped   chan struct{}
	stopErr   error
	transport transport.Transport
	gen       uint64 // bumped per transport; callbacks from older ones are dropped
	attempt   int    // consecutive connection failures
	session   session
	rejoin    bool // dropped session waiting to be rejoined
	typing    []string
}

type session struct {
	roomID   string
	nickname string
	icon     string
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithSubscription subscribes before the first connection attempt and
// stores the subscription in *sub, so it sees every state change.
func WithSubscription(sub **fanout.Subscription[Event]) Option {
	return func(m *Manager) {
		*sub = m.hub.Subscribe()
	}
}

// NewManager creates a manager and starts connecting immediately.
// Operations called before the connection is ready wait for it.
func NewManager(cfg Config, factory transport.Factory, onEvent EventHandler, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:     cfg,
		factory: factory,
		onEvent: onEvent,
		logger:  logger.With("component", "chat"),
		hub:     fanout.NewHub[Event](cfg.SubscriberBufferSize),
		ctx:     ctx,
		cancel:  cancel,
		state:   StateConnecting,
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.open()
	}()

	return m
}

// AwaitReady blocks until the connection is ready, the manager stops, or
// ctx is done.
func (m *Manager) AwaitReady(ctx context.Context) error {
	_, err := m.awaitTransport(ctx)
	return err
}

// CreateRoom creates a room and makes it the active session. Failures are
// returned wrapped in ErrRoomCreation and never retried.
func (m *Manager) CreateRoom(ctx context.Context, nickname, icon string) (string, error) {
	t, err := m.awaitTransport(ctx)
	if err != nil {
		return "", err
	}

	roomID, err := t.CreateRoom(ctx, nickname, icon)
	if err != nil {
		m.logger.Error("failed to create room", "nickname", nickname, "error", err)
		return "", fmt.Errorf("%w: %w", ErrRoomCreation, err)
	}

	m.mu.Lock()
	m.session = session{roomID: roomID, nickname: nickname, icon: icon}
	m.typing = nil
	m.mu.Unlock()

	m.logger.Info("room created", "room_id", roomID)
	return roomID, nil
}

// JoinRoom makes roomID the active session and joins it, returning the
// room's backlog. The session is recorded before the service confirms and
// is kept even if the join fails.
func (m *Manager) JoinRoom(ctx context.Context, nickname, roomID, icon string) ([]ChatMessage, error) {
	t, err := m.awaitTransport(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.session = session{roomID: roomID, nickname: nickname, icon: icon}
	m.typing = nil
	m.mu.Unlock()

	backlog, err := t.JoinRoom(ctx, nickname, roomID, icon)
	if err != nil {
		m.logger.Error("failed to join room", "room_id", roomID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRoomJoin, err)
	}

	m.logger.Info("joined room", "room_id", roomID, "backlog", len(backlog))
	return fromWireAll(backlog), nil
}

// SendMessage posts body to the active room. The message is not echoed
// locally; it arrives back as a ChatMessage event. Without an active room
// it logs and does nothing.
func (m *Manager) SendMessage(ctx context.Context, body string) error {
	t, err := m.awaitTransport(ctx)
	if err != nil {
		return err
	}

	roomID := m.RoomID()
	if roomID == "" {
		m.logger.Warn("cannot send message", "error", ErrNoSession)
		return nil
	}

	if err := t.Send(ctx, transport.TypeSendMessage, transport.SendMessageParams{Body: body}); err != nil {
		m.logger.Error("failed to send message", "room_id", roomID, "error", err)
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return nil
}

// UpdateTypingPresence reports whether the user is typing. Delivery is
// best effort: transport failures are logged and dropped. The returned
// error is non-nil only if waiting for readiness was cut short.
func (m *Manager) UpdateTypingPresence(ctx context.Context, typing bool) error {
	t, err := m.awaitTransport(ctx)
	if err != nil {
		return err
	}

	if m.RoomID() == "" {
		m.logger.Debug("skipping typing presence", "error", ErrNoSession)
		return nil
	}

	if err := t.Send(ctx, transport.TypeSetTypingPresence, transport.TypingParams{Typing: typing}); err != nil {
		m.logger.Warn("typing presence not delivered",
			"typing", typing,
			"error", fmt.Errorf("%w: %w", ErrPresenceUpdate, err),
		)
	}
	return nil
}

// Subscribe registers an additional event consumer. Events are queued per
// subscriber, so a slow reader never delays the primary handler. Events
// emitted before the call are not replayed; use WithSubscription to see
// them all.
func (m *Manager) Subscribe() *fanout.Subscription[Event] {
	return m.hub.Subscribe()
}

// State returns the current connection state.
func (m *Manager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsReady reports whether operations would proceed without waiting.
func (m *Manager) IsReady() bool {
	return m.State() == StateReady
}

// RoomID returns the active room, or "" when there is none.
func (m *Manager) RoomID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.roomID
}

// TypingUsers returns the most recent typing set.
func (m *Manager) TypingUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.typing...)
}

// Close stops reconnecting, closes the transport and releases any waiting
// operations with ErrStopped. It must not be called from an EventHandler.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		var change Event
		if m.state != StateStopped {
			change = m.stopLocked(ErrManagerClosed)
		}
		t := m.transport
		m.mu.Unlock()

		m.cancel()
		if t != nil {
			err = t.Close()
		}
		m.wg.Wait()

		m.emit(change)
		m.hub.Close()
		m.logger.Info("connection manager closed")
	})
	return err
}

func (m *Manager) awaitTransport(ctx context.Context) (transport.Transport, error) {
	for {
		m.mu.Lock()
		switch m.state {
		case StateReady:
			t := m.transport
			m.mu.Unlock()
			return t, nil
		case StateStopped:
			err := m.stopErr
			m.mu.Unlock()
			return nil, fmt.Errorf("%w: %w", ErrStopped, err)
		}
		ready := m.ready
		m.mu.Unlock()

		select {
		case <-ready:
		case <-m.stopped:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// open replaces the current transport with a fresh one and connects it.
func (m *Manager) open() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	prev := m.transport
	m.gen++
	gen := m.gen
	t := m.factory()
	m.transport = t
	change := m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	m.emit(change)

	m.logger.Debug("connecting", "generation", gen)
	err := t.Connect(m.ctx, transport.Handlers{
		OnReady:   func() { m.handleReady(gen) },
		OnClose:   func(err error) { m.handleClose(gen, err) },
		OnMessage: func(msg transport.Message) { m.handleMessage(gen, msg) },
	})
	if err != nil {
		m.logger.Warn("connect failed", "generation", gen, "error", err)
		m.handleClose(gen, err)
	}
}

func (m *Manager) handleReady(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.attempt = 0

	if m.rejoin && m.session.roomID != "" {
		m.rejoin = false
		sess, t := m.session, m.transport
		m.wg.Add(1)
		m.mu.Unlock()

		go m.restore(gen, t, sess)
		return
	}

	m.rejoin = false
	change := m.markReadyLocked()
	m.mu.Unlock()

	m.logger.Info("connection ready")
	m.emit(change)
}

// restore rejoins a dropped session on a new connection, then reports
// the connection ready.
func (m *Manager) restore(gen uint64, t transport.Transport, sess session) {
	defer m.wg.Done()

	m.logger.Info("rejoining room", "room_id", sess.roomID)
	backlog, err := t.JoinRoom(m.ctx, sess.nickname, sess.roomID, sess.icon)

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		// Superseded; a later connection will retry the rejoin.
		m.mu.Unlock()
		return
	}

	var ev Event
	if err != nil {
		m.session = session{}
		ev = SessionLost{RoomID: sess.roomID, Err: fmt.Errorf("%w: %w", ErrRoomJoin, err)}
	} else {
		ev = SessionRestored{RoomID: sess.roomID, Backlog: fromWireAll(backlog)}
	}
	change := m.markReadyLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("rejoin failed", "room_id", sess.roomID, "error", err)
	} else {
		m.logger.Info("room rejoined", "room_id", sess.roomID, "backlog", len(backlog))
	}
	m.emit(ev, change)
}

func (m *Manager) handleClose(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.state == StateClosed || m.state == StateStopped {
		m.mu.Unlock()
		return
	}

	if m.state == StateReady {
		m.ready = make(chan struct{})
	}
	events := []Event{m.setStateLocked(StateClosed, cause)}
	events = append(events, m.dropSessionLocked(cause)...)
	m.typing = nil

	m.attempt++
	attempt := m.attempt
	if m.cfg.Reconnect.Exhausted(attempt) {
		stopErr := fmt.Errorf("%w after %d attempts: %w", ErrReconnectExhausted, attempt-1, cause)
		events = append(events, m.stopLocked(stopErr))
		m.mu.Unlock()

		m.logger.Error("giving up on reconnect", "attempts", attempt-1, "error", cause)
		m.emit(events...)
		return
	}

	delay := m.cfg.Reconnect.Delay(attempt)
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Warn("connection closed, scheduling reconnect",
		"error", cause,
		"attempt", attempt,
		"delay", delay,
	)
	m.emit(events...)

	go m.reconnectAfter(delay)
}

func (m *Manager) reconnectAfter(delay time.Duration) {
	defer m.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-m.ctx.Done():
		return
	case <-timer.C:
	}

	m.logger.Info("attempting reconnection")
	m.open()
}

func (m *Manager) handleMessage(gen uint64, msg transport.Message) {
	m.mu.Lock()
	drop := gen != m.gen || m.state == StateStopped
	m.mu.Unlock()
	if drop {
		return
	}

	ev, err := decode(msg)
	if err != nil {
		m.logger.Warn("undecodable payload, forwarding as other", "type", msg.Type, "error", err)
	}
	m.logger.Debug("received message", "type", msg.Type)

	if u, ok := ev.(TypingUpdate); ok {
		m.mu.Lock()
		m.typing = u.Nicknames
		m.mu.Unlock()
	}

	m.emit(ev)
}

// dropSessionLocked applies the session policy to a dropped connection.
func (m *Manager) dropSessionLocked(cause error) []Event {
	if m.session.roomID == "" {
		return nil
	}

	switch m.cfg.Session {
	case SessionRejoin:
		m.rejoin = true
		return nil
	case SessionPreserve:
		m.logger.Warn("connection dropped, room kept without rejoin", "room_id", m.session.roomID)
		return nil
	default:
		lost := SessionLost{RoomID: m.session.roomID, Err: cause}
		m.session = session{}
		return []Event{lost}
	}
}

func (m *Manager) markReadyLocked() Event {
	change := m.setStateLocked(StateReady, nil)
	close(m.ready)
	return change
}

func (m *Manager) stopLocked(cause error) Event {
	change := m.setStateLocked(StateStopped, cause)
	m.stopErr = cause
	close(m.stopped)
	return change
}

// setStateLocked returns the resulting StateChange, or nil if unchanged.
func (m *Manager) setStateLocked(to ConnectionState, err error) Event {
	if m.state == to {
		return nil
	}
	ev := StateChange{From: m.state, To: to, Err: err}
	m.state = to
	return ev
}

func (m *Manager) emit(events ...Event) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if m.onEvent != nil {
			m.onEvent(ev)
		}
		m.hub.Publish(ev)
	}
}
