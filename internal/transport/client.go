package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// client implements Transport over a gorilla WebSocket.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn     *websocket.Conn
	handlers Handlers

	done      chan struct{}
	closeOnce sync.Once

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastPongAt time.Time

	// Request/reply correlation
	pendingMu sync.Mutex
	pending   map[string]chan Frame
}

// NewClient creates an unconnected WebSocket transport.
func NewClient(cfg ClientConfig, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}

	return &client{
		cfg:     cfg,
		logger:  logger.With("component", "transport"),
		done:    make(chan struct{}),
		pending: make(map[string]chan Frame),
	}
}

// Connect dials the service, starts the read and heartbeat loops and then
// reports readiness through h.OnReady.
func (c *client) Connect(ctx context.Context, h Handlers) error {
	c.mu.RLock()
	closed, connected := c.closed, c.connected
	c.mu.RUnlock()
	if closed {
		return ErrAlreadyClosed
	}
	if connected {
		return errors.New("already connected")
	}

	header, err := c.handshakeHeader()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.handlers = h
	c.connected = true
	c.lastPongAt = time.Now()
	c.mu.Unlock()

	// Any control frame from the server counts as liveness.
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		c.touch()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go c.readLoop()
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	if h.OnReady != nil {
		h.OnReady()
	}
	return nil
}

// CreateRoom sends createSession and waits for the assigned room id.
func (c *client) CreateRoom(ctx context.Context, nickname, icon string) (string, error) {
	f, err := c.request(ctx, TypeCreateSession, SessionParams{Nickname: nickname, Icon: icon})
	if err != nil {
		return "", err
	}

	var res CreateSessionResult
	if err := json.Unmarshal(f.Data, &res); err != nil {
		return "", fmt.Errorf("decode createSession reply: %w", err)
	}
	if res.SessionID == "" {
		return "", errors.New("createSession reply missing sessionId")
	}
	return res.SessionID, nil
}

// JoinRoom sends joinSession and returns the room backlog.
func (c *client) JoinRoom(ctx context.Context, nickname, roomID, icon string) ([]ChatMessage, error) {
	f, err := c.request(ctx, TypeJoinSession, SessionParams{SessionID: roomID, Nickname: nickname, Icon: icon})
	if err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		return nil, nil
	}

	var res JoinSessionResult
	if err := json.Unmarshal(f.Data, &res); err != nil {
		return nil, fmt.Errorf("decode joinSession reply: %w", err)
	}
	return res.Messages, nil
}

// Send writes a message that expects no reply.
func (c *client) Send(ctx context.Context, typ MessageType, payload any) error {
	return c.write(ctx, Request{Action: typ, Data: payload})
}

// Close sends a normal closure and shuts the connection down. OnClose is
// not called for an explicit Close.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if !c.finish() || conn == nil {
		return nil
	}

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

func (c *client) handshakeHeader() (http.Header, error) {
	header := http.Header{}
	if c.cfg.Origin != "" {
		header.Set("Origin", c.cfg.Origin)
	}
	if c.cfg.Credentials == nil {
		return header, nil
	}

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	signed, err := c.cfg.Credentials.SignHandshake(path)
	if err != nil {
		return nil, err
	}
	for k, v := range signed {
		header[k] = v
	}
	return header, nil
}

// request writes a correlated request and waits for its reply.
func (c *client) request(ctx context.Context, typ MessageType, params any) (Frame, error) {
	id := uuid.NewString()
	replyCh := make(chan Frame, 1)

	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(ctx, Request{Action: typ, CallbackID: id, Data: params}); err != nil {
		return Frame{}, err
	}

	var timeout <-chan time.Time
	if c.cfg.RequestTimeout > 0 {
		timer := time.NewTimer(c.cfg.RequestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timeout:
		return Frame{}, ErrTimeout
	case <-c.done:
		return Frame{}, ErrNotConnected
	case f := <-replyCh:
		if f.Error != nil {
			return f, &RemoteError{Type: typ, Code: f.Error.Code, Message: f.Error.Message}
		}
		c.logger.Debug("request completed", "type", typ, "callback_id", id)
		return f, nil
	}
}

// routeReply hands a reply to its waiting request. Reports false when no
// request is waiting for the callback id.
func (c *client) routeReply(f Frame) bool {
	c.pendingMu.Lock()
	ch, ok := c.pending[f.CallbackID]
	if ok {
		delete(c.pending, f.CallbackID)
	}
	c.pendingMu.Unlock()

	if ok {
		select {
		case ch <- f:
		default:
		}
	}
	return ok
}

func (c *client) write(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.RLock()
	connected, conn := c.connected, c.conn
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if c.cfg.WriteTimeout > 0 {
		deadline = time.Now().Add(c.cfg.WriteTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop decodes frames, routes replies and forwards everything else.
func (c *client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			c.fail(err)
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("dropping undecodable frame", "error", err, "bytes", len(data))
			continue
		}

		if f.CallbackID != "" && c.routeReply(f) {
			continue
		}

		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(Message{Type: f.Type, Data: f.Data, ReceivedAt: receivedAt})
		}
	}
}

// heartbeatLoop pings the server and fails the connection when pongs stop.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(time.Second)
			if c.cfg.WriteTimeout > 0 {
				deadline = time.Now().Add(c.cfg.WriteTimeout)
			}
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			last := c.lastPongAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(last) > c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", last,
					"timeout", c.cfg.PingTimeout,
				)
				c.fail(ErrStaleConnection)
				return
			}
		}
	}
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

// finish marks the connection down exactly once. Reports whether this
// call was the one that did it.
func (c *client) finish() bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		close(c.done)
	})
	return first
}

// fail tears down after an unexpected error and notifies OnClose once.
func (c *client) fail(err error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed || !c.finish() {
		return
	}

	c.conn.Close()
	c.logger.Warn("connection lost", "error", err)
	if c.handlers.OnClose != nil {
		c.handlers.OnClose(err)
	}
}
