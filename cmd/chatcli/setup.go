package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/piyush4299/chat-app/internal/auth"
	"github.com/piyush4299/chat-app/internal/chat"
	"github.com/piyush4299/chat-app/internal/config"
	"github.com/piyush4299/chat-app/internal/transport"
)

// request is what the user asked to do, after validation.
type request struct {
	nickname string
	icon     string
	create   bool
	roomID   string
}

func validateRequest(nickname, icon string, create bool, roomID string) (request, error) {
	nickname = strings.TrimSpace(nickname)
	roomID = strings.TrimSpace(roomID)

	if nickname == "" {
		return request{}, errors.New("please enter a nickname")
	}
	switch {
	case create && roomID != "":
		return request{}, errors.New("use either -create or -join, not both")
	case !create && roomID == "":
		return request{}, errors.New("please enter a room ID with -join, or pass -create")
	}
	return request{nickname: nickname, icon: icon, create: create, roomID: roomID}, nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func managerConfig(cfg *config.ClientConfig) (chat.Config, error) {
	policy, err := chat.ParseSessionPolicy(cfg.Session.Policy)
	if err != nil {
		return chat.Config{}, err
	}

	mc := chat.DefaultConfig()
	mc.Session = policy
	mc.Reconnect = chat.ReconnectPolicy{
		BaseDelay:   cfg.Reconnect.BaseDelay,
		MaxDelay:    cfg.Reconnect.MaxDelay,
		Multiplier:  cfg.Reconnect.Multiplier,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	}
	return mc, nil
}

func clientConfig(cfg *config.ClientConfig, creds *auth.Credentials) transport.ClientConfig {
	return transport.ClientConfig{
		URL:              cfg.Server.URL,
		Origin:           cfg.Server.Origin,
		Credentials:      creds,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		RequestTimeout:   cfg.Server.RequestTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		PingInterval:     cfg.Server.PingInterval,
		PingTimeout:      cfg.Server.PingTimeout,
	}
}
