package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/piyush4299/chat-app/internal/config"
	"github.com/piyush4299/chat-app/internal/database"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("preference not found")

// Store is a read-only key/value lookup.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// MapStore is an in-memory Store.
type MapStore map[string]string

// Get returns the value for key.
func (m MapStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Nickname returns the trimmed value stored under key, or fallback when the
// key is missing or blank. Store failures other than ErrNotFound are
// returned along with fallback.
func Nickname(ctx context.Context, s Store, key, fallback string) (string, error) {
	if s == nil {
		return fallback, nil
	}
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("read %q: %w", key, err)
	}
	if v = strings.TrimSpace(v); v == "" {
		return fallback, nil
	}
	return v, nil
}

// Open builds the Store selected by cfg.Driver. The returned close function
// releases any backing resources and is never nil.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, func(), error) {
	switch cfg.Driver {
	case "", "none":
		return MapStore{}, func() {}, nil

	case "file":
		return NewFileStore(cfg.Path), func() {}, nil

	case "postgres":
		pool, err := database.Connect(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return NewPostgresStore(pool, cfg.Database.Table), pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
