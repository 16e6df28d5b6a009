package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url must use ws or wss, got %q", c.Server.URL)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be > 0")
	}
	if c.Server.PingInterval > 0 && c.Server.PingTimeout < c.Server.PingInterval {
		return fmt.Errorf("server.ping_timeout (%v) cannot be shorter than ping_interval (%v)",
			c.Server.PingTimeout, c.Server.PingInterval)
	}

	if c.Auth.Enabled() && c.Auth.PrivateKeyPath == "" {
		return errors.New("auth.private_key_path is required when auth.key_id is set")
	}

	if c.Reconnect.BaseDelay < 0 {
		return errors.New("reconnect.base_delay must be >= 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect.max_delay (%v) cannot be shorter than base_delay (%v)",
			c.Reconnect.MaxDelay, c.Reconnect.BaseDelay)
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be >= 1, got %v", c.Reconnect.Multiplier)
	}

	switch strings.ToLower(c.Session.Policy) {
	case "notify", "rejoin", "preserve":
	default:
		return fmt.Errorf("session.policy must be notify, rejoin or preserve, got %q", c.Session.Policy)
	}

	switch c.Store.Driver {
	case "none":
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file driver")
		}
	case "postgres":
		if err := c.Store.Database.validate("store.database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("store.driver must be none, file or postgres, got %q", c.Store.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
