package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  url: wss://chat.example.com/ws
  origin: https://chat.example.com
  request_timeout: 5s
reconnect:
  base_delay: 500ms
  max_attempts: -1
session:
  policy: rejoin
profile:
  default_nickname: guest
store:
  driver: file
  path: /tmp/prefs.yaml
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.URL != "wss://chat.example.com/ws" {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, "wss://chat.example.com/ws")
	}
	if cfg.Server.Origin != "https://chat.example.com" {
		t.Errorf("Server.Origin = %q", cfg.Server.Origin)
	}
	if cfg.Server.RequestTimeout != 5*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
	}
	if cfg.Reconnect.BaseDelay != 500*time.Millisecond {
		t.Errorf("Reconnect.BaseDelay = %v, want 500ms", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxAttempts != -1 {
		t.Errorf("Reconnect.MaxAttempts = %d, want -1", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Session.Policy != "rejoin" {
		t.Errorf("Session.Policy = %q, want rejoin", cfg.Session.Policy)
	}
	if cfg.Store.Driver != "file" || cfg.Store.Path != "/tmp/prefs.yaml" {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")
	t.Setenv("TEST_CHAT_KEY", "key-abc")

	yaml := `
auth:
  key_id: ${TEST_CHAT_KEY}
  private_key_path: /keys/chat.pem
store:
  driver: postgres
  database:
    host: localhost
    name: prefs
    user: chat
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.Database.Password != "secret123" {
		t.Errorf("Store.Database.Password = %q, want %q", cfg.Store.Database.Password, "secret123")
	}
	if cfg.Auth.KeyID != "key-abc" || !cfg.Auth.Enabled() {
		t.Errorf("Auth = %+v, want key-abc enabled", cfg.Auth)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
store:
  driver: postgres
  database:
    host: localhost
    name: prefs
    user: chat
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.URL != DefaultServerURL {
		t.Errorf("Server.URL = %q, want default %q", cfg.Server.URL, DefaultServerURL)
	}
	if cfg.Server.HandshakeTimeout != DefaultHandshakeTimeout {
		t.Errorf("Server.HandshakeTimeout = %v, want default %v", cfg.Server.HandshakeTimeout, DefaultHandshakeTimeout)
	}
	if cfg.Reconnect.BaseDelay != DefaultReconnectBase {
		t.Errorf("Reconnect.BaseDelay = %v, want default %v", cfg.Reconnect.BaseDelay, DefaultReconnectBase)
	}
	if cfg.Reconnect.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want default %d", cfg.Reconnect.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Session.Policy != DefaultSessionPolicy {
		t.Errorf("Session.Policy = %q, want default %q", cfg.Session.Policy, DefaultSessionPolicy)
	}
	if cfg.Profile.DefaultNickname != "User" {
		t.Errorf("Profile.DefaultNickname = %q, want User", cfg.Profile.DefaultNickname)
	}
	if cfg.Store.Database.Port != DefaultDBPort {
		t.Errorf("Store.Database.Port = %d, want default %d", cfg.Store.Database.Port, DefaultDBPort)
	}
	if cfg.Store.Database.Table != DefaultPrefsTable {
		t.Errorf("Store.Database.Table = %q, want default %q", cfg.Store.Database.Table, DefaultPrefsTable)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestLoadAndValidate(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		cfg, err := LoadAndValidate("")
		if err != nil {
			t.Fatalf("LoadAndValidate failed: %v", err)
		}
		if cfg.Store.Driver != "none" {
			t.Errorf("Store.Driver = %q, want none", cfg.Store.Driver)
		}
	})

	t.Run("invalid file is rejected", func(t *testing.T) {
		path := writeTempFile(t, "session:\n  policy: forget\n")
		_, err := LoadAndValidate(path)
		if err == nil || !strings.Contains(err.Error(), "session.policy") {
			t.Errorf("LoadAndValidate error = %v, want session.policy error", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAndValidate(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *ClientConfig { return Default() }

	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{
			name:    "defaults",
			mutate:  func(c *ClientConfig) {},
			wantErr: "",
		},
		{
			name:    "http url",
			mutate:  func(c *ClientConfig) { c.Server.URL = "http://chat.example.com" },
			wantErr: `server.url must use ws or wss, got "http://chat.example.com"`,
		},
		{
			name:    "auth without key file",
			mutate:  func(c *ClientConfig) { c.Auth.KeyID = "key-1" },
			wantErr: "auth.private_key_path is required when auth.key_id is set",
		},
		{
			name:    "ping timeout shorter than interval",
			mutate:  func(c *ClientConfig) { c.Server.PingTimeout = time.Second },
			wantErr: "server.ping_timeout (1s) cannot be shorter than ping_interval (30s)",
		},
		{
			name:    "shrinking multiplier",
			mutate:  func(c *ClientConfig) { c.Reconnect.Multiplier = 0.5 },
			wantErr: "reconnect.multiplier must be >= 1, got 0.5",
		},
		{
			name:    "max delay below base",
			mutate:  func(c *ClientConfig) { c.Reconnect.MaxDelay = time.Second },
			wantErr: "reconnect.max_delay (1s) cannot be shorter than base_delay (3s)",
		},
		{
			name:    "file store without path",
			mutate:  func(c *ClientConfig) { c.Store.Driver = "file" },
			wantErr: "store.path is required for the file driver",
		},
		{
			name: "postgres store missing host",
			mutate: func(c *ClientConfig) {
				c.Store.Driver = "postgres"
				c.Store.Database = DBConfig{Name: "prefs", User: "chat", MaxConns: 4}
			},
			wantErr: "store.database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *ClientConfig) {
				c.Store.Driver = "postgres"
				c.Store.Database = DBConfig{Host: "localhost", Name: "prefs", User: "chat", MaxConns: 2, MinConns: 5}
			},
			wantErr: "store.database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *ClientConfig) { c.Store.Driver = "redis" },
			wantErr: `store.driver must be none, file or postgres, got "redis"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *ClientConfig) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
