package config

import "time"

// ClientConfig is the root configuration for a chat client.
type ClientConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Session   SessionConfig   `yaml:"session"`
	Profile   ProfileConfig   `yaml:"profile"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the chat service endpoint and transport timeouts.
type ServerConfig struct {
	URL              string        `yaml:"url"`
	Origin           string        `yaml:"origin"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
}

// AuthConfig enables signed handshakes when KeyID is set.
type AuthConfig struct {
	KeyID          string `yaml:"key_id"`           // Sent as X-Chat-Access-Key
	PrivateKeyPath string `yaml:"private_key_path"` // Path to RSA private key PEM file
}

// Enabled reports whether handshakes should be signed.
func (a AuthConfig) Enabled() bool {
	return a.KeyID != ""
}

// ReconnectConfig holds the backoff used after the connection drops.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 takes the default, negative retries forever
}

// SessionConfig selects what happens to the active room on disconnect.
type SessionConfig struct {
	Policy string `yaml:"policy"` // notify, rejoin or preserve
}

// ProfileConfig holds the user's identity in rooms.
type ProfileConfig struct {
	NicknameKey     string `yaml:"nickname_key"`
	DefaultNickname string `yaml:"default_nickname"`
	Icon            string `yaml:"icon"`
}

// StoreConfig selects the preferences backend.
type StoreConfig struct {
	Driver   string   `yaml:"driver"` // none, file or postgres
	Path     string   `yaml:"path"`   // YAML file for the file driver
	Database DBConfig `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Table    string `yaml:"table"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}
