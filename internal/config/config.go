package config

import "time"

// Config is the full runtime configuration of the aramcrm binaries.
type Config struct {
	Server     Server     `koanf:"server"     validate:"required"`
	Store      Store      `koanf:"store"      validate:"required"`
	Redis      Redis      `koanf:"redis"`
	Postgres   Postgres   `koanf:"postgres"`
	Log        Log        `koanf:"log"        validate:"required"`
	Chain      Chain      `koanf:"chain"`
	Encryption Encryption `koanf:"encryption"`
	Redact     Redact     `koanf:"redact"`
	MCP        MCP        `koanf:"mcp"        validate:"required"`
}

// Server configures the HTTP API.
type Server struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Metrics         bool          `koanf:"metrics"`
	Banner          bool          `koanf:"banner"`
}

// Store selects the workflow persistence backend.
type Store struct {
	Driver string `koanf:"driver" validate:"oneof=memory file redis postgres"`
	Path   string `koanf:"path"`
	Format string `koanf:"format" validate:"oneof=json yaml"`
}

// Redis configures the redis store and the distributed lock.
type Redis struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"       validate:"min=0"`
	Prefix   string        `koanf:"prefix"`
	Lock     bool          `koanf:"lock"`
	LockTTL  time.Duration `koanf:"lock_ttl" validate:"gte=0"`
}

// Postgres configures the relational store.
type Postgres struct {
	DSN            string        `koanf:"dsn"`
	MaxConns       int32         `koanf:"max_conns"       validate:"gte=0"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	RetryBackoff   time.Duration `koanf:"retry_backoff"   validate:"gte=0"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Chain tunes the editing rules.
type Chain struct {
	Strict       bool `koanf:"strict"`
	MaxLabelSize int  `koanf:"max_label_size" validate:"gte=0"`
}

// Encryption seals node configs at rest. Keys are base64-encoded 32-byte values.
type Encryption struct {
	Key          string   `koanf:"key"           validate:"omitempty,base64"`
	FallbackKeys []string `koanf:"fallback_keys" validate:"dive,base64"`
}

// Redact masks secrets in node configs on save.
type Redact struct {
	Enabled  bool     `koanf:"enabled"`
	Patterns []string `koanf:"patterns"`
}

// MCP configures the agent-facing server.
type MCP struct {
	Transport string `koanf:"transport" validate:"oneof=stdio sse"`
	Port      int    `koanf:"port"      validate:"min=1,max=65535"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			Metrics:         true,
			Banner:          true,
		},
		Store: Store{
			Driver: "file",
			Path:   ".aramcrm/workflows",
			Format: "json",
		},
		Redis: Redis{
			Addr:    "localhost:6379",
			Prefix:  "aramcrm:workflow:",
			LockTTL: 30 * time.Second,
		},
		Postgres: Postgres{
			MaxConns:       10,
			ConnectRetries: 5,
			RetryBackoff:   500 * time.Millisecond,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Chain: Chain{
			Strict:       true,
			MaxLabelSize: 256,
		},
		MCP: MCP{
			Transport: "stdio",
			Port:      8081,
		},
	}
}
