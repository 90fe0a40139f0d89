package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"golang.org/x/time/rate"
)

// defaultOrigins is used when ALLOWED_ORIGINS is unset
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Config holds all application configuration
type Config struct {
	// Server
	Port            string        `env:"PORT,default=8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`

	// Security
	Origins        string `env:"ALLOWED_ORIGINS"`
	AllowedOrigins []string

	// Rate Limiting
	APIRate  float64 `env:"RATE_LIMIT_API,default=10"`
	APIBurst int     `env:"RATE_LIMIT_API_BURST,default=20"`
	WSRate   float64 `env:"RATE_LIMIT_WS,default=5"`
	WSBurst  int     `env:"RATE_LIMIT_WS_BURST,default=10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL,default=info"` // Options: debug, info, warn, error, silent
	LogFormat string `env:"LOG_FORMAT,default=text"`

	// Rooms
	DefaultRoomID     string        `env:"DEFAULT_ROOM_ID,default=general"`
	MaxUsersPerRoom   int           `env:"MAX_USERS_PER_ROOM,default=20"`
	RoomIdleTTL       time.Duration `env:"ROOM_IDLE_TTL,default=0s"`
	RoomSweepInterval time.Duration `env:"ROOM_SWEEP_INTERVAL,default=1m"`

	// WebSocket
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=1048576"`
	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
	PongWait       time.Duration `env:"PONG_WAIT,default=60s"`
	PingPeriod     time.Duration `env:"PING_PERIOD,default=30s"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Port:              "8000",
		ShutdownTimeout:   30 * time.Second,
		AllowedOrigins:    append([]string(nil), defaultOrigins...),
		APIRate:           10,
		APIBurst:          20,
		WSRate:            5,
		WSBurst:           10,
		LogLevel:          "info",
		LogFormat:         "text",
		DefaultRoomID:     "general",
		MaxUsersPerRoom:   20,
		RoomSweepInterval: time.Minute,
		MaxMessageSize:    1 << 20,
		SendBufferSize:    256,
		PongWait:          60 * time.Second,
		PingPeriod:        30 * time.Second,
	}
}

// Load reads the configuration from the process environment
func Load() (*Config, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return FromEnvSet(es)
}

// FromEnvSet reads the configuration from es. Unset keys take their
// defaults.
func FromEnvSet(es env.EnvSet) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.AllowedOrigins = parseOrigins(cfg.Origins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DefaultRoomID = strings.TrimSpace(cfg.DefaultRoomID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	switch {
	case c.MaxUsersPerRoom < 1:
		return fmt.Errorf("MAX_USERS_PER_ROOM must be at least 1, got %d", c.MaxUsersPerRoom)
	case c.DefaultRoomID == "":
		return fmt.Errorf("DEFAULT_ROOM_ID must not be empty")
	case c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait:
		return fmt.Errorf("PING_PERIOD (%s) must be positive and shorter than PONG_WAIT (%s)", c.PingPeriod, c.PongWait)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	case c.SendBufferSize <= 0:
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", c.SendBufferSize)
	}
	return nil
}

// APILimit is the per-IP request rate for the JSON API
func (c *Config) APILimit() rate.Limit {
	return rate.Limit(c.APIRate)
}

// WSLimit is the per-IP websocket upgrade rate
func (c *Config) WSLimit() rate.Limit {
	return rate.Limit(c.WSRate)
}

// AllowsAnyOrigin reports whether the origin allow-list is a wildcard
func (c *Config) AllowsAnyOrigin() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// IsOriginAllowed reports whether origin may open a websocket or call the
// API from a browser. Requests without an Origin header are allowed.
func (c *Config) IsOriginAllowed(origin string) bool {
	if origin == "" || c.AllowsAnyOrigin() {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// parseOrigins parses comma-separated origins
func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
