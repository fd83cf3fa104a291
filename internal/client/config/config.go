package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/famwealth/internal/flagx"
)

// Credential store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings for the famwealth client.
type Config struct {
	// ServerURL is the base URL of the remote holdings service.
	ServerURL string

	// StoreBackend selects where the session is persisted: BackendSQLite or BackendRedis.
	StoreBackend string
	// StorePath is the SQLite database file.
	StorePath string
	// RedisAddr is host:port of the Redis server.
	RedisAddr string
	// RedisKeyPrefix namespaces persisted entries, one prefix per profile.
	RedisKeyPrefix string

	// RequestTimeout bounds every network call, including the shared refresh.
	RequestTimeout time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:5000"
	c.StoreBackend = BackendSQLite
	c.StorePath = "famwealth.db"
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisKeyPrefix = "famwealth:"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if a path is present in args) and the environment. Flags are bound
// afterwards by the command layer via BindFlags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server url %q", c.ServerURL)
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if c.StorePath == "" {
			return errors.New("store path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
