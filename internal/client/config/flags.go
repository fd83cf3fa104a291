package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers the client flags on fs with the current cfg values as
// defaults, so parsing fs overrides only what the user passed explicitly.
//
//	-a, --server string        base URL of the holdings service
//	    --store string         credential store backend (sqlite|redis)
//	    --store-path string    SQLite database file
//	    --redis-addr string    Redis host:port
//	    --redis-prefix string  Redis key prefix
//	    --timeout duration     network timeout
//	    --log-level string     debug|info|warn|error
//	-c, --config string        JSON config file (read before flags are parsed)
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ServerURL, "server", "a", cfg.ServerURL, "base URL of the holdings service")
	fs.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "credential store backend (sqlite|redis)")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "SQLite database file")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis host:port")
	fs.StringVar(&cfg.RedisKeyPrefix, "redis-prefix", cfg.RedisKeyPrefix, "Redis key prefix")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "network timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")

	// consumed by flagx.ConfigPath before the flag set exists
	fs.StringP("config", "c", "", "JSON config file")
}
