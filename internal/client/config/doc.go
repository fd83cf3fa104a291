// Package config loads runtime configuration for the famwealth client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / --config.
//  3. Environment variables prefixed with FAMWEALTH_, optionally seeded
//     from a .env file in the working directory. Variables already present
//     in the process environment win over the .env file.
//  4. Command-line flags (see BindFlags), which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://localhost:5000",
//	  "store_backend": "sqlite",
//	  "store_path": "famwealth.db",
//	  "redis_addr": "127.0.0.1:6379",
//	  "redis_key_prefix": "famwealth:",
//	  "request_timeout": "10s",
//	  "log_level": "info"
//	}
//
// # Environment
//
//	FAMWEALTH_SERVER_URL, FAMWEALTH_STORE_BACKEND, FAMWEALTH_STORE_PATH,
//	FAMWEALTH_REDIS_ADDR, FAMWEALTH_REDIS_KEY_PREFIX,
//	FAMWEALTH_REQUEST_TIMEOUT, FAMWEALTH_LOG_LEVEL
package config
