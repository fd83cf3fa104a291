package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "FAMWEALTH_"

// parseEnv loads the optional dotenv files into the process environment and
// then overlays cfg with FAMWEALTH_* variables. Missing files are skipped.
func parseEnv(cfg *Config, envFiles ...string) error {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	overlay(&cfg.ServerURL, os.Getenv(envPrefix+"SERVER_URL"))
	overlay(&cfg.StoreBackend, os.Getenv(envPrefix+"STORE_BACKEND"))
	overlay(&cfg.StorePath, os.Getenv(envPrefix+"STORE_PATH"))
	overlay(&cfg.RedisAddr, os.Getenv(envPrefix+"REDIS_ADDR"))
	overlay(&cfg.RedisKeyPrefix, os.Getenv(envPrefix+"REDIS_KEY_PREFIX"))
	overlay(&cfg.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))

	if v := os.Getenv(envPrefix + "REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RequestTimeout = d
	}
	return nil
}
