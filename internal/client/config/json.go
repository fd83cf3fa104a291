package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/famwealth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Absent fields keep the values already present in Config.
type JsonConfig struct {
	ServerURL      string          `json:"server_url"`
	StoreBackend   string          `json:"store_backend"`
	StorePath      string          `json:"store_path"`
	RedisAddr      string          `json:"redis_addr"`
	RedisKeyPrefix string          `json:"redis_key_prefix"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	LogLevel       string          `json:"log_level"`
}

// parseJson overlays cfg with values loaded from the JSON file at path.
// An empty path is a no-op.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	overlay(&cfg.ServerURL, jc.ServerURL)
	overlay(&cfg.StoreBackend, jc.StoreBackend)
	overlay(&cfg.StorePath, jc.StorePath)
	overlay(&cfg.RedisAddr, jc.RedisAddr)
	overlay(&cfg.RedisKeyPrefix, jc.RedisKeyPrefix)
	overlay(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
