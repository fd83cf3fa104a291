package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/famwealth/internal/client/config"
	"github.com/dmitrijs2005/famwealth/internal/client/repositories/metadata"
	"github.com/redis/go-redis/v9"
)

// Open returns the repository selected by cfg.StoreBackend together with
// the handle that releases it.
func Open(ctx context.Context, cfg *config.Config) (metadata.Repository, io.Closer, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		db, err := InitDatabase(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return metadata.NewSQLiteRepository(db), db, nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.RedisAddr,
			DialTimeout: cfg.RequestTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return metadata.NewRedisRepository(rdb, cfg.RedisKeyPrefix), rdb, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
