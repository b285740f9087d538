package redis

import (
	"github.com/redis/go-redis/v9"

	"habitflow/config"
)

// NewRedisClient builds a client from config. Callers own the handle.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
