package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 2 * time.Second

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// redisOptionsFromEnv builds client options from REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB, falling back to a local instance.
func redisOptionsFromEnv() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbIndex := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			dbIndex = n
		}
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbIndex,
	}
}

// ConnectRedis dials the configured Redis instance once and keeps the client
// as a singleton. Under APPENV=test no connection is attempted, and callers
// treat a nil client as "sessions and rate limits are DB-only".
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		cfg := LoadConfig()
		if cfg != nil && cfg.AppEnv == "test" {
			return
		}

		opts := redisOptionsFromEnv()
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err = client.Ping(ctx).Err(); err != nil {
			redisClient = nil
			err = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		redisClient = client
		log.Printf("Redis session store ready at %s (db %d)", opts.Addr, opts.DB)
	})
	return redisClient, err
}

// GetRedisClient returns the singleton client, or nil when Redis is not
// connected.
func GetRedisClient() *redis.Client {
	return redisClient
}

// SetRedisClientForTesting swaps the singleton so tests can inject a client.
func SetRedisClientForTesting(client *redis.Client) {
	redisClient = client
}
