// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"voicedesk/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionClient backs the live call-session store.
	SessionClient *redis.Client
	// CacheClient backs the audio and FAQ caches.
	CacheClient *redis.Client
	// EventClient is the dedicated client for pub/sub fan-out.
	EventClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (db %d): %v", db, err)
	}
	return client
}

// InitRedis initializes every Redis client the process uses.
func InitRedis() {
	SessionClient = newRedisClient(config.AppConfig.RedisSessionDB)
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	EventClient = newRedisClient(config.AppConfig.RedisEventDB)
}

// GetSessionClient returns the Redis client for the session store.
func GetSessionClient() *redis.Client {
	if SessionClient == nil {
		SessionClient = newRedisClient(config.AppConfig.RedisSessionDB)
	}
	return SessionClient
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	}
	return CacheClient
}

// GetEventClient returns the Redis client for event publishing.
func GetEventClient() *redis.Client {
	if EventClient == nil {
		EventClient = newRedisClient(config.AppConfig.RedisEventDB)
	}
	return EventClient
}
