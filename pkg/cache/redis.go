package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/campus-attendance-api/pkg/config"
)

// Key namespaces shared by every process that talks to the same Redis.
const (
	KeyPrefix          = "attendance-api:"
	ListingPrefix      = KeyPrefix + "list:"
	RevokedTokenPrefix = KeyPrefix + "revoked:"
)

const (
	clientName  = "campus-attendance-api"
	pingTimeout = 3 * time.Second
)

// NewRedis connects to Redis and verifies the connection. Callers treat an
// error as "run without Redis" rather than a fatal condition.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		ClientName:  clientName,
		DialTimeout: pingTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}
