// Package cache keeps each kapp's raw category list in Valkey (a
// Redis-compatible store) so helpers can be rebuilt after a restart or on
// another replica without a round trip to the category source.
package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// ValkeyConfig addresses the Valkey instance holding catalog entries.
type ValkeyConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr joins host and port, bracketing IPv6 hosts.
func (c ValkeyConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ConnectValkey dials the catalog cache and pings it within ctx. Callers
// treat an error as "run without a cache".
func ConnectValkey(ctx context.Context, cfg ValkeyConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("catalog cache ping %s: %w", cfg.Addr(), err)
	}

	zap.S().Infow("catalog cache connected", "addr", cfg.Addr(), "db", cfg.DB)
	return client, nil
}
