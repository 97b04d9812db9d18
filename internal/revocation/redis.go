package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the set key holding revoked token ids.
const DefaultRedisKey = "certgw:otp:revoked"

// DefaultRedisTimeout bounds each ledger read.
const DefaultRedisTimeout = 2 * time.Second

// RedisLedger reads revoked ids from a Redis set.
type RedisLedger struct {
	client  redis.UniversalClient
	key     string
	timeout time.Duration
	owned   bool
}

// NewRedisLedger wraps an existing client. The caller keeps ownership of the
// client and Close does not close it.
func NewRedisLedger(client redis.UniversalClient, key string, timeout time.Duration) *RedisLedger {
	if key == "" {
		key = DefaultRedisKey
	}
	if timeout <= 0 {
		timeout = DefaultRedisTimeout
	}
	return &RedisLedger{client: client, key: key, timeout: timeout}
}

// NewRedisLedgerFromURL connects to the Redis server in cfg.URL and verifies
// the connection.
func NewRedisLedgerFromURL(ctx context.Context, cfg *RedisConfig) (*RedisLedger, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	l := NewRedisLedger(client, cfg.Key, cfg.Timeout)
	l.owned = true

	if err := l.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return l, nil
}

// CurrentRevokedIDs reads the whole set with SMEMBERS.
func (l *RedisLedger) CurrentRevokedIDs(ctx context.Context) (Set, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	members, err := l.client.SMembers(ctx, l.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read revoked ids from redis: %w", err)
	}
	return NewSet(members...), nil
}

// Revoke adds tokenID to the set.
func (l *RedisLedger) Revoke(ctx context.Context, tokenID string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.client.SAdd(ctx, l.key, tokenID).Err(); err != nil {
		return fmt.Errorf("revoke token id in redis: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (l *RedisLedger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.client.Ping(ctx).Err()
}

// Close closes the client if the ledger created it.
func (l *RedisLedger) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
