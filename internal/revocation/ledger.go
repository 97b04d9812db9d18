package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ErrUnavailable indicates that the ledger backend is not configured.
var ErrUnavailable = errors.New("revocation ledger unavailable")

// Set is a snapshot of revoked token ids.
type Set map[string]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is revoked.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Ledger returns the current set of revoked token ids. Implementations must
// read the backing store on every call.
type Ledger interface {
	CurrentRevokedIDs(ctx context.Context) (Set, error)
}

// Revoker records a token id as revoked. The token issuer owns the ledger
// and the gateway only reads it; Revoke seeds stores in tests and local setups.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string) error
}

// Pinger checks backend connectivity for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and configures the ledger backend.
type Config struct {
	Backend  string          `yaml:"backend" json:"backend"`
	Redis    *RedisConfig    `yaml:"redis,omitempty" json:"redis,omitempty"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// RedisConfig configures the Redis set backend.
type RedisConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Key     string        `yaml:"key" json:"key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// PostgresConfig configures the Postgres table backend.
type PostgresConfig struct {
	DSN         string `yaml:"dsn" json:"dsn"`
	AutoMigrate bool   `yaml:"autoMigrate" json:"autoMigrate"`
}

// DefaultConfig returns an in-memory ledger configuration.
func DefaultConfig() *Config {
	return &Config{Backend: BackendMemory}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendMemory:
		return nil
	case BackendRedis:
		if c.Redis == nil || c.Redis.URL == "" {
			return errors.New("revocation.redis.url is required for the redis backend")
		}
		return nil
	case BackendPostgres:
		if c.Postgres == nil || c.Postgres.DSN == "" {
			return errors.New("revocation.postgres.dsn is required for the postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("unknown revocation backend %q", c.Backend)
	}
}

// Store is a ledger that can also revoke ids and be closed.
type Store interface {
	Ledger
	Revoker
	Pinger
	Close() error
}

// Open creates the store selected by cfg.
func Open(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendRedis:
		return NewRedisLedgerFromURL(ctx, cfg.Redis)
	case BackendPostgres:
		return OpenPostgresLedger(ctx, cfg.Postgres)
	default:
		return NewMemoryLedger(), nil
	}
}
