// Package bootstrap builds the runtime dependencies cmd/api wires together.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/meditrack/internal/config"
	"github.com/wolfman30/meditrack/internal/frontdesk"
	"github.com/wolfman30/meditrack/internal/querylog"
	"github.com/wolfman30/meditrack/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Storage is the persistence layer picked from config.
type Storage struct {
	Repo     frontdesk.Repository
	QueryLog *querylog.Store // nil without Postgres
	Pool     *pgxpool.Pool   // nil without Postgres

	sqlDB *sql.DB
}

// Ping checks the database, when there is one.
func (s *Storage) Ping(ctx context.Context) error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Ping(ctx)
}

func (s *Storage) Close() {
	if s == nil {
		return
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// BuildStorage connects to Postgres when DATABASE_URL is set and falls back
// to the in-memory repository otherwise. The query log shares the pool
// through database/sql.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage; data is lost on restart")
		return &Storage{Repo: frontdesk.NewInMemoryRepository()}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(pool)

	logger.Info("postgres storage enabled")
	return &Storage{
		Repo:     frontdesk.NewPostgresRepository(pool),
		QueryLog: querylog.NewStore(sqlDB),
		Pool:     pool,
		sqlDB:    sqlDB,
	}, nil
}
