// Package sqlstore implements the persistence repositories on database/sql
// for SQLite (modernc.org/sqlite) and Postgres (lib/pq).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/flexspace/internal/persistence/sqlstore/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the repositories sharing one connection pool.
type Store struct {
	pool *ConnectionPool

	Users        *UserRepository
	Spaces       *SpaceRepository
	Reservations *ReservationRepository
	AccessLogs   *AccessLogRepository
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore wires the repositories over pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		pool:         pool,
		Users:        NewUserRepository(pool),
		Spaces:       NewSpaceRepository(pool),
		Reservations: NewReservationRepository(pool),
		AccessLogs:   NewAccessLogRepository(pool),
	}
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) ([]string, error) {
	scanner := migration.NewFileScanner(migrationFiles, "migrations")
	executor := migration.NewSQLExecutor(s.pool.DB(), s.pool.Dialect().Rebind)
	applied, err := migration.NewManager(scanner, executor, logger).RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("migrate %s: %w", s.pool.Dialect(), err)
	}
	return applied, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
