package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/flexspace/internal/persistence"
	"github.com/example/flexspace/internal/persistence/sqlstore"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Store        *sqlstore.Store
	Users        persistence.UserRepository
	Spaces       persistence.SpaceRepository
	Reservations persistence.ReservationRepository
	AccessLogs   persistence.AccessLogRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a migrated database in a temporary directory. Callers
// may invoke Close, but a cleanup callback is also registered with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "flexspace.db")
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Dialect: sqlstore.DialectSQLite,
		DSN:     sqlstore.SQLiteDSN(path),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if _, err := store.Migrate(ctx, nil); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:        store,
		Users:        store.Users,
		Spaces:       store.Spaces,
		Reservations: store.Reservations,
		AccessLogs:   store.AccessLogs,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
