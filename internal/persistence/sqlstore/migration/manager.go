package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{scanner: scanner, executor: executor, logger: logger.With("component", "migration")}
}

// RunMigrations applies every pending migration and returns the versions it applied.
func (m *Manager) RunMigrations(ctx context.Context) ([]string, error) {
	start := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "schema version",
		"current_version", status.CurrentVersion,
		"applied", len(status.AppliedMigrations),
		"pending", status.PendingCount,
	)

	var applied []string
	for i, migration := range status.PendingMigrations {
		migrationStart := time.Now()
		logger := m.logger.With("version", migration.Version, "description", migration.Description)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", status.PendingCount)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return applied, NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}

		elapsed := time.Since(migrationStart)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			logger.ErrorContext(ctx, "failed to record migration", "error", err)
			return applied, NewMigrationError(migration.Version, migration.FilePath, "record migration", err)
		}

		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
		applied = append(applied, migration.Version)
	}

	if len(applied) > 0 {
		m.logger.InfoContext(ctx, "migrations complete", "count", len(applied), "duration", time.Since(start))
	}
	return applied, nil
}

// Status compares the migration files with schema_migrations. An applied
// migration whose file checksum changed yields ErrChecksumMismatch.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	status := &Status{AppliedMigrations: applied}
	for _, a := range applied {
		number, err := strconv.Atoi(a.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: recorded version %q", ErrInvalidVersion, a.Version)
		}
		appliedByVersion[number] = a
		status.CurrentVersion = a.Version
	}

	for _, migration := range available {
		number, _ := strconv.Atoi(migration.Version)
		record, ok := appliedByVersion[number]
		if !ok {
			status.PendingMigrations = append(status.PendingMigrations, migration)
			continue
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	status.PendingCount = len(status.PendingMigrations)

	return status, nil
}
