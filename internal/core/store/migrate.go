package store

import (
	"context"
	"errors"
	"fmt"
)

// migration moves the journal schema to version.
type migration struct {
	version    int
	statements []string
}

// migrations are applied in order; never edit one that has shipped.
var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS attempts (
				id TEXT PRIMARY KEY,
				doc_id TEXT NOT NULL DEFAULT '',
				doc_type TEXT NOT NULL DEFAULT '',
				product_count INTEGER NOT NULL DEFAULT 0,
				outcome TEXT NOT NULL,
				status_code INTEGER,
				message TEXT,
				started_at INTEGER NOT NULL,
				finished_at INTEGER NOT NULL
			);`,
			`CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at);`,
			`CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);`,
		},
	},
}

// SchemaVersion is the version Migrate brings the journal to.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Migrate applies pending migrations, one transaction each. The applied
// version is kept in PRAGMA user_version.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current, err := s.userVersion(ctx)
	if err != nil {
		return err
	}
	if current > SchemaVersion() {
		return fmt.Errorf("journal schema version %d is newer than supported version %d", current, SchemaVersion())
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration %d failed: %w", m.version, err)
		}
	}
	// PRAGMA does not take bind parameters; version is a compile-time int.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func (s *Store) userVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read journal schema version: %w", err)
	}
	return version, nil
}
