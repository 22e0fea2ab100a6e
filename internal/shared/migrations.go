package shared

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one schema step of the run history store.
//
// Files are named "<version>_<name>_up.sql" and "<version>_<name>_down.sql".
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// MigrationStatus pairs a known migration with when it was applied.
type MigrationStatus struct {
	Migration
	AppliedAt *time.Time // nil while pending
}

// Applied reports whether the migration has run.
func (s MigrationStatus) Applied() bool { return s.AppliedAt != nil }

// Migrations returns the embedded migrations sorted by version.
func Migrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, up, err := parseMigrationName(entry.Name())
		if err != nil {
			return nil, err
		}

		content, err := migrationFiles.ReadFile(path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration %d has mismatched names %q and %q", version, m.Name, name)
		}

		if up {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration %s", m)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// parseMigrationName splits "0001_create_run_tracks_up.sql" into 1, "create_run_tracks", true.
func parseMigrationName(file string) (version int, name string, up bool, err error) {
	base, ok := strings.CutSuffix(file, ".sql")
	if !ok {
		return 0, "", false, fmt.Errorf("unexpected migration file %q", file)
	}

	switch {
	case strings.HasSuffix(base, "_up"):
		base, up = strings.TrimSuffix(base, "_up"), true
	case strings.HasSuffix(base, "_down"):
		base = strings.TrimSuffix(base, "_down")
	default:
		return 0, "", false, fmt.Errorf("migration file %q has no _up or _down suffix", file)
	}

	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", false, fmt.Errorf("migration file %q has no name", file)
	}
	version, err = strconv.Atoi(prefix)
	if err != nil {
		return 0, "", false, fmt.Errorf("migration file %q has no numeric version", file)
	}
	return version, name, up, nil
}

// RunMigrations applies every pending migration in version order and returns the ones it applied.
func RunMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	statuses, err := MigrationStatuses(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, s := range statuses {
		if s.Applied() {
			continue
		}
		if err := migrate(ctx, db, s.Migration, true); err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", s.Migration, err)
		}
		applied = append(applied, s.Migration)
	}
	return applied, nil
}

// RollbackMigration reverts the most recently applied migration and returns it.
func RollbackMigration(ctx context.Context, db *sql.DB) (*Migration, error) {
	statuses, err := MigrationStatuses(ctx, db)
	if err != nil {
		return nil, err
	}

	for i := len(statuses) - 1; i >= 0; i-- {
		if !statuses[i].Applied() {
			continue
		}
		m := statuses[i].Migration
		if err := migrate(ctx, db, m, false); err != nil {
			return nil, fmt.Errorf("failed to roll back migration %s: %w", m, err)
		}
		return &m, nil
	}
	return nil, fmt.Errorf("%w: no migrations to roll back", ErrInvalidArgument)
}

// MigrationStatuses lists every embedded migration with its applied time, creating the
// bookkeeping table on first use.
func MigrationStatuses(ctx context.Context, db *sql.DB) ([]MigrationStatus, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	appliedAt := make(map[int]time.Time)
	for rows.Next() {
		var (
			version int
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		appliedAt[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	statuses := make([]MigrationStatus, len(migrations))
	for i, m := range migrations {
		statuses[i] = MigrationStatus{Migration: m}
		if at, ok := appliedAt[m.Version]; ok {
			statuses[i].AppliedAt = &at
		}
	}
	return statuses, nil
}

// migrate runs one direction of m and updates schema_migrations in the same transaction.
func migrate(ctx context.Context, db *sql.DB, m Migration, up bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	script, record := m.Down, "DELETE FROM schema_migrations WHERE version = ?"
	if up {
		script, record = m.Up, "INSERT INTO schema_migrations (version) VALUES (?)"
	}

	for _, stmt := range statements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx, record, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// statements splits a script on ";" with "--" comments and blank lines removed.
func statements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if idx := strings.Index(line, "--"); idx >= 0 {
				line = line[:idx]
			}
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
