package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS holds the schema files. Package migrations registers its
// embedded SQL here; tests substitute an fstest.MapFS.
var MigrationsFS fs.FS

// MigrationsDir is the directory inside MigrationsFS holding the files.
var MigrationsDir = "."

// migration is one forward-only schema step, read from a file named
// YYYYMMDD_HHMMSS_name.sql.
type migration struct {
	version string
	name    string
	sql     string
}

const createSchemaTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`

// Migrate applies every schema file not yet recorded in schema_migrations,
// oldest first, each in its own transaction. It returns the versions it
// applied. On failure the earlier steps stay committed and a later call
// resumes at the failed one.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, createSchemaTable); err != nil {
		return nil, fmt.Errorf("creating schema_migrations: %w", err)
	}

	all, err := readMigrations(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, err
	}

	done, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range all {
		if done[m.version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return applied, fmt.Errorf("applying migration %s (%s): %w", m.version, m.name, err)
		}
		applied = append(applied, m.version)
	}
	return applied, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (db *DB) apply(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

// readMigrations loads the *.sql files in dir, sorted by version. Files
// whose names do not carry a version are skipped. A nil filesystem or a
// missing directory yields no migrations.
func readMigrations(fsys fs.FS, dir string) ([]migration, error) {
	if fsys == nil {
		return nil, nil
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	var out []migration
	for _, file := range files {
		version, name, ok := parseMigrationName(path.Base(file))
		if !ok {
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		out = append(out, migration{version: version, name: name, sql: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// parseMigrationName splits "20260101_000000_audit_logs.sql" into
// ("20260101_000000", "audit_logs").
func parseMigrationName(file string) (version, name string, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return "", "", false
	}
	for _, r := range parts[0] + parts[1] {
		if r < '0' || r > '9' {
			return "", "", false
		}
	}
	return parts[0] + "_" + parts[1], parts[2], true
}
