package shared

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema change, loaded from sql/NNNN_<name>_{up,down}.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// String returns the migration's file stem, e.g. "0001_create_batches".
func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	AppliedAt time.Time
}

// parseMigrationFile splits "0001_create_batches_up.sql" into 1, "create_batches", "up".
func parseMigrationFile(file string) (version int, name, direction string, ok bool) {
	stem, found := strings.CutSuffix(file, ".sql")
	if !found {
		return 0, "", "", false
	}
	for _, d := range []string{"up", "down"} {
		if s, found := strings.CutSuffix(stem, "_"+d); found {
			stem, direction = s, d
			break
		}
	}
	if direction == "" {
		return 0, "", "", false
	}

	num, name, found := strings.Cut(stem, "_")
	if !found {
		return 0, "", "", false
	}
	version, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", "", false
	}
	return version, name, direction, true
}

func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		version, name, direction, ok := parseMigrationFile(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}

		content, err := fs.ReadFile(migrationFiles, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s is missing its up or down script", m)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

// RunMigrations applies every pending migration in version order and returns the ones it applied.
func RunMigrations(db *sql.DB) ([]Migration, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	applied, err := AppliedMigrations(db)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}

	var ran []Migration
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if err := migrate(db, m.Up, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", m, err)
		}
		ran = append(ran, m)
	}
	return ran, nil
}

// RollbackMigration reverts the newest applied migration and returns it.
func RollbackMigration(db *sql.DB) (*Migration, error) {
	applied, err := AppliedMigrations(db)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, fmt.Errorf("%w: no migrations to roll back", ErrNotFound)
	}
	newest := applied[len(applied)-1].Version

	migrations, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == newest })
	if i < 0 {
		return nil, fmt.Errorf("%w: applied migration %d has no script", ErrNotFound, newest)
	}

	m := migrations[i]
	if err := migrate(db, m.Down, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
		return nil, fmt.Errorf("failed to roll back migration %s: %w", m, err)
	}
	return &m, nil
}

// AppliedMigrations lists applied versions in ascending order.
func AppliedMigrations(db *sql.DB) ([]AppliedMigration, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.Query("SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied = append(applied, m)
	}
	return applied, rows.Err()
}

// migrate runs a whole script and its schema_migrations bookkeeping in one transaction.
// The sqlite3 driver executes every statement of a multi-statement script.
func migrate(db *sql.DB, script, bookkeeping string, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		return err
	}
	return tx.Commit()
}
