package migrations

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const (
	trackingTable = "tickerql_schema_migrations"

	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

type Runner struct {
	fsys fs.FS
}

// NewRunner uses the catalog migrations compiled into the binary.
func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

// NewRunnerFS reads migrations from fsys, which must hold a sql/ directory.
func NewRunnerFS(fsys fs.FS) *Runner {
	return &Runner{fsys: fsys}
}

type Status struct {
	Version int64
	Name    string
	Applied bool
}

type migration struct {
	Version int64
	Name    string
	up      string
	down    string
}

// Up applies pending migrations in version order. steps <= 0 applies all.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	source, applied, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}

	var pending []migration
	for _, m := range source {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}

	for i, m := range pending {
		record := `INSERT INTO ` + trackingTable + ` (version, name) VALUES ($1, $2)`
		if err := inTx(ctx, db, m.up, record, m.Version, m.Name); err != nil {
			return i, fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return len(pending), nil
}

// Down rolls back the most recent migrations. steps <= 0 rolls back one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	source, applied, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}
	steps = max(steps, 1)

	byVersion := make(map[int64]migration, len(source))
	for _, m := range source {
		byVersion[m.Version] = m
	}

	done := 0
	for _, version := range slices.Backward(applied) {
		if done == steps {
			break
		}
		m, ok := byVersion[version]
		if !ok {
			return done, fmt.Errorf("applied migration %d has no source file", version)
		}
		forget := `DELETE FROM ` + trackingTable + ` WHERE version = $1`
		if err := inTx(ctx, db, m.down, forget, m.Version); err != nil {
			return done, fmt.Errorf("roll back migration %d (%s): %w", m.Version, m.Name, err)
		}
		done++
	}
	return done, nil
}

func (r *Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	source, applied, err := r.prepare(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]Status, len(source))
	for i, m := range source {
		out[i] = Status{Version: m.Version, Name: m.Name, Applied: slices.Contains(applied, m.Version)}
	}
	return out, nil
}

// prepare loads the source migrations, creates the tracking table and
// returns the applied versions in ascending order.
func (r *Runner) prepare(ctx context.Context, db *sql.DB) ([]migration, []int64, error) {
	source, err := loadMigrations(r.fsys)
	if err != nil {
		return nil, nil, err
	}
	ddl := `CREATE TABLE IF NOT EXISTS ` + trackingTable + ` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", trackingTable, err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return source, applied, nil
}

// inTx runs script and the bookkeeping statement atomically.
func inTx(ctx context.Context, db *sql.DB, script, bookkeeping string, args ...any) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("update %s: %w", trackingTable, err)
	}
	return tx.Commit()
}

func appliedVersions(ctx context.Context, db *sql.DB) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+trackingTable+` ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", trackingTable, err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", trackingTable, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// parseFileName splits 000001_ingest_run.up.sql into its version, name and
// direction. ok is false for files that are not migrations.
func parseFileName(base string) (version int64, name string, up bool, ok bool) {
	var stem string
	switch {
	case strings.HasSuffix(base, upSuffix):
		stem, up = strings.TrimSuffix(base, upSuffix), true
	case strings.HasSuffix(base, downSuffix):
		stem = strings.TrimSuffix(base, downSuffix)
	default:
		return 0, "", false, false
	}
	digits, name, found := strings.Cut(stem, "_")
	if !found || name == "" {
		return 0, "", false, false
	}
	version, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || version <= 0 {
		return 0, "", false, false
	}
	return version, name, up, true
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := map[int64]*migration{}
	for _, p := range paths {
		version, name, up, ok := parseFileName(path.Base(p))
		if !ok {
			continue
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", p, err)
		}
		m := byVersion[version]
		if m == nil {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, m.Name, name)
		}
		if up {
			m.up = string(body)
		} else {
			m.down = string(body)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		switch {
		case strings.TrimSpace(m.up) == "":
			return nil, fmt.Errorf("migration %d missing up SQL", m.Version)
		case strings.TrimSpace(m.down) == "":
			return nil, fmt.Errorf("migration %d missing down SQL", m.Version)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}
