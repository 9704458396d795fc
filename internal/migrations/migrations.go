// Package migrations provisions the review and complaint tables from
// embedded SQL scripts, tracking applied versions in a ledger table.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFS embed.FS

const ledgerTable = "reviewlens_schema_migrations"

var stepNamePattern = regexp.MustCompile(`^([0-9]+)_(.+)\.(up|down)\.sql$`)

// Step is one versioned schema change with both directions present.
type Step struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

type Runner struct {
	steps []Step
}

// NewRunner parses the embedded scripts once; a malformed or one-sided
// script fails construction rather than a later Up call.
func NewRunner() (*Runner, error) {
	steps, err := loadSteps(schemaFS)
	if err != nil {
		return nil, err
	}
	return &Runner{steps: steps}, nil
}

func (r *Runner) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Up applies every unapplied step in version order. A positive limit caps
// how many steps run; zero or negative means all.
func (r *Runner) Up(ctx context.Context, db *sql.DB, limit int) (int, error) {
	if err := ensureLedger(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, "ASC")
	if err != nil {
		return 0, err
	}
	done := make(map[int64]struct{}, len(applied))
	for _, version := range applied {
		done[version] = struct{}{}
	}

	ran := 0
	for _, step := range r.steps {
		if _, ok := done[step.Version]; ok {
			continue
		}
		if limit > 0 && ran >= limit {
			break
		}
		if err := runStep(ctx, db, step.Version, step.UpSQL,
			`INSERT INTO `+ledgerTable+` (version) VALUES ($1)`); err != nil {
			return ran, fmt.Errorf("apply migration %d (%s): %w", step.Version, step.Name, err)
		}
		ran++
	}
	return ran, nil
}

// Down rolls back the most recent applied steps, newest first. A zero or
// negative limit rolls back exactly one step.
func (r *Runner) Down(ctx context.Context, db *sql.DB, limit int) (int, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := ensureLedger(ctx, db); err != nil {
		return 0, err
	}
	applied, err := appliedVersions(ctx, db, "DESC")
	if err != nil {
		return 0, err
	}

	byVersion := make(map[int64]Step, len(r.steps))
	for _, step := range r.steps {
		byVersion[step.Version] = step
	}

	ran := 0
	for _, version := range applied {
		if ran >= limit {
			break
		}
		step, ok := byVersion[version]
		if !ok {
			return ran, fmt.Errorf("applied migration %d is missing from source", version)
		}
		if err := runStep(ctx, db, step.Version, step.DownSQL,
			`DELETE FROM `+ledgerTable+` WHERE version = $1`); err != nil {
			return ran, fmt.Errorf("rollback migration %d (%s): %w", step.Version, step.Name, err)
		}
		ran++
	}
	return ran, nil
}

func ensureLedger(ctx context.Context, db *sql.DB) error {
	query := `
CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
	version BIGINT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}
	return nil
}

// runStep executes the script and the ledger mark in one transaction so a
// half-applied step never records as done.
func runStep(ctx context.Context, db *sql.DB, version int64, script, mark string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, mark, version); err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	return tx.Commit()
}

func appliedVersions(ctx context.Context, db *sql.DB, order string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM `+ledgerTable+` ORDER BY version `+order)
	if err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return versions, nil
}

func loadSteps(fsys fs.FS) ([]Step, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read migration dir: %w", err)
	}

	byVersion := map[int64]Step{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := stepNamePattern.FindStringSubmatch(path.Base(entry.Name()))
		if len(matches) != 4 {
			continue
		}
		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version for %q: %w", entry.Name(), err)
		}

		script, err := fs.ReadFile(fsys, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}

		step := byVersion[version]
		step.Version = version
		step.Name = matches[2]
		if matches[3] == "up" {
			step.UpSQL = string(script)
		} else {
			step.DownSQL = string(script)
		}
		byVersion[version] = step
	}

	steps := make([]Step, 0, len(byVersion))
	for _, step := range byVersion {
		if strings.TrimSpace(step.UpSQL) == "" {
			return nil, fmt.Errorf("migration %d missing up SQL", step.Version)
		}
		if strings.TrimSpace(step.DownSQL) == "" {
			return nil, fmt.Errorf("migration %d missing down SQL", step.Version)
		}
		steps = append(steps, step)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps, nil
}
