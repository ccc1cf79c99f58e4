package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// DefaultDir is where new migration files are written by the CLI.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Status describes one migration as seen by the database.
type Status struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

// Runner applies the order schema with goose against Postgres.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

// NewRunner does not take ownership of db; closing it stays with the caller.
func NewRunner(db *sql.DB, migrations fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if migrations == nil {
		return nil, errors.New("migrations fs is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Up applies every pending migration and returns how many ran.
func (r *Runner) Up(ctx context.Context) (int, error) {
	results, err := r.provider.Up(ctx)
	r.logResults(ctx, results)
	if err != nil {
		return len(results), fmt.Errorf("migrate up: %w", err)
	}
	return len(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) error {
	result, err := r.provider.Down(ctx)
	if result != nil {
		r.logResults(ctx, []*goose.MigrationResult{result})
	}
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) error {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	r.logResults(ctx, results)
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			File:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

func (r *Runner) logResults(ctx context.Context, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		entry := r.logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		})
		if res.Error != nil {
			r.logg.Error(entry, "migration failed", res.Error)
			continue
		}
		r.logg.Info(entry, "migration applied")
	}
}
