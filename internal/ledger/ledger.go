// Package ledger records completed pipeline runs and their artifacts in a
// SQLite database so `slidecast artifacts` can surface produced videos
// after the fact. The ledger is a run history, not resumable pipeline
// state — an interrupted run leaves no ledger rows.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the artifact ledger. Single-writer: the CLI opens one Store per
// invocation (SetMaxOpenConns(1)).
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens (or creates) the ledger database at path and applies pending
// schema migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: setting journal mode: %w", err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations applies pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ledger: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("ledger: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("ledger: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Artifact is one produced video recorded by a run.
type Artifact struct {
	RunID     string
	Folder    string
	Path      string
	CreatedAt time.Time
}

// RecordRun stores a completed run and its artifacts atomically and
// returns the generated run ID.
func (s *Store) RecordRun(ctx context.Context, folder string, startedAt time.Time, artifacts []string) (string, error) {
	runID := uuid.NewString()
	now := s.nowFunc().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("ledger: begin record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, folder, started_at, finished_at) VALUES (?, ?, ?, ?)`,
		runID, folder, startedAt.UTC().Unix(), now.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("ledger: inserting run: %w", err)
	}

	for _, path := range artifacts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, path, created_at) VALUES (?, ?, ?)`,
			runID, path, now.Unix(),
		)
		if err != nil {
			return "", fmt.Errorf("ledger: inserting artifact %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("ledger: committing run: %w", err)
	}

	s.logger.Info("recorded run",
		slog.String("run_id", runID),
		slog.String("folder", folder),
		slog.Int("artifacts", len(artifacts)),
	)

	return runID, nil
}

// ListArtifacts returns all recorded artifacts, most recent run first,
// artifacts within a run in production order.
func (s *Store) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.run_id, r.folder, a.path, a.created_at
		 FROM artifacts a
		 JOIN runs r ON r.id = a.run_id
		 ORDER BY r.finished_at DESC, a.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact

	for rows.Next() {
		var (
			a       Artifact
			created int64
		)

		if err := rows.Scan(&a.RunID, &a.Folder, &a.Path, &created); err != nil {
			return nil, fmt.Errorf("ledger: scanning artifact row: %w", err)
		}

		a.CreatedAt = time.Unix(created, 0).UTC()
		artifacts = append(artifacts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating artifacts: %w", err)
	}

	return artifacts, nil
}
