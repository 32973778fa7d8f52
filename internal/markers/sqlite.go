package markers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// SQLite keeps markers in a local database file, so diagnostics of resources
// an incremental pass did not touch survive between CLI runs.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create marker directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open marker database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(pctx, `CREATE TABLE IF NOT EXISTS markers (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  project    TEXT NOT NULL,
  resource   TEXT NOT NULL DEFAULT '',
  severity   TEXT NOT NULL,
  message    TEXT NOT NULL,
  line       INTEGER NOT NULL DEFAULT 0,
  col        INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_markers_resource ON markers(project, resource);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create marker schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Add(ctx context.Context, d types.Diagnostic) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO markers (project, resource, severity, message, line, col, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.Project, d.Resource, d.Severity.String(), d.Message, d.Line, d.Column, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert marker: %w", err)
	}
	return nil
}

func (s *SQLite) Clear(ctx context.Context, project, resource string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM markers WHERE project = ? AND resource = ?", project, resource)
	if err != nil {
		return fmt.Errorf("failed to clear markers: %w", err)
	}
	return nil
}

func (s *SQLite) ClearProject(ctx context.Context, project string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM markers WHERE project = ?", project)
	if err != nil {
		return fmt.Errorf("failed to clear project markers: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, project string) ([]types.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT resource, severity, message, line, col FROM markers WHERE project = ? ORDER BY id", project)
	if err != nil {
		return nil, fmt.Errorf("failed to query markers: %w", err)
	}
	defer rows.Close()

	var out []types.Diagnostic
	for rows.Next() {
		var (
			d        types.Diagnostic
			severity string
		)
		if err := rows.Scan(&d.Resource, &severity, &d.Message, &d.Line, &d.Column); err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		d.Project = project
		d.Severity = types.ParseSeverity(severity)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
