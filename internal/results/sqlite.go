package results

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/logging"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore is a Store persisted in SQLite. Put is a single upsert so an
// entry is never observed half written.
type SQLiteStore struct {
	db     *sql.DB
	owned  bool
	logger logging.Logger
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string, logger logging.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	s, err := NewSQLiteStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLiteStore uses an already opened database and applies the schema.
// Close does not close db.
func NewSQLiteStore(db *sql.DB, logger logging.Logger) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("results: db is nil")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger.With(logging.Field{Key: "component", Value: "results_sqlite"})}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, e *Entry) error {
	if e == nil || e.Key == "" {
		return fmt.Errorf("results: entry key is required")
	}
	resultsJSON, err := json.Marshal(e.Results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	linesJSON, err := json.Marshal(e.HeaderLines)
	if err != nil {
		return fmt.Errorf("marshal header lines: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (endpoint_key, method, url, status_code, status_line, results_json, header_lines_json, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint_key) DO UPDATE SET
			method = excluded.method,
			url = excluded.url,
			status_code = excluded.status_code,
			status_line = excluded.status_line,
			results_json = excluded.results_json,
			header_lines_json = excluded.header_lines_json,
			analyzed_at = excluded.analyzed_at`,
		e.Key, e.Method, e.URL, e.StatusCode, e.StatusLine, string(resultsJSON), string(linesJSON), e.AnalyzedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", e.Key, err)
	}
	return nil
}

const selectColumns = `endpoint_key, method, url, status_code, status_line, results_json, header_lines_json, analyzed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e           Entry
		resultsJSON string
		linesJSON   string
		analyzedAt  int64
	)
	if err := row.Scan(&e.Key, &e.Method, &e.URL, &e.StatusCode, &e.StatusLine, &resultsJSON, &linesJSON, &analyzedAt); err != nil {
		return nil, err
	}
	var rs checks.Results
	if err := json.Unmarshal([]byte(resultsJSON), &rs); err != nil {
		return nil, fmt.Errorf("decode results for %s: %w", e.Key, err)
	}
	e.Results = &rs
	if err := json.Unmarshal([]byte(linesJSON), &e.HeaderLines); err != nil {
		return nil, fmt.Errorf("decode header lines for %s: %w", e.Key, err)
	}
	e.AnalyzedAt = time.Unix(0, analyzedAt)
	return &e, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM results WHERE endpoint_key = ?`, key)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable result row", logging.Field{Key: "error", Value: err})
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
