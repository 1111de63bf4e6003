package history

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qmllink/internal/core/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Search is one recorded usage search.
type Search struct {
	ID         string        `json:"id"`
	ProjectKey string        `json:"project"`
	Timestamp  time.Time     `json:"timestamp"`
	Path       string        `json:"path"`
	Offset     int           `json:"offset"`
	Name       string        `json:"name"`
	Kind       string        `json:"kind"`
	Usages     int           `json:"usages"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the history database at path. busyTimeout bounds
// how long SQLite waits on a locked database; zero uses two seconds.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "history path is a directory, expected file"), errors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to create history directory"), errors.CtxPath, dir)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	// busy_timeout + WAL reduce lock conflicts when several processes record searches.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to open history"), errors.CtxPath, cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to ping history"), errors.CtxPath, cleanPath)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to initialize history schema"), errors.CtxPath, cleanPath)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeProject(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "default"
	}
	return key
}

// SaveSearch records rec, filling in a missing ID and timestamp. It
// returns the stored record.
func (s *Store) SaveSearch(rec Search) (Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ProjectKey = normalizeProject(rec.ProjectKey)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	query := `
INSERT INTO searches (
  id, project_key, ts_utc, path, byte_offset, name, kind, usage_count, duration_ms, error
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  usage_count=excluded.usage_count,
  duration_ms=excluded.duration_ms,
  error=excluded.error
`
	err := s.withRetry("save search", func() error {
		_, err := s.db.Exec(
			query,
			rec.ID,
			rec.ProjectKey,
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.Path,
			rec.Offset,
			rec.Name,
			rec.Kind,
			rec.Usages,
			rec.Duration.Milliseconds(),
			rec.Error,
		)
		return err
	})
	return rec, err
}

// LoadSearches returns the newest searches of a project first. A limit of
// zero or less returns every row.
func (s *Store) LoadSearches(projectKey string, limit int) ([]Search, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT
  id, project_key, ts_utc, path, byte_offset, name, kind, usage_count, duration_ms, error
FROM searches
WHERE project_key = ?
ORDER BY ts_utc DESC, id ASC
`
	args := []any{normalizeProject(projectKey)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load searches", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Search, 0)
	for rows.Next() {
		var (
			rec        Search
			tsRaw      string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ProjectKey,
			&tsRaw,
			&rec.Path,
			&rec.Offset,
			&rec.Name,
			&rec.Kind,
			&rec.Usages,
			&durationMS,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse search timestamp %q: %w", tsRaw, err)
		}
		rec.Timestamp = ts.UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

// Count returns how many searches are recorded for a project.
func (s *Store) Count(projectKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.withRetry("count searches", func() error {
		return s.db.QueryRow(`SELECT COUNT(*) FROM searches WHERE project_key = ?`, normalizeProject(projectKey)).Scan(&n)
	})
	return n, err
}

// Prune keeps the newest keep searches of a project and deletes the rest.
func (s *Store) Prune(projectKey string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	var deleted int64
	err := s.withRetry("prune searches", func() error {
		res, err := s.db.Exec(`
DELETE FROM searches
WHERE project_key = ?1 AND id NOT IN (
  SELECT id FROM searches WHERE project_key = ?1 ORDER BY ts_utc DESC, id ASC LIMIT ?2
)`, normalizeProject(projectKey), keep)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return errors.AddContext(errors.Wrap(lastErr, errors.CodeInternal, op+" failed"), errors.CtxOperation, op)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
