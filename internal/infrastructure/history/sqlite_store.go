package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// timeLayout sorts lexicographically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists execution records in a SQLite database. When the
// database cannot be opened it degrades to a jsonl file next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	now      func() time.Time
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	fallback := NewFileStore(strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl")
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path, fallback: fallback, now: time.Now}
	}
	store := &SQLiteStore{db: db, path: path, fallback: fallback, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path, fallback: fallback, now: time.Now}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		plugin TEXT,
		utterance TEXT,
		command TEXT,
		summary TEXT,
		working_dir TEXT,
		state TEXT,
		proposed_at TEXT,
		started_at TEXT,
		ended_at TEXT,
		exit_code INTEGER,
		stdout TEXT,
		stderr TEXT,
		output_truncated INTEGER,
		cancel_requested INTEGER,
		pinned_at TEXT NOT NULL DEFAULT ''
	);`)
	if err != nil {
		return err
	}
	// databases created before pinning lack the column
	_, err = s.db.Exec(`ALTER TABLE executions ADD COLUMN pinned_at TEXT NOT NULL DEFAULT ''`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column") {
		return err
	}
	return nil
}

// Save inserts or replaces a record.
func (s *SQLiteStore) Save(record domain.ExecutionRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	rec := sanitize(record)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO executions
		(id, plugin, utterance, command, summary, working_dir, state, proposed_at, started_at, ended_at,
		 exit_code, stdout, stderr, output_truncated, cancel_requested, pinned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.PluginID,
		rec.Utterance,
		rec.Command,
		rec.Summary,
		rec.WorkingDir,
		string(rec.State),
		formatTime(rec.ProposedAt),
		formatTime(rec.StartedAt),
		formatTime(rec.EndedAt),
		rec.ExitCode,
		rec.Stdout,
		rec.Stderr,
		boolToInt(rec.OutputTruncated),
		boolToInt(rec.CancelRequested),
		formatTime(rec.PinnedAt),
	)
	return err
}

// Records returns pinned entries first, then the rest newest first
// (limit/search optional).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.ExecutionRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit, search)
	}
	builder := strings.Builder{}
	builder.WriteString(`SELECT id, plugin, utterance, command, summary, working_dir, state, proposed_at, started_at, ended_at,
		exit_code, stdout, stderr, output_truncated, cancel_requested, pinned_at FROM executions`)
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE utterance LIKE ? OR command LIKE ? OR plugin LIKE ?")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	builder.WriteString(" ORDER BY pinned_at = '', pinned_at DESC, proposed_at DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		var state, proposed, started, ended, pinned string
		var truncated, cancelRequested int
		if err := rows.Scan(&rec.ID, &rec.PluginID, &rec.Utterance, &rec.Command, &rec.Summary, &rec.WorkingDir,
			&state, &proposed, &started, &ended, &rec.ExitCode, &rec.Stdout, &rec.Stderr, &truncated, &cancelRequested, &pinned); err != nil {
			return nil, err
		}
		rec.State = domain.ExecutionState(state)
		rec.ProposedAt = parseTime(proposed)
		rec.StartedAt = parseTime(started)
		rec.EndedAt = parseTime(ended)
		rec.OutputTruncated = truncated == 1
		rec.CancelRequested = cancelRequested == 1
		rec.PinnedAt = parseTime(pinned)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM executions")
	return err
}

// SetPinned implements ports.HistoryRepository.
func (s *SQLiteStore) SetPinned(id string, pinned bool) error {
	if s.db == nil {
		return s.fallback.SetPinned(id, pinned)
	}
	var at string
	if pinned {
		at = formatTime(s.now())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("UPDATE executions SET pinned_at = ? WHERE id = ?", at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, id)
	}
	return nil
}

// ExportJSON writes every record to a jsonl file.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

// Path returns the sqlite database path, or the jsonl path when degraded.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)
