package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/pkg/filesystem"
	"github.com/doeshing/dexter/internal/pkg/redact"
	"github.com/doeshing/dexter/internal/ports"
)

// FileStore appends execution records to a jsonl file.
type FileStore struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Save implements ports.HistoryRepository.
func (f *FileStore) Save(record domain.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(sanitize(record))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Clear removes the history file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Records loads pinned entries first, then the rest newest first (best-effort:
// unreadable lines are skipped).
func (f *FileStore) Records(limit int, search string) ([]domain.ExecutionRecord, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	var records []domain.ExecutionRecord
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		var rec domain.ExecutionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if search != "" && !matches(rec, search) {
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Pinned() != b.Pinned() {
			return a.Pinned()
		}
		if !a.PinnedAt.Equal(b.PinnedAt) {
			return a.PinnedAt.After(b.PinnedAt)
		}
		return a.ProposedAt.After(b.ProposedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SetPinned rewrites the file with the record's pin updated. Lines that do
// not decode are kept as they are.
func (f *FileStore) SetPinned(id string, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	var at time.Time
	if pinned {
		at = f.now().UTC()
	}
	found := false
	var out bytes.Buffer
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec domain.ExecutionRecord
		if json.Unmarshal(line, &rec) == nil && rec.ID == id {
			found = true
			rec.PinnedAt = at
			if line, err = json.Marshal(rec); err != nil {
				return err
			}
		}
		out.Write(line)
		out.WriteByte('\n')
	}
	if !found {
		return fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, id)
	}
	return filesystem.WriteFileAtomic(f.path, out.Bytes(), domain.SecureFilePermissions)
}

// ExportJSON writes every record to dest as jsonl.
func (f *FileStore) ExportJSON(dest string) error {
	records, err := f.Records(0, "")
	if err != nil {
		return err
	}
	return writeJSONL(dest, records)
}

func matches(rec domain.ExecutionRecord, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(rec.Utterance), needle) ||
		strings.Contains(strings.ToLower(rec.Command), needle) ||
		strings.Contains(strings.ToLower(rec.PluginID), needle)
}

// sanitize masks secrets before a record leaves the process.
func sanitize(rec domain.ExecutionRecord) domain.ExecutionRecord {
	rec.Utterance = redact.String(rec.Utterance)
	rec.Command = redact.String(rec.Command)
	rec.Summary = redact.String(rec.Summary)
	rec.Stdout = redact.String(rec.Stdout)
	rec.Stderr = redact.String(rec.Stderr)
	return rec
}

func writeJSONL(dest string, records []domain.ExecutionRecord) error {
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.HistoryRepository = (*FileStore)(nil)
