package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/deusflow/logistics-alert/internal/logger"
)

// document is the on-disk shape: {"news": [...]}.
type document struct {
	News []Record `json:"news"`
}

// rawDocument decodes entries one by one so a bad record does not discard
// the rest of the file.
type rawDocument struct {
	News []json.RawMessage `json:"news"`
}

// FileBackend stores records in a single JSON file.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (f *FileBackend) String() string {
	return f.path
}

// Load reads the file. A missing or empty file yields no records.
func (f *FileBackend) Load() ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil // Empty file
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}

	records := make([]Record, 0, len(doc.News))
	for i, raw := range doc.News {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			logger.Warn("skipping malformed history record", "file", f.path, "index", i, "error", err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// Save writes all records to a temp file in the same directory and renames
// it over the target, so readers see either the old or the new content.
func (f *FileBackend) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{News: records}); err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod history file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
