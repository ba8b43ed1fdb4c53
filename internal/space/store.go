package space

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

const storeVersion = 1

type storeFile struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Spaces  []Record  `json:"spaces"`
}

// Store persists registry records so a restarted daemon can pick up spaces
// left behind by a previous run.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the file the store writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved records. A missing file yields no records.
func (s *Store) Load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if f.Version != storeVersion {
		return nil, fmt.Errorf("parse %s: unsupported version %d", s.path, f.Version)
	}

	out := make([]Record, 0, len(f.Spaces))
	for _, rec := range f.Spaces {
		if rec.Window == 0 || rec.OriginalDesktop < 0 || rec.CreatedDesktop < 0 {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Save writes records atomically.
func (s *Store) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(storeFile{
		Version: storeVersion,
		SavedAt: s.now().UTC(),
		Spaces:  records,
	}, jsontext.WithIndent("  "), json.Deterministic(true))
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".spaces-registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
