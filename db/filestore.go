package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"session-gate/model"
)

type sessionFile struct {
	Sessions []model.UserSession `yaml:"sessions"`
}

// FileRecords keeps session records in memory and writes them to a YAML
// file on Persist.
type FileRecords struct {
	path string
	mu   sync.Mutex
	recs []model.UserSession

	// persistMu serializes snapshot, write and rename so the newest
	// snapshot is always the one left on disk.
	persistMu sync.Mutex
}

// OpenFileRecords loads path if it exists.
func OpenFileRecords(path string) (*FileRecords, error) {
	f := &FileRecords{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, err
	}
	var doc sessionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	f.recs = doc.Sessions
	return f, nil
}

func (f *FileRecords) Append(_ context.Context, rec model.UserSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recs {
		if r.Token == rec.Token {
			return fmt.Errorf("session %s already recorded", rec.Token)
		}
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *FileRecords) All(context.Context) ([]model.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.UserSession, len(f.recs))
	copy(out, f.recs)
	return out, nil
}

func (f *FileRecords) Delete(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.recs {
		if r.Token == token {
			f.recs = append(f.recs[:i], f.recs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Persist replaces the file atomically.
func (f *FileRecords) Persist(context.Context) error {
	f.persistMu.Lock()
	defer f.persistMu.Unlock()

	f.mu.Lock()
	data, err := yaml.Marshal(sessionFile{Sessions: f.recs})
	f.mu.Unlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
