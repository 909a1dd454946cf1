// Package client is the client-side half of the session flow: it signs in
// against the identity provider, keeps the session locally and talks to
// the server API.
package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"taskboard/models"
)

// Storage holds at most one session.
type Storage interface {
	Load() (*models.Session, error)
	Save(s *models.Session) error
	Clear() error
}

// MemoryStorage keeps the session for the lifetime of the process.
type MemoryStorage struct {
	mu      sync.Mutex
	session *models.Session
}

func (m *MemoryStorage) Load() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStorage) Save(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.session = nil
		return nil
	}
	c := *s
	m.session = &c
	return nil
}

func (m *MemoryStorage) Clear() error {
	return m.Save(nil)
}

// FileStorage keeps the session in a YAML file readable only by its owner.
type FileStorage struct {
	Path string
}

// DefaultSessionPath is taskboard/session.yaml under the user config dir.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "taskboard", "session.yaml"), nil
}

func (f FileStorage) Load() (*models.Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s models.Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", f.Path, err)
	}
	if !s.Valid() {
		return nil, nil
	}
	return &s, nil
}

func (f FileStorage) Save(s *models.Session) error {
	if s == nil {
		return f.Clear()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f FileStorage) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
