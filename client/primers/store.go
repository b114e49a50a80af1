package primers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"primerid/api/models/jobs"

	yaml "gopkg.in/yaml.v2"
)

const (
	UseSavedKey = "primer-id-use-saved-primers"
	SavedKey    = "primer-id-saved-primers"
)

// Store is a keyed primer cache kept on the user's machine.
type Store interface {
	Get(key string) ([]jobs.Primer, bool, error)
	Put(key string, primers []jobs.Primer) error
	Clear(key string) error
}

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]jobs.Primer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]jobs.Primer{}}
}

func (m *MemoryStore) Get(key string) ([]jobs.Primer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return append([]jobs.Primer(nil), v...), ok, nil
}

func (m *MemoryStore) Put(key string, primers []jobs.Primer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]jobs.Primer{}, primers...)
	return nil
}

func (m *MemoryStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// FileStore persists every key in one YAML document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultStorePath is under the user's config directory.
func DefaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "primerid", "primers.yml"), nil
}

func (f *FileStore) Get(key string) ([]jobs.Primer, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := all[key]
	return v, ok, nil
}

func (f *FileStore) Put(key string, primers []jobs.Primer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return err
	}
	if primers == nil {
		primers = []jobs.Primer{}
	}
	all[key] = primers
	return f.save(all)
}

func (f *FileStore) Clear(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return err
	}
	delete(all, key)
	return f.save(all)
}

func (f *FileStore) load() (map[string][]jobs.Primer, error) {
	all := map[string][]jobs.Primer{}

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return all, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, &all); err != nil {
		return nil, fmt.Errorf("read primer store %s: %w", f.path, err)
	}
	return all, nil
}

func (f *FileStore) save(all map[string][]jobs.Primer) error {
	b, err := yaml.Marshal(all)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
