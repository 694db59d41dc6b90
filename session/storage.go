package session

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/goliatone/go-errors"
)

// ErrNoRecord is returned by Storage.Load when nothing was saved under
// the namespace
var ErrNoRecord = errors.New("session record not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// Storage persists one opaque record per namespace
type Storage interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
}

// MemoryStorage keeps records for the life of the process
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: map[string][]byte{}}
}

func (s *MemoryStorage) Load(_ context.Context, namespace string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.records[namespace]
	if !ok {
		return nil, ErrNoRecord
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStorage) Save(_ context.Context, namespace string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[namespace] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, namespace)
	return nil
}

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStorage writes each namespace to <dir>/<namespace>.json
type FileStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileStorage creates dir when missing
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session directory")
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(namespace string) (string, error) {
	if !namespacePattern.MatchString(namespace) {
		return "", errors.New("invalid session namespace", errors.CategoryBadInput).
			WithMetadata(map[string]any{"namespace": namespace})
	}
	return filepath.Join(s.dir, namespace+".json"), nil
}

func (s *FileStorage) Load(_ context.Context, namespace string) ([]byte, error) {
	p, err := s.path(namespace)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoRecord
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read session")
	}
	return raw, nil
}

// Save replaces the file through a rename so readers never see a
// partial record
func (s *FileStorage) Save(_ context.Context, namespace string, data []byte) error {
	p, err := s.path(namespace)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, namespace+".*.tmp")
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write session")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.CategoryInternal, "failed to write session")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.CategoryInternal, "failed to write session")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write session")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write session")
	}
	return nil
}

func (s *FileStorage) Delete(_ context.Context, namespace string) error {
	p, err := s.path(namespace)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}
	return nil
}
