// Package kv is a small persistent key-value store. Reads are served from
// memory; every write is flushed to disk before it returns.
package kv

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"familyhub/internal/config"
	appLog "familyhub/internal/log"
)

// Store is the persistence surface the hub needs. Absence of a key is not
// an error.
type Store interface {
	Get(key string) (string, bool)
	Set(values map[string]string) error
	Delete(keys ...string) error
}

// FileStore keeps all keys in one YAML file.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// Open loads path if it exists. A missing file yields an empty store; the
// file is created on the first write.
func Open(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("kv: path is empty")
	}
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	appLog.Debug("kv store loaded", "path", path, "keys", len(s.values))
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set writes all values in one flush. On a write failure the in-memory
// state is left unchanged.
func (s *FileStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneMap(s.values)
	for k, v := range values {
		next[k] = v
	}
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneMap(s.values)
	for _, k := range keys {
		delete(next, k)
	}
	if err := s.flush(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStore) flush(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(s.path, data, ".familyhub-state-*.tmp")
}

// MemStore is an in-memory Store, used by tests and by -once runs that
// should not touch disk.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemStore) Set(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *MemStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
