package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is a JSON-backed configuration store with dotted-key access
// ("server.port" navigates nested objects). Sets stage values in memory;
// Save persists the whole document in one write.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// NewFileStore loads the store at path, seeding and persisting defaults
// when the file does not exist yet.
func NewFileStore(path string, defaults map[string]any) (*FileStore, error) {
	s := &FileStore{path: path, values: map[string]any{}}
	for k, v := range defaults {
		s.values[k] = v
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	loaded := map[string]any{}
	if err := json.Unmarshal(raw, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	for k, v := range loaded {
		s.values[k] = v
	}
	return s, nil
}

// Get returns the value at a dotted key path, or nil when absent.
func (s *FileStore) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value any = s.values
	for _, part := range strings.Split(key, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return value
}

// Set stages a value at a dotted key path, creating intermediate objects
// as needed. It does not persist; call Save.
func (s *FileStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := strings.Split(key, ".")
	obj := s.values
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			obj[part] = next
		}
		obj = next
	}
	obj[parts[len(parts)-1]] = value
}

// All returns a shallow copy of the top-level document.
func (s *FileStore) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Save persists the document as indented JSON, creating the containing
// directory if needed.
func (s *FileStore) Save() error {
	s.mu.RLock()
	raw, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
