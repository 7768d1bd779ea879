package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ovirt/node-setup/internal/logging"
)

const fileHeader = `# oVirt Node configuration
# Managed by node-setup. Keys are read by the node services at boot.
#
`

// FileStore keeps values in a YAML file.
type FileStore struct {
	path string

	mu     sync.Mutex
	closed bool
}

// OpenFile returns a store backed by the YAML file at path. The file is
// created on the first write; its directory is created now.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, newError("open", "file", nil, fmt.Errorf("path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, newError("open", "file", nil, fmt.Errorf("failed to create store directory: %w", err))
	}
	return &FileStore{path: path}, nil
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Name implements Store.
func (s *FileStore) Name() string { return "file" }

// Retrieve implements Store.
func (s *FileStore) Retrieve(keys []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, newError("retrieve", s.Name(), keys, ErrClosed)
	}
	all, err := s.load()
	if err != nil {
		return nil, newError("retrieve", s.Name(), keys, err)
	}

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Write implements Store. The file is rewritten through a temporary file
// and a rename, so readers see either the old or the new content.
func (s *FileStore) Write(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError("write", s.Name(), keysOf(values), ErrClosed)
	}

	all, err := s.load()
	if err != nil {
		return newError("write", s.Name(), keysOf(values), err)
	}
	for k, v := range values {
		all[k] = v
	}

	data, err := yaml.Marshal(all)
	if err != nil {
		return newError("write", s.Name(), keysOf(values), fmt.Errorf("failed to marshal values: %w", err))
	}
	data = append([]byte(fileHeader), data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return newError("write", s.Name(), keysOf(values), fmt.Errorf("failed to write temporary file: %w", err))
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return newError("write", s.Name(), keysOf(values), fmt.Errorf("failed to replace %s: %w", s.path, err))
	}

	logging.LogStoreWrite(s.Name(), values)
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	all := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return all, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	if all == nil {
		all = make(map[string]string)
	}
	return all, nil
}
