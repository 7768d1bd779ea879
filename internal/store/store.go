package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Store is a persistent key/value store.
type Store interface {
	// Retrieve returns the persisted values of keys. Keys that were never
	// written are absent from the result.
	Retrieve(keys []string) (map[string]string, error)

	// Write persists every value or none of them.
	Write(values map[string]string) error

	// Name identifies the backend in logs.
	Name() string

	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Error reports a failed store operation.
type Error struct {
	Op      string
	Backend string
	Keys    []string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s store %s", e.Backend, e.Op)
	if len(e.Keys) > 0 {
		msg += " " + strings.Join(e.Keys, ",")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, backend string, keys []string, err error) *Error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return &Error{Op: op, Backend: backend, Keys: sorted, Err: err}
}

// IsStoreError checks if an error is a store error.
func IsStoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

func keysOf(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open returns the store for backend at location.
func Open(backend, location string) (Store, error) {
	switch backend {
	case BackendFile, "yaml", "":
		return OpenFile(location)
	case BackendSQLite:
		return OpenSQLite(location)
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, newError("open", backend, nil, fmt.Errorf("unknown store backend %q", backend))
	}
}
