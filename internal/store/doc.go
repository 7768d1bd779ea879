// Package store persists the node configuration as flat key/value pairs.
//
// The setup pages never talk to a backend directly. They go through
// configuration sections (package defaults) which only need two operations:
// read a set of keys and write a set of keys all at once. Three backends
// implement Store:
//
//   - FileStore keeps the keys in a YAML file and replaces it atomically
//     (write to a temporary file, then rename).
//   - SQLiteStore keeps the keys in a SQLite table and writes every key of a
//     call inside one SQL transaction.
//   - MemoryStore keeps the keys in a map, for tests and dry runs.
//
// Every backend failure is returned as a *Error so the page layer can tell a
// broken store apart from rejected input.
package store
