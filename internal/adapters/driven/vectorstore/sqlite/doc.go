// Package sqlite provides an embedded vector store on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Vectors are stored as little-endian float32 blobs and searched exactly
// in Go, so results do not depend on an index.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.dquery/data/vectors.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes are serialised by a mutex on top of
// SQLite's WAL-mode locking.
package sqlite
