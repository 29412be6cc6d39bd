// Package driver defines the storage capability used to persist state
// snapshots, plus the implementations shipped with go-persistfile.
//
// A Driver only knows keys and bytes. It never interprets the payload:
//
//	Write(key, data)  overwrite the full content stored under key
//	Read(key)         return the content, or an error wrapping ErrNotFound
//	Exists(key)       report whether key holds content
//
// Implementations:
//   - FileDriver   keys are file paths; whole-file synchronous read/write.
//   - MemoryDriver keys live in a process-lifetime map; for tests and embedding.
//   - SQLiteDriver keys are rows in a single table of a SQLite database.
//
// Writes are not atomic. A crash mid-write may leave a truncated file behind.
package driver
