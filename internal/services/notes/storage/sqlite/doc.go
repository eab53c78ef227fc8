// Package sqlite provides the SQLite-backed notes store.
//
// Timestamps are stored as UTC Unix milliseconds. Unique constraint
// failures map to storage.ErrAlreadyExists and missing rows to
// storage.ErrNotFound so service code never inspects driver errors.
package sqlite
