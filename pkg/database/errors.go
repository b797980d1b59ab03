package database

import "errors"

// Database configuration errors
var (
	ErrInvalidDatabasePath = errors.New("invalid database path")
)

// Database operation errors
var (
	ErrDatabaseNotConnected = errors.New("database not connected")
	ErrMigrationFailed      = errors.New("migration failed")
)

// Repository errors
var (
	ErrInvalidHistoryEntry = errors.New("invalid history entry")
)
