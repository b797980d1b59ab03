package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// HistoryEntry is one queued item.
type HistoryEntry struct {
	ID          int64
	GuildID     string
	Locator     string
	Title       string
	SourceURL   string
	Duration    time.Duration
	RequestedBy string
	QueuedAt    time.Time
}

// HistoryStore records what was queued, by whom, in SQLite.
type HistoryStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// migration is one forward-only schema step.
type migration struct {
	Version int
	Name    string
	UpSQL   string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create play_history",
		UpSQL: `
		CREATE TABLE IF NOT EXISTS play_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			locator TEXT NOT NULL,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			requested_by TEXT NOT NULL,
			queued_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_play_history_guild ON play_history(guild_id, queued_at);
		`,
	},
}

// NewHistoryStore opens (or creates) the database at dbPath and applies
// pending migrations. ":memory:" works for tests.
func NewHistoryStore(dbPath string, logger zerolog.Logger) (*HistoryStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, ErrInvalidDatabasePath
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	store := &HistoryStore{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (h *HistoryStore) migrate() error {
	if _, err := h.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	var current int
	if err := h.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := h.db.Begin()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
		if _, err := tx.Exec(m.UpSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, m.Version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, m.Version, err)
		}

		h.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}

	return nil
}

// Record stores an entry. QueuedAt defaults to now.
func (h *HistoryStore) Record(ctx context.Context, entry HistoryEntry) (int64, error) {
	if h.db == nil {
		return 0, ErrDatabaseNotConnected
	}
	if entry.GuildID == "" || entry.Locator == "" {
		return 0, ErrInvalidHistoryEntry
	}
	if entry.QueuedAt.IsZero() {
		entry.QueuedAt = time.Now()
	}

	result, err := h.db.ExecContext(ctx, `
	INSERT INTO play_history (guild_id, locator, title, source_url, duration_ms, requested_by, queued_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.GuildID, entry.Locator, entry.Title, entry.SourceURL,
		entry.Duration.Milliseconds(), entry.RequestedBy, entry.QueuedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record history: %w", err)
	}

	return result.LastInsertId()
}

// Recent returns up to limit entries for a guild, newest first.
func (h *HistoryStore) Recent(ctx context.Context, guildID string, limit int) ([]HistoryEntry, error) {
	if h.db == nil {
		return nil, ErrDatabaseNotConnected
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, guild_id, locator, title, source_url, duration_ms, requested_by, queued_at
	FROM play_history
	WHERE guild_id = ?
	ORDER BY queued_at DESC, id DESC
	LIMIT ?
	`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry      HistoryEntry
			durationMS int64
		)
		if err := rows.Scan(&entry.ID, &entry.GuildID, &entry.Locator, &entry.Title,
			&entry.SourceURL, &durationMS, &entry.RequestedBy, &entry.QueuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Prune deletes entries queued before cutoff and returns how many went.
func (h *HistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if h.db == nil {
		return 0, ErrDatabaseNotConnected
	}

	result, err := h.db.ExecContext(ctx, "DELETE FROM play_history WHERE queued_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
