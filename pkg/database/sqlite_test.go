package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	store, err := NewHistoryStore(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewHistoryStoreValidation(t *testing.T) {
	store, err := NewHistoryStore("  ", zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidDatabasePath)
	assert.Nil(t, store)
}

func TestHistoryRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		_, err := store.Record(ctx, HistoryEntry{
			GuildID:     "g1",
			Locator:     "https://example.com/" + title,
			Title:       title,
			SourceURL:   "https://example.com/" + title,
			Duration:    time.Duration(i+1) * time.Minute,
			RequestedBy: "user",
			QueuedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := store.Record(ctx, HistoryEntry{GuildID: "g2", Locator: "https://example.com/other", Title: "other"})
	require.NoError(t, err)

	entries, err := store.Recent(ctx, "g1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Title)
	assert.Equal(t, "second", entries[1].Title)
	assert.Equal(t, 3*time.Minute, entries[0].Duration)
	assert.True(t, entries[0].QueuedAt.Equal(base.Add(2*time.Minute)))
}

func TestHistoryRecordRejectsIncompleteEntry(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Record(context.Background(), HistoryEntry{Title: "no guild"})
	assert.ErrorIs(t, err, ErrInvalidHistoryEntry)
}

func TestHistoryPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Record(ctx, HistoryEntry{GuildID: "g", Locator: "old", QueuedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = store.Record(ctx, HistoryEntry{GuildID: "g", Locator: "new", QueuedAt: now})
	require.NoError(t, err)

	pruned, err := store.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	entries, err := store.Recent(ctx, "g", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Locator)
}

func TestHistoryMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewHistoryStore(path, zerolog.Nop())
	require.NoError(t, err)
	_, err = store.Record(context.Background(), HistoryEntry{GuildID: "g", Locator: "kept"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewHistoryStore(path, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), "g", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
