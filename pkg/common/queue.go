package common

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/pipeline"
	"github.com/rs/zerolog"
)

// QueueItem represents a single item in the music queue. It owns its source:
// whoever removes the item from the queue closes the source.
type QueueItem struct {
	Locator     string
	Source      *pipeline.Source
	Title       string
	SourceURL   string
	Thumbnail   string
	Duration    time.Duration
	RequestedBy string
	AddedAt     time.Time
	StartedAt   time.Time
}

// NewQueueItem builds a queue item from an opened source.
func NewQueueItem(src *pipeline.Source, requestedBy string) *QueueItem {
	item := &QueueItem{
		Locator:     src.Locator(),
		Source:      src,
		Title:       "Unknown Title",
		SourceURL:   src.Locator(),
		RequestedBy: requestedBy,
		AddedAt:     time.Now(),
	}

	if md, err := src.Metadata(); err == nil {
		item.applyMetadata(md)
	}
	return item
}

// WithMetadata returns a copy of the item describing md instead of the
// metadata known at enqueue. A nil md returns the item unchanged.
func (qi *QueueItem) WithMetadata(md *pipeline.Metadata) *QueueItem {
	if md == nil {
		return qi
	}
	view := *qi
	view.applyMetadata(md)
	return &view
}

func (qi *QueueItem) applyMetadata(md *pipeline.Metadata) {
	qi.Title = md.DisplayTitle()
	qi.Thumbnail = md.Thumbnail
	qi.Duration = md.DurationOrZero()
	if md.SourceURL != "" {
		qi.SourceURL = md.SourceURL
	}
}

// Close releases the item's source.
func (qi *QueueItem) Close() {
	if qi.Source != nil {
		_ = qi.Source.Close()
	}
}

// MusicQueue manages the queue for a specific guild
type MusicQueue struct {
	guildID    string
	items      []*QueueItem
	current    *QueueItem
	isPlaying  bool
	wasSkipped bool
	lastActive time.Time
	mu         sync.RWMutex
	voiceConn  *discordgo.VoiceConnection
	player     *Player
	logger     zerolog.Logger
}

// NewMusicQueue creates a new music queue for a guild
func NewMusicQueue(guildID string, logger zerolog.Logger) *MusicQueue {
	return &MusicQueue{
		guildID:    guildID,
		items:      make([]*QueueItem, 0),
		lastActive: time.Now(),
		logger:     logger.With().Str("component", "queue").Str("guild_id", guildID).Logger(),
	}
}

// GuildID returns the guild this queue belongs to.
func (mq *MusicQueue) GuildID() string {
	return mq.guildID
}

// Add appends an item to the queue and returns its position.
func (mq *MusicQueue) Add(item *QueueItem) int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	mq.items = append(mq.items, item)
	mq.lastActive = time.Now()
	mq.logger.Info().
		Str("title", item.Title).
		Dur("duration", item.Duration).
		Int("position", len(mq.items)).
		Msg("Added to queue")
	return len(mq.items)
}

// Next pops the next item and makes it current. The previous current item
// is closed.
func (mq *MusicQueue) Next() *QueueItem {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.current != nil {
		mq.current.Close()
		mq.current = nil
	}
	if len(mq.items) == 0 {
		return nil
	}

	item := mq.items[0]
	mq.items = mq.items[1:]
	item.StartedAt = time.Now()
	mq.current = item
	mq.lastActive = time.Now()
	return item
}

// TryStartPlaying marks the queue as playing and reports whether the caller
// is the one who should start the playback loop.
func (mq *MusicQueue) TryStartPlaying() bool {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.isPlaying {
		return false
	}
	mq.isPlaying = true
	mq.lastActive = time.Now()
	return true
}

// Advance is Next for the playback loop driving player. When the queue is
// empty it marks the queue as not playing. A loop whose player was replaced
// or removed gets nil and leaves the queue alone.
func (mq *MusicQueue) Advance(player *Player) *QueueItem {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.player != player {
		return nil
	}
	if mq.current != nil {
		mq.current.Close()
		mq.current = nil
	}
	mq.wasSkipped = false
	mq.lastActive = time.Now()

	if len(mq.items) == 0 {
		mq.isPlaying = false
		return nil
	}

	item := mq.items[0]
	mq.items = mq.items[1:]
	item.StartedAt = time.Now()
	mq.current = item
	return item
}

// Shuffle reorders the waiting items in place.
func (mq *MusicQueue) Shuffle(r *rand.Rand) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	r.Shuffle(len(mq.items), func(i, j int) {
		mq.items[i], mq.items[j] = mq.items[j], mq.items[i]
	})
}

// Current returns the currently playing item
func (mq *MusicQueue) Current() *QueueItem {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.current
}

// List returns all items waiting in the queue
func (mq *MusicQueue) List() []*QueueItem {
	mq.mu.RLock()
	defer mq.mu.RUnlock()

	result := make([]*QueueItem, len(mq.items))
	copy(result, mq.items)
	return result
}

// Size returns the number of items waiting in the queue
func (mq *MusicQueue) Size() int {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return len(mq.items)
}

// Clear drops every waiting item and closes their sources. The current item
// is left to the player.
func (mq *MusicQueue) Clear() int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	cleared := len(mq.items)
	for _, item := range mq.items {
		item.Close()
	}
	mq.items = make([]*QueueItem, 0)
	return cleared
}

// Remove removes the waiting item at index and closes its source.
func (mq *MusicQueue) Remove(index int) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if index < 0 || index >= len(mq.items) {
		return fmt.Errorf("invalid index: %d", index)
	}

	removed := mq.items[index]
	mq.items = append(mq.items[:index], mq.items[index+1:]...)
	removed.Close()
	mq.logger.Info().Str("title", removed.Title).Msg("Removed from queue")
	return nil
}

// SetPlaying sets the playing state
func (mq *MusicQueue) SetPlaying(playing bool) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.isPlaying = playing
	mq.lastActive = time.Now()
}

// IsPlaying returns whether something is currently playing
func (mq *MusicQueue) IsPlaying() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.isPlaying
}

// SetVoiceConnection sets the voice connection for this queue
func (mq *MusicQueue) SetVoiceConnection(vc *discordgo.VoiceConnection) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.voiceConn = vc
	mq.lastActive = time.Now()
}

// GetVoiceConnection returns the voice connection
func (mq *MusicQueue) GetVoiceConnection() *discordgo.VoiceConnection {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.voiceConn
}

// SetPlayer sets the player for this queue
func (mq *MusicQueue) SetPlayer(player *Player) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.player = player
}

// GetPlayer returns the player
func (mq *MusicQueue) GetPlayer() *Player {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.player
}

// SetSkipped sets the skipped flag
func (mq *MusicQueue) SetSkipped(skipped bool) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.wasSkipped = skipped
}

// WasSkipped returns whether the current song was skipped
func (mq *MusicQueue) WasSkipped() bool {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	return mq.wasSkipped
}

// IdleFor returns how long the queue has been idle, or zero while playing.
func (mq *MusicQueue) IdleFor(now time.Time) time.Duration {
	mq.mu.RLock()
	defer mq.mu.RUnlock()
	if mq.isPlaying {
		return 0
	}
	return now.Sub(mq.lastActive)
}

// StopAndCleanup stops playback, closes every source and leaves voice.
func (mq *MusicQueue) StopAndCleanup() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.player != nil {
		mq.player.Stop()
		mq.player = nil
	}

	for _, item := range mq.items {
		item.Close()
	}
	mq.items = make([]*QueueItem, 0)

	if mq.current != nil {
		mq.current.Close()
		mq.current = nil
	}

	if mq.voiceConn != nil {
		if err := mq.voiceConn.Disconnect(); err != nil {
			mq.logger.Warn().Err(err).Msg("Voice disconnect failed")
		}
		mq.voiceConn = nil
	}

	mq.isPlaying = false
}
