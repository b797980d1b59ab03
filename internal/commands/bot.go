package commands

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
	"github.com/latoulicious/Cantdrown/pkg/cron"
	"github.com/latoulicious/Cantdrown/pkg/database"
	"github.com/latoulicious/Cantdrown/pkg/pipeline"
	"github.com/rs/zerolog"
)

// Responder is the part of *discordgo.Session commands reply through.
type Responder interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Presence is told which track is playing.
type Presence interface {
	UpdateMusicPresence(title string)
	ClearMusicPresence()
}

// Options configures a Bot. Loader is required; the rest may be nil.
type Options struct {
	Loader    *pipeline.Loader
	History   *database.HistoryStore
	Scheduler *cron.Scheduler
	Presence  Presence
	Logger    zerolog.Logger
	OwnerID   string
	Prefix    string
}

// Bot holds the per-process command state: one queue per guild and the
// shared loader every creation request goes through.
type Bot struct {
	loader    *pipeline.Loader
	history   *database.HistoryStore
	scheduler *cron.Scheduler
	presence  Presence
	logger    zerolog.Logger
	ownerID   string
	prefix    string
	startTime time.Time

	openTimeout         time.Duration
	seekTimeout         time.Duration
	maxPlaylistEntries  int
	playlistConcurrency int

	joinVoice func(s *discordgo.Session, userID, guildID string) (*discordgo.VoiceConnection, error)

	queueMutex sync.RWMutex
	queues     map[string]*common.MusicQueue

	nowPlayingMutex sync.RWMutex
	nowPlaying      string
}

// NewBot creates a bot.
func NewBot(opts Options) *Bot {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "!"
	}

	b := &Bot{
		loader:              opts.Loader,
		history:             opts.History,
		scheduler:           opts.Scheduler,
		presence:            opts.Presence,
		logger:              opts.Logger.With().Str("component", "commands").Logger(),
		ownerID:             opts.OwnerID,
		prefix:              prefix,
		startTime:           time.Now(),
		openTimeout:         2 * time.Minute,
		seekTimeout:         30 * time.Second,
		maxPlaylistEntries:  50,
		playlistConcurrency: 3,
		queues:              make(map[string]*common.MusicQueue),
	}
	b.joinVoice = func(s *discordgo.Session, userID, guildID string) (*discordgo.VoiceConnection, error) {
		return common.FindAndJoinUserVoiceChannel(s, userID, guildID, b.logger)
	}
	return b
}

// Prefix returns the command prefix.
func (b *Bot) Prefix() string {
	return b.prefix
}

// OwnerID returns the configured bot owner, or "".
func (b *Bot) OwnerID() string {
	return b.ownerID
}

// getOrCreateQueue gets or creates a queue for a guild
func (b *Bot) getOrCreateQueue(guildID string) *common.MusicQueue {
	b.queueMutex.Lock()
	defer b.queueMutex.Unlock()

	if queue, exists := b.queues[guildID]; exists {
		return queue
	}

	queue := common.NewMusicQueue(guildID, b.logger)
	b.queues[guildID] = queue
	return queue
}

// getQueue gets a queue for a guild
func (b *Bot) getQueue(guildID string) *common.MusicQueue {
	b.queueMutex.RLock()
	defer b.queueMutex.RUnlock()
	return b.queues[guildID]
}

func (b *Bot) allQueues() []*common.MusicQueue {
	b.queueMutex.RLock()
	defer b.queueMutex.RUnlock()

	queues := make([]*common.MusicQueue, 0, len(b.queues))
	for _, queue := range b.queues {
		queues = append(queues, queue)
	}
	return queues
}

// ActivePlayers returns how many guilds are playing right now.
func (b *Bot) ActivePlayers() int {
	active := 0
	for _, queue := range b.allQueues() {
		if queue.IsPlaying() {
			active++
		}
	}
	return active
}

// NowPlaying returns the title of the most recently started track.
func (b *Bot) NowPlaying() (string, bool) {
	b.nowPlayingMutex.RLock()
	defer b.nowPlayingMutex.RUnlock()
	return b.nowPlaying, b.nowPlaying != ""
}

func (b *Bot) trackChanged(title string) {
	b.nowPlayingMutex.Lock()
	b.nowPlaying = title
	b.nowPlayingMutex.Unlock()

	if b.presence == nil {
		return
	}
	if title == "" {
		b.presence.ClearMusicPresence()
		return
	}
	b.presence.UpdateMusicPresence(title)
}

// SweepIdle stops and disconnects every queue idle for longer than maxIdle.
func (b *Bot) SweepIdle(maxIdle time.Duration) int {
	now := time.Now()
	swept := 0
	for _, queue := range b.allQueues() {
		if queue.GetVoiceConnection() == nil || queue.IdleFor(now) <= maxIdle {
			continue
		}
		b.logger.Info().Str("guild_id", queue.GuildID()).Msg("Leaving idle voice channel")
		queue.StopAndCleanup()
		swept++
	}
	return swept
}

// Shutdown stops every queue and releases every source.
func (b *Bot) Shutdown() {
	for _, queue := range b.allQueues() {
		queue.StopAndCleanup()
	}
}

func (b *Bot) recordHistory(guildID string, item *common.QueueItem) {
	if b.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := b.history.Record(ctx, database.HistoryEntry{
		GuildID:     guildID,
		Locator:     item.Locator,
		Title:       item.Title,
		SourceURL:   item.SourceURL,
		Duration:    item.Duration,
		RequestedBy: item.RequestedBy,
		QueuedAt:    item.AddedAt,
	})
	if err != nil {
		b.logger.Warn().Err(err).Str("guild_id", guildID).Msg("Failed to record history")
	}
}

// sendEmbedMessage sends a simple embed
func (b *Bot) sendEmbedMessage(s Responder, channelID, title, description string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Error sending message")
	}
}

func (b *Bot) sendEmbed(s Responder, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Error sending message")
	}
}

func (b *Bot) send(s Responder, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		b.logger.Warn().Err(err).Str("channel_id", channelID).Msg("Error sending message")
	}
}

const (
	colorSuccess = 0x00ff00
	colorError   = 0xff0000
	colorWarn    = 0xffa500
	colorIdle    = 0x808080
	colorInfo    = 0x7289DA
)
