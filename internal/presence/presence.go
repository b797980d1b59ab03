package presence

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	kindDefault = "default"
	kindMusic   = "music"
)

// StatusUpdater is the part of *discordgo.Session presence needs.
type StatusUpdater interface {
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
}

// NowPlayingFunc reports the track currently playing, if any.
type NowPlayingFunc func() (string, bool)

// PresenceManager manages the bot's presence
type PresenceManager struct {
	session    StatusUpdater
	guildCount func() int
	prefix     string
	logger     zerolog.Logger

	mu      sync.RWMutex
	current string
	title   string
}

// NewPresenceManager creates a presence manager. guildCount may be nil.
func NewPresenceManager(session StatusUpdater, prefix string, guildCount func() int, logger zerolog.Logger) *PresenceManager {
	if guildCount == nil {
		guildCount = func() int { return 0 }
	}
	return &PresenceManager{
		session:    session,
		guildCount: guildCount,
		prefix:     prefix,
		logger:     logger.With().Str("component", "presence").Logger(),
	}
}

// UpdateDefaultPresence shows how many servers the bot is in
func (pm *PresenceManager) UpdateDefaultPresence() {
	guilds := pm.guildCount()

	presence := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "for " + pm.prefix + "help",
				Type:  discordgo.ActivityTypeWatching,
				State: "in " + strconv.Itoa(guilds) + " servers",
			},
		},
	}

	if err := pm.session.UpdateStatusComplex(presence); err != nil {
		pm.logger.Warn().Err(err).Msg("Failed to update bot presence")
	}

	pm.mu.Lock()
	pm.current = kindDefault
	pm.title = ""
	pm.mu.Unlock()
}

// UpdateMusicPresence shows the track that is playing
func (pm *PresenceManager) UpdateMusicPresence(songTitle string) {
	presence := discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  songTitle,
				Type:  discordgo.ActivityTypeListening,
				State: songTitle,
			},
		},
	}

	if err := pm.session.UpdateStatusComplex(presence); err != nil {
		pm.logger.Warn().Err(err).Str("title", songTitle).Msg("Failed to update music presence")
	}

	pm.mu.Lock()
	pm.current = kindMusic
	pm.title = songTitle
	pm.mu.Unlock()
}

// ClearMusicPresence clears the music presence and returns to default
func (pm *PresenceManager) ClearMusicPresence() {
	pm.UpdateDefaultPresence()
}

// GetCurrentPresence returns the current presence type and the title shown, if any
func (pm *PresenceManager) GetCurrentPresence() (string, string) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.current, pm.title
}

// Refresh brings the presence in line with what is playing. It runs from the
// scheduler; presence can drift when the gateway reconnects.
func (pm *PresenceManager) Refresh(nowPlaying NowPlayingFunc) error {
	if title, playing := nowPlaying(); playing {
		pm.UpdateMusicPresence(title)
		return nil
	}
	pm.UpdateDefaultPresence()
	return nil
}
