package common

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// UserVoiceChannel returns the voice channel the user is in, or "".
func UserVoiceChannel(guild *discordgo.Guild, userID string) string {
	if guild == nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// FindAndJoinUserVoiceChannel finds the user's voice channel and joins it with retry logic
func FindAndJoinUserVoiceChannel(s *discordgo.Session, userID, guildID string, logger zerolog.Logger) (*discordgo.VoiceConnection, error) {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("could not find guild: %w", err)
	}

	userChannelID := UserVoiceChannel(guild, userID)
	if userChannelID == "" {
		return nil, fmt.Errorf("you must be in a voice channel to play music")
	}

	channelName := "Unknown"
	if channel, err := s.State.Channel(userChannelID); err == nil {
		channelName = channel.Name
	}

	logger = logger.With().Str("guild_id", guildID).Str("channel_id", userChannelID).Logger()
	logger.Info().Str("channel", channelName).Msg("Joining voice channel")

	var vc *discordgo.VoiceConnection
	maxRetries := 3

	for i := 0; i < maxRetries; i++ {
		vc, err = s.ChannelVoiceJoin(guildID, userChannelID, false, true)
		if err == nil {
			break
		}

		logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxRetries).Msg("Voice join attempt failed")
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel after %d attempts: %w", maxRetries, err)
	}

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			_ = vc.Disconnect()
			return nil, fmt.Errorf("voice connection timed out")
		case <-ticker.C:
			vc.RLock()
			ready := vc.Ready
			vc.RUnlock()
			if ready {
				logger.Info().Msg("Voice connection ready")
				return vc, nil
			}
		}
	}
}

// DisconnectFromVoiceChannel disconnects from the voice channel in the specified guild
func DisconnectFromVoiceChannel(s *discordgo.Session, guildID string, logger zerolog.Logger) error {
	s.RLock()
	vc, ok := s.VoiceConnections[guildID]
	s.RUnlock()

	if !ok {
		logger.Debug().Str("guild_id", guildID).Msg("No voice connection found")
		return nil
	}

	if err := vc.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	logger.Info().Str("guild_id", guildID).Msg("Disconnected from voice channel")
	return nil
}
