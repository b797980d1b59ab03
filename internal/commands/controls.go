package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
)

// SkipCommand ends the current track; the playback loop moves on.
func (b *Bot) SkipCommand(s Responder, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	player := activePlayer(queue)
	if player == nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", colorError)
		return
	}

	title := "the current song"
	if current := queue.Current(); current != nil {
		title = "**" + current.Title + "**"
	}

	queue.SetSkipped(true)
	player.Stop()
	b.sendEmbedMessage(s, m.ChannelID, "⏭️ Skipped", "Skipped "+title+".", colorSuccess)
}

// StopCommand stops playback, clears the queue and leaves voice.
func (b *Bot) StopCommand(s Responder, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	if queue == nil || (!queue.IsPlaying() && queue.Size() == 0) {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", colorError)
		return
	}

	queue.StopAndCleanup()
	b.sendEmbedMessage(s, m.ChannelID, "⏹️ Stopped", "Playback stopped and queue cleared.", colorSuccess)
}

func (b *Bot) PauseCommand(s Responder, m *discordgo.MessageCreate) {
	player := activePlayer(b.getQueue(m.GuildID))
	switch {
	case player == nil:
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", colorError)
	case player.Pause():
		b.sendEmbedMessage(s, m.ChannelID, "⏸️ Playback Paused", "Music playback has been paused.", colorWarn)
	default:
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Playback is already paused.", colorError)
	}
}

func (b *Bot) ResumeCommand(s Responder, m *discordgo.MessageCreate) {
	player := activePlayer(b.getQueue(m.GuildID))
	switch {
	case player == nil:
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", colorError)
	case player.Resume():
		b.sendEmbedMessage(s, m.ChannelID, "▶️ Playback Resumed", "Music playback has been resumed.", colorSuccess)
	default:
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Playback is not paused.", colorError)
	}
}

// SeekCommand restarts the current track at the given position.
func (b *Bot) SeekCommand(s Responder, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
			fmt.Sprintf("Usage: `%sseek <seconds|mm:ss>`", b.prefix), colorError)
		return
	}

	position, err := common.ParsePosition(args[0])
	if err != nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", "Position must be seconds or mm:ss.", colorError)
		return
	}

	queue := b.getQueue(m.GuildID)
	player := activePlayer(queue)
	var current *common.QueueItem
	if queue != nil {
		current = queue.Current()
	}
	if player == nil || current == nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Nothing is playing.", colorError)
		return
	}

	if current.Duration > 0 && position >= current.Duration {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error",
			fmt.Sprintf("Position is past the end of the track (%s).", common.FormatPosition(current.Duration)), colorError)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.seekTimeout)
	defer cancel()

	if err := player.Seek(ctx, position); err != nil {
		b.logger.Warn().Err(err).Str("guild_id", m.GuildID).Msg("Seek failed")
		b.sendEmbedMessage(s, m.ChannelID, "❌ Seek Failed", describeError(err), colorError)
		return
	}

	b.sendEmbedMessage(s, m.ChannelID, "⏩ Seeked",
		fmt.Sprintf("Jumped to **%s** in **%s**.", common.FormatPosition(position), current.Title), colorSuccess)
}

// JoinCommand joins the caller's voice channel.
func (b *Bot) JoinCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	queue := b.getOrCreateQueue(m.GuildID)
	if queue.GetVoiceConnection() != nil {
		b.sendEmbedMessage(s, m.ChannelID, "🔊 Already Connected", "I'm already in a voice channel.", colorIdle)
		return
	}

	vc, err := b.joinVoice(s, m.Author.ID, m.GuildID)
	if err != nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", err.Error(), colorError)
		return
	}
	queue.SetVoiceConnection(vc)
	b.sendEmbedMessage(s, m.ChannelID, "🔊 Joined", "Connected to your voice channel.", colorSuccess)
}

// LeaveCommand stops playback and leaves the voice channel.
func (b *Bot) LeaveCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	if queue != nil && queue.GetVoiceConnection() != nil {
		queue.StopAndCleanup()
		b.sendEmbedMessage(s, m.ChannelID, "👋 Left", "Disconnected from voice.", colorSuccess)
		return
	}

	// A connection the queue does not track, e.g. one left over from a gateway resume
	if err := common.DisconnectFromVoiceChannel(s, m.GuildID, b.logger); err != nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not leave the voice channel.", colorError)
		return
	}
	b.sendEmbedMessage(s, m.ChannelID, "👋 Left", "Disconnected from voice.", colorSuccess)
}

func activePlayer(queue *common.MusicQueue) *common.Player {
	if queue == nil {
		return nil
	}
	player := queue.GetPlayer()
	if player == nil || !player.IsPlaying() {
		return nil
	}
	return player
}
