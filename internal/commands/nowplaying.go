package commands

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
)

// NowPlayingCommand handles the nowplaying/current command
func (b *Bot) NowPlayingCommand(s Responder, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	if queue == nil {
		b.sendNothingPlayingEmbed(s, m.ChannelID)
		return
	}

	currentItem := queue.Current()
	if currentItem == nil || !queue.IsPlaying() {
		b.sendNothingPlayingEmbed(s, m.ChannelID)
		return
	}

	b.sendEmbed(s, m.ChannelID, nowPlayingEmbed(currentItem, queue.GetPlayer()))
}

func (b *Bot) sendNothingPlayingEmbed(s Responder, channelID string) {
	b.sendEmbed(s, channelID, &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: "Nothing is currently playing",
		Color:       colorIdle,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Use %splay to start playing music", b.prefix),
		},
	})
}

// nowPlayingEmbed builds the now playing embed with position and link
func nowPlayingEmbed(item *common.QueueItem, player *common.Player) *discordgo.MessageEmbed {
	statusText := "🔴 Stopped"
	position := time.Duration(0)
	if player != nil && player.IsPlaying() {
		item = item.WithMetadata(player.Metadata())
		position = player.Position()
		statusText = "🟢 Playing"
		if player.IsPaused() {
			statusText = "🟡 Paused"
		}
	}

	progress := common.FormatPosition(position)
	if item.Duration > 0 {
		progress += " / " + common.FormatPosition(item.Duration)
	} else {
		progress += " / live"
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎵 Now Playing",
		Description: fmt.Sprintf("**%s**", item.Title),
		URL:         item.SourceURL,
		Color:       colorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Requested by",
				Value:  item.RequestedBy,
				Inline: true,
			},
			{
				Name:   "Position",
				Value:  progress,
				Inline: true,
			},
			{
				Name:   "Status",
				Value:  statusText,
				Inline: true,
			},
			{
				Name:   "🔗 Source",
				Value:  item.SourceURL,
				Inline: false,
			},
		},
	}

	if item.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: item.Thumbnail}
	}
	return embed
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "live"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60

	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
