package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ShowHelpCommand displays all available commands with their descriptions using embeds
func (b *Bot) ShowHelpCommand(s Responder, m *discordgo.MessageCreate) {
	p := b.prefix
	line := func(format string) string {
		return strings.ReplaceAll(format, "!", p)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Cantdrown",
		Description: "Here are all the available commands for the bot:",
		Color:       colorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Cantdrown %s | Created by latoulicious", Version),
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Music Commands",
				Value: strings.Join([]string{
					line("• `!play <url>` / `!p <url>` - Play a song or playlist by URL"),
					line("• `!play <keywords>` - Search and play the first result"),
					line("• `!nowplaying` / `!np` / `!current` - Show the current track and its link"),
					line("• `!seek <seconds|mm:ss>` - Jump to a position in the current track"),
					line("• `!queue list` - List the current queue"),
					line("• `!queue remove <index>` - Remove a track from the queue"),
					line("• `!queue clear` - Clear the waiting songs"),
					line("• `!shuffle` - Shuffle the queue (announces new top song for large queues)"),
					line("• `!pause` / `!resume` - Pause or resume playback"),
					line("• `!skip` - Skip the currently playing track"),
					line("• `!stop` - Stop playback and disconnect from voice channel"),
					line("• `!join` / `!leave` - Join or leave your voice channel"),
					line("• `!history [count]` - Show recently queued songs"),
				}, "\n"),
				Inline: false,
			},
			{
				Name: "ℹInformation Commands",
				Value: strings.Join([]string{
					line("• `!about` - Show bot info, uptime, and stats"),
					line("• `!help` / `!h` - Show this help message"),
				}, "\n"),
				Inline: false,
			},
			{
				Name: "Admin Commands (Bot Owner Only)",
				Value: strings.Join([]string{
					line("• `!servers` - List servers the bot is connected to"),
					line("• `!jobs` - Show scheduled maintenance jobs"),
				}, "\n"),
				Inline: false,
			},
			{
				Name: "💡 Tips",
				Value: strings.Join([]string{
					"• Join a voice channel **before** using music commands",
					"• Seeking restarts the stream, expect a short gap",
				}, "\n"),
				Inline: false,
			},
		},
	}

	b.sendEmbed(s, m.ChannelID, embed)
}
