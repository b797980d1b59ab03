package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
)

// AboutCommand displays bot information including uptime, memory usage and active players
func (b *Bot) AboutCommand(s Responder, m *discordgo.MessageCreate) {
	uptime := time.Since(b.startTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryUsage := fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024)

	embed := &discordgo.MessageEmbed{
		Title:       "Bot Information",
		Description: "Streams audio from anywhere the resolver can reach.",
		Color:       colorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Created by latoulicious",
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Bot Name & Version",
				Value:  "Cantdrown " + Version,
				Inline: true,
			},
			{
				Name:   "Uptime",
				Value:  formatUptime(uptime),
				Inline: true,
			},
			{
				Name:   "Memory Usage",
				Value:  memoryUsage,
				Inline: true,
			},
			{
				Name:   "Go Version",
				Value:  runtime.Version(),
				Inline: true,
			},
			{
				Name:   "Active Players",
				Value:  fmt.Sprintf("%d", b.ActivePlayers()),
				Inline: true,
			},
			{
				Name:   "Goroutines",
				Value:  fmt.Sprintf("%d", runtime.NumGoroutine()),
				Inline: true,
			},
		},
	}

	b.sendEmbed(s, m.ChannelID, embed)
}

// Version is reported by the about command.
var Version = "v1.0.0"

// formatUptime formats the uptime duration into a human-readable string
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	} else {
		return fmt.Sprintf("%ds", seconds)
	}
}
