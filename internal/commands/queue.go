package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// maxListedItems caps how many waiting songs the queue listing shows.
const maxListedItems = 15

// QueueCommand handles the queue command
func (b *Bot) QueueCommand(s Responder, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		b.showQueue(s, m)
		return
	}

	switch strings.ToLower(args[0]) {
	case "remove":
		if len(args) < 2 {
			b.send(s, m.ChannelID, fmt.Sprintf("Usage: `%squeue remove <index>`", b.prefix))
			return
		}
		b.removeFromQueue(s, m, args[1])
	case "clear":
		b.clearQueue(s, m)
	case "list":
		b.showQueue(s, m)
	default:
		b.send(s, m.ChannelID, fmt.Sprintf("Usage: `%squeue [list|remove|clear] [args...]`", b.prefix))
	}
}

// removeFromQueue removes a song from the queue by its 1-based position
func (b *Bot) removeFromQueue(s Responder, m *discordgo.MessageCreate, arg string) {
	queue := b.getQueue(m.GuildID)
	if queue == nil {
		b.send(s, m.ChannelID, "❌ No queue found for this server.")
		return
	}

	index, err := strconv.Atoi(arg)
	if err != nil {
		b.send(s, m.ChannelID, fmt.Sprintf("❌ Invalid index. Use `%squeue list` to see queue positions.", b.prefix))
		return
	}

	if err := queue.Remove(index - 1); err != nil {
		b.send(s, m.ChannelID, fmt.Sprintf("❌ %s", err.Error()))
		return
	}

	b.send(s, m.ChannelID, "✅ Removed song from queue.")
}

func (b *Bot) clearQueue(s Responder, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	if queue == nil {
		b.send(s, m.ChannelID, "❌ No queue found for this server.")
		return
	}

	cleared := queue.Clear()
	b.send(s, m.ChannelID, fmt.Sprintf("✅ Queue cleared (%d songs removed).", cleared))
}

// showQueue shows the current queue
func (b *Bot) showQueue(s Responder, m *discordgo.MessageCreate) {
	queue := b.getQueue(m.GuildID)
	if queue == nil || (queue.Size() == 0 && queue.Current() == nil) {
		b.send(s, m.ChannelID, "📭 Queue is empty.")
		return
	}

	var response strings.Builder
	response.WriteString("🎵 **Music Queue**\n\n")

	if current := queue.Current(); current != nil {
		response.WriteString(fmt.Sprintf("🎶 **Now Playing:** %s (Requested by: %s)\n\n",
			current.Title, current.RequestedBy))
	}

	items := queue.List()
	if len(items) > 0 {
		response.WriteString("📋 **Up Next:**\n")
		for i, item := range items {
			if i == maxListedItems {
				response.WriteString(fmt.Sprintf("...and %d more\n", len(items)-maxListedItems))
				break
			}
			response.WriteString(fmt.Sprintf("%d. **%s** [%s] (Requested by: %s)\n",
				i+1, item.Title, formatDuration(item.Duration), item.RequestedBy))
		}
	}

	b.send(s, m.ChannelID, response.String())
}
