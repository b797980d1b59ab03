package commands

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ShuffleCommand shuffles the waiting songs
func (b *Bot) ShuffleCommand(s Responder, m *discordgo.MessageCreate, args []string) {
	queue := b.getQueue(m.GuildID)
	if queue == nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "No queue found for this server.", colorError)
		return
	}

	queueSize := queue.Size()
	if queueSize < 2 {
		b.sendEmbedMessage(s, m.ChannelID, "📭 Not Enough Songs", "Need at least 2 songs to shuffle the queue.", colorIdle)
		return
	}

	queue.Shuffle(rand.New(rand.NewSource(time.Now().UnixNano())))

	embed := &discordgo.MessageEmbed{
		Title:       "🔀 Queue Shuffled",
		Color:       colorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Description: "The queue has been shuffled successfully!",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Songs Shuffled",
				Value:  fmt.Sprintf("%d songs", queueSize),
				Inline: true,
			},
			{
				Name:   "Shuffled By",
				Value:  m.Author.Username,
				Inline: true,
			},
		},
	}

	// Announce the new top song on request or for larger queues
	announceTop := len(args) > 0 && strings.ToLower(args[0]) == "announce"
	if items := queue.List(); len(items) > 0 && (announceTop || queueSize > 5) {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "🎵 New Top Song",
			Value:  fmt.Sprintf("**%s**\nRequested by: %s", items[0].Title, items[0].RequestedBy),
			Inline: false,
		})
	}

	b.sendEmbed(s, m.ChannelID, embed)
}
