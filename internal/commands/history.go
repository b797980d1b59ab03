package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 25
)

// HistoryCommand lists the most recently queued songs for this server.
func (b *Bot) HistoryCommand(s Responder, m *discordgo.MessageCreate, args []string) {
	if b.history == nil {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Play history is disabled.", colorError)
		return
	}

	limit := defaultHistoryLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			b.sendEmbedMessage(s, m.ChannelID, "❌ Usage Error",
				fmt.Sprintf("Usage: `%shistory [count]`", b.prefix), colorError)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := b.history.Recent(ctx, m.GuildID, limit)
	if err != nil {
		b.logger.Error().Err(err).Str("guild_id", m.GuildID).Msg("Failed to load history")
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "Could not load play history.", colorError)
		return
	}
	if len(entries) == 0 {
		b.sendEmbedMessage(s, m.ChannelID, "📜 Play History", "Nothing has been played here yet.", colorIdle)
		return
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. [%s](%s) [%s] by %s, <t:%d:R>",
			i+1, entry.Title, entry.SourceURL, formatDuration(entry.Duration), entry.RequestedBy, entry.QueuedAt.Unix()))
	}

	b.sendEmbedMessage(s, m.ChannelID, "📜 Play History", strings.Join(lines, "\n"), colorInfo)
}
