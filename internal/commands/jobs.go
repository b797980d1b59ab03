package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
)

// JobsCommand shows the scheduled maintenance jobs. Owner only.
func (b *Bot) JobsCommand(s Responder, m *discordgo.MessageCreate) {
	if !common.IsOwner(m.Author.ID, b.ownerID) {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "This command is restricted to the bot owner.", colorError)
		return
	}
	if b.scheduler == nil {
		b.sendEmbedMessage(s, m.ChannelID, "⏰ Scheduled Jobs", "No scheduler is configured.", colorIdle)
		return
	}

	names := b.scheduler.Jobs()
	if len(names) == 0 {
		b.sendEmbedMessage(s, m.ChannelID, "⏰ Scheduled Jobs", "No jobs are scheduled.", colorIdle)
		return
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		status := "idle"
		if b.scheduler.IsRunning(name) {
			status = "running"
		}
		next := "not scheduled"
		if at := b.scheduler.NextRun(name); !at.IsZero() {
			next = at.Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("• `%s` (%s), next run %s", name, status, next))
	}

	b.sendEmbedMessage(s, m.ChannelID, "⏰ Scheduled Jobs", strings.Join(lines, "\n"), colorInfo)
}
