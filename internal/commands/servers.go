package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
)

// ServersCommand lists the servers the bot is joined to. Owner only.
func (b *Bot) ServersCommand(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !common.IsOwner(m.Author.ID, b.ownerID) {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Error", "This command is restricted to the bot owner.", colorError)
		return
	}

	b.send(s, m.ChannelID, serverList(s.State.Guilds))
}

func serverList(guilds []*discordgo.Guild) string {
	if len(guilds) == 0 {
		return "I'm not joined to any servers."
	}
	if len(guilds) == 1 {
		return fmt.Sprintf("I'm joined to **1 server**:\n• **%s** (ID: `%s`)", guilds[0].Name, guilds[0].ID)
	}

	lines := make([]string, 0, len(guilds))
	for _, guild := range guilds {
		lines = append(lines, fmt.Sprintf("• **%s** (ID: `%s`)", guild.Name, guild.ID))
	}
	return fmt.Sprintf("I'm joined to **%d servers**:\n", len(guilds)) + strings.Join(lines, "\n")
}
