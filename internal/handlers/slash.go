package handlers

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// CommandRegistrar is the part of *discordgo.Session used to publish
// application commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// RegisterSlashCommands replaces the application's commands with
// SlashCommands. An empty guildID registers them globally.
func RegisterSlashCommands(r CommandRegistrar, appID, guildID string) (int, error) {
	created, err := r.ApplicationCommandBulkOverwrite(appID, guildID, SlashCommands())
	if err != nil {
		return 0, fmt.Errorf("failed to register slash commands: %w", err)
	}
	return len(created), nil
}

// SlashCommands returns the application commands the bot registers. Each one
// maps onto the matching chat command.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song or playlist by URL, or search for one",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "URL or search terms",
					Required:    true,
				},
			},
		},
		{
			Name:        "seek",
			Description: "Jump to a position in the current track",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "position",
					Description: "Seconds or mm:ss",
					Required:    true,
				},
			},
		},
		{
			Name:        "queue",
			Description: "Show or edit the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "action",
					Description:  "list, remove or clear",
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "index",
					Description: "Queue position to remove",
				},
			},
		},
		{Name: "skip", Description: "Skip the currently playing track"},
		{Name: "stop", Description: "Stop playback and disconnect"},
		{Name: "pause", Description: "Pause playback"},
		{Name: "resume", Description: "Resume playback"},
		{Name: "nowplaying", Description: "Show the current track"},
		{Name: "history", Description: "Show recently queued songs"},
		{Name: "help", Description: "Show the help message"},
	}
}

// SlashCommandHandler handles slash command interactions
func (h *Handler) SlashCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Guild commands only
	if i.Member == nil || i.Member.User == nil || i.Member.User.Bot {
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.handleApplicationCommand(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.handleAutocomplete(s, i)
	default:
		h.logger.Debug().Int("type", int(i.Type)).Msg("Unknown interaction type")
	}
}

// handleApplicationCommand acknowledges the interaction, runs the chat
// command (which replies in the channel) and closes the interaction.
func (h *Handler) handleApplicationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Error acknowledging interaction")
		return
	}

	command, args := slashArgs(i.ApplicationCommandData())

	// Commands reply through the channel like their chat counterparts
	mockMessage := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			GuildID:   i.GuildID,
			ChannelID: i.ChannelID,
			Author:    i.Member.User,
		},
	}

	response := "✅ Done."
	if !h.dispatch(s, mockMessage, command, args) {
		response = "❌ Unknown command."
	}

	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &response,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Error sending interaction response")
	}
}

// slashArgs converts interaction options into chat command arguments.
func slashArgs(data discordgo.ApplicationCommandInteractionData) (string, []string) {
	var args []string
	var index string

	for _, option := range data.Options {
		switch option.Name {
		case "query", "position", "action":
			args = append(args, option.StringValue())
		case "index":
			index = strconv.FormatInt(option.IntValue(), 10)
		}
	}
	if index != "" {
		args = append(args, index)
	}
	return data.Name, args
}

// handleAutocomplete handles autocomplete interactions
func (h *Handler) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var choices []*discordgo.ApplicationCommandOptionChoice
	if i.ApplicationCommandData().Name == "queue" {
		choices = queueActionChoices()
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("Error sending autocomplete response")
	}
}

func queueActionChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "list", Value: "list"},
		{Name: "remove", Value: "remove"},
		{Name: "clear", Value: "clear"},
	}
}
