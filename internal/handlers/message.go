package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/internal/commands"
	"github.com/rs/zerolog"
)

// aliases maps short command names to their canonical form.
var aliases = map[string]string{
	"p":       "play",
	"np":      "nowplaying",
	"current": "nowplaying",
	"h":       "help",
	"q":       "queue",
	"next":    "skip",
	"dc":      "leave",
}

// Handler routes Discord events to the bot's commands.
type Handler struct {
	bot    *commands.Bot
	logger zerolog.Logger
}

// NewHandler creates a handler for bot.
func NewHandler(bot *commands.Bot, logger zerolog.Logger) *Handler {
	return &Handler{
		bot:    bot,
		logger: logger.With().Str("component", "handlers").Logger(),
	}
}

// MessageHandler dispatches prefixed chat commands.
func (h *Handler) MessageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author == nil || m.Author.Bot || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}

	if command, args, ok := parseCommand(h.bot.Prefix(), m.Content); ok {
		h.dispatch(s, m, command, args)
		return
	}

	// Point mentions at the help command
	if s.State.User == nil {
		return
	}
	for _, mention := range m.Mentions {
		if mention.ID == s.State.User.ID {
			if _, err := s.ChannelMessageSend(m.ChannelID, "Hi! Try `"+h.bot.Prefix()+"help` to see what I can play."); err != nil {
				h.logger.Warn().Err(err).Msg("Error replying to mention")
			}
			return
		}
	}
}

// dispatch runs a canonical command. It reports whether the command exists.
func (h *Handler) dispatch(s *discordgo.Session, m *discordgo.MessageCreate, command string, args []string) bool {
	h.logger.Debug().
		Str("guild_id", m.GuildID).
		Str("user_id", m.Author.ID).
		Str("command", command).
		Msg("Dispatching command")

	switch command {
	case "play":
		h.bot.PlayCommand(s, m, args)
	case "join":
		h.bot.JoinCommand(s, m)
	case "leave":
		h.bot.LeaveCommand(s, m)
	case "skip":
		h.bot.SkipCommand(s, m)
	case "stop":
		h.bot.StopCommand(s, m)
	case "pause":
		h.bot.PauseCommand(s, m)
	case "resume":
		h.bot.ResumeCommand(s, m)
	case "seek":
		h.bot.SeekCommand(s, m, args)
	case "nowplaying":
		h.bot.NowPlayingCommand(s, m)
	case "queue":
		h.bot.QueueCommand(s, m, args)
	case "shuffle":
		h.bot.ShuffleCommand(s, m, args)
	case "history":
		h.bot.HistoryCommand(s, m, args)
	case "about":
		h.bot.AboutCommand(s, m)
	case "servers":
		h.bot.ServersCommand(s, m)
	case "jobs":
		h.bot.JobsCommand(s, m)
	case "help":
		h.bot.ShowHelpCommand(s, m)
	default:
		if _, err := s.ChannelMessageSend(m.ChannelID, "Unknown command. Try `"+h.bot.Prefix()+"help`."); err != nil {
			h.logger.Warn().Err(err).Msg("Error sending message")
		}
		return false
	}
	return true
}

// parseCommand splits a prefixed message into a canonical command name and
// its arguments.
func parseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(fields[0])
	if canonical, ok := aliases[command]; ok {
		command = canonical
	}
	return command, fields[1:], true
}
