package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/common"
	"github.com/latoulicious/Cantdrown/pkg/pipeline"
	"golang.org/x/sync/errgroup"
)

// searchPrefix makes the resolver treat free text as a search for one item.
const searchPrefix = "ytsearch1:"

// PlayCommand queues a URL, a playlist URL or a search query and starts
// playback if nothing is playing.
func (b *Bot) PlayCommand(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 1 {
		b.sendEmbedMessage(s, m.ChannelID, "❌ Usage Error", fmt.Sprintf("Usage: `%splay <url|search terms>`", b.prefix), colorError)
		return
	}

	queue := b.getOrCreateQueue(m.GuildID)
	locator := queryLocator(args)

	if common.IsPlaylistURL(locator) {
		b.playPlaylist(s, m, queue, locator)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.openTimeout)
	defer cancel()

	item, err := b.openItem(ctx, locator, m.Author.Username)
	if err != nil {
		b.logger.Warn().Err(err).Str("locator", locator).Msg("Could not queue song")
		b.sendEmbedMessage(s, m.ChannelID, "❌ Could not queue song", describeError(err), colorError)
		return
	}

	position := b.enqueue(m.GuildID, queue, item)
	b.sendEmbedMessage(s, m.ChannelID, "🎵 Song Added",
		fmt.Sprintf("✅ Added **%s** to queue (Position: %d)", item.Title, position), colorSuccess)

	b.ensurePlaying(s, m.ChannelID, m.Author.ID, queue)
}

// playPlaylist expands a playlist, queues the first playable entry right away
// and the rest in playlist order once they are resolved.
func (b *Bot) playPlaylist(s *discordgo.Session, m *discordgo.MessageCreate, queue *common.MusicQueue, locator string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.openTimeout)
	entries, err := b.loader.Expand(ctx, locator)
	cancel()
	if err != nil {
		b.logger.Warn().Err(err).Str("locator", locator).Msg("Could not expand playlist")
		b.sendEmbedMessage(s, m.ChannelID, "❌ Could not queue playlist", describeError(err), colorError)
		return
	}

	locators, failed := playableEntries(entries, b.maxPlaylistEntries)
	if len(locators) == 0 {
		b.sendEmbedMessage(s, m.ChannelID, "📭 Empty Playlist", "The playlist has no playable entries.", colorIdle)
		return
	}

	b.sendEmbedMessage(s, m.ChannelID, "📜 Loading Playlist",
		fmt.Sprintf("Queuing %d songs...", len(locators)), colorInfo)

	queued := 0

	// Start on the first entry that resolves.
	rest := locators
	for len(rest) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), b.openTimeout)
		entry := rest[0]
		rest = rest[1:]
		item, err := b.openItem(ctx, entry, m.Author.Username)
		cancel()
		if err != nil {
			b.logger.Warn().Err(err).Str("locator", entry).Msg("Skipping playlist entry")
			failed++
			continue
		}
		b.enqueue(m.GuildID, queue, item)
		queued++
		b.ensurePlaying(s, m.ChannelID, m.Author.ID, queue)
		break
	}

	items, skipped := b.openAll(context.Background(), rest, m.Author.Username)
	for _, item := range items {
		b.enqueue(m.GuildID, queue, item)
	}
	queued += len(items)
	failed += skipped

	description := fmt.Sprintf("✅ Added **%d** songs to queue", queued)
	if failed > 0 {
		description += fmt.Sprintf(" (%d could not be queued)", failed)
	}
	b.sendEmbedMessage(s, m.ChannelID, "📜 Playlist Added", description, colorSuccess)

	if queued > 0 {
		b.ensurePlaying(s, m.ChannelID, m.Author.ID, queue)
	}
}

// openAll opens lazy sources for locators with bounded concurrency. Results
// keep the input order; entries that fail are skipped and counted.
func (b *Bot) openAll(ctx context.Context, locators []string, requestedBy string) ([]*common.QueueItem, int) {
	results := make([]*common.QueueItem, len(locators))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.playlistConcurrency)
	for i, locator := range locators {
		i, locator := i, locator
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, b.openTimeout)
			defer cancel()

			item, err := b.openItem(itemCtx, locator, requestedBy)
			if err != nil {
				b.logger.Warn().Err(err).Str("locator", locator).Msg("Skipping playlist entry")
				return nil
			}
			results[i] = item
			return nil
		})
	}
	_ = g.Wait()

	items := make([]*common.QueueItem, 0, len(results))
	for _, item := range results {
		if item != nil {
			items = append(items, item)
		}
	}
	return items, len(locators) - len(items)
}

// openItem opens a lazy source: metadata now, pipeline at playback.
func (b *Bot) openItem(ctx context.Context, locator, requestedBy string) (*common.QueueItem, error) {
	src, err := b.loader.Open(ctx, locator, true)
	if err != nil {
		return nil, err
	}
	return common.NewQueueItem(src, requestedBy), nil
}

func (b *Bot) enqueue(guildID string, queue *common.MusicQueue, item *common.QueueItem) int {
	position := queue.Add(item)
	b.recordHistory(guildID, item)
	return position
}

// ensurePlaying starts the playback loop unless one is already running.
func (b *Bot) ensurePlaying(s *discordgo.Session, channelID, userID string, queue *common.MusicQueue) {
	if !queue.TryStartPlaying() {
		return
	}

	player, err := b.playerFor(s, userID, queue)
	if err != nil {
		queue.SetPlaying(false)
		b.sendEmbedMessage(s, channelID, "❌ Error", err.Error(), colorError)
		return
	}

	go b.playLoop(s, channelID, queue, player)
}

// playerFor returns the queue's player, joining the user's voice channel first
// if needed.
func (b *Bot) playerFor(s *discordgo.Session, userID string, queue *common.MusicQueue) (*common.Player, error) {
	if player := queue.GetPlayer(); player != nil {
		return player, nil
	}

	vc := queue.GetVoiceConnection()
	if vc == nil {
		joined, err := b.joinVoice(s, userID, queue.GuildID())
		if err != nil {
			return nil, err
		}
		queue.SetVoiceConnection(joined)
		vc = joined
	}

	player, err := common.NewPlayer(vc, b.logger)
	if err != nil {
		return nil, err
	}
	queue.SetPlayer(player)
	return player, nil
}

// playLoop plays queued items until the queue runs dry or the player is
// replaced.
func (b *Bot) playLoop(s Responder, channelID string, queue *common.MusicQueue, player *common.Player) {
	defer b.trackChanged("")

	for {
		item := queue.Advance(player)
		if item == nil {
			return
		}

		b.sendEmbedMessage(s, channelID, "🎶 Now Playing",
			fmt.Sprintf("**%s** (Requested by: %s)", item.Title, item.RequestedBy), colorSuccess)
		b.trackChanged(item.Title)

		err := player.Play(context.Background(), item.Source)
		switch {
		case err != nil:
			b.logger.Warn().Err(err).Str("guild_id", queue.GuildID()).Str("locator", item.Locator).Msg("Playback failed")
			b.sendEmbedMessage(s, channelID, "❌ Playback Failed",
				fmt.Sprintf("**%s**: %s", item.Title, describeError(err)), colorError)
		case queue.WasSkipped():
			b.logger.Debug().Str("guild_id", queue.GuildID()).Str("title", item.Title).Msg("Track skipped")
		default:
			b.logger.Debug().Str("guild_id", queue.GuildID()).Str("title", item.Title).Msg("Track finished")
		}
	}
}

// queryLocator turns command arguments into a resolver locator. Anything that
// is not a URL becomes a search.
func queryLocator(args []string) string {
	input := strings.TrimSpace(strings.Join(args, " "))
	if !common.IsURL(input) {
		return searchPrefix + input
	}

	locator := strings.Fields(input)[0]
	if strings.HasPrefix(locator, "www.") {
		locator = "https://" + locator
	}
	return locator
}

// playableEntries drops entries without a locator and caps the count at
// limit. It also returns how many entries were dropped for lacking one.
func playableEntries(entries []*string, limit int) ([]string, int) {
	locators := make([]string, 0, len(entries))
	missing := 0
	for _, entry := range entries {
		if entry == nil || strings.TrimSpace(*entry) == "" {
			missing++
			continue
		}
		if len(locators) < limit {
			locators = append(locators, *entry)
		}
	}
	return locators, missing
}

// describeError turns a pipeline failure into a short user-facing reason.
func describeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out while resolving the song."
	case errors.Is(err, pipeline.ErrEmptyLocator):
		return "Nothing to play."
	case errors.Is(err, pipeline.ErrTranscoderExit):
		return "The audio stream ended unexpectedly."
	}

	kind, ok := pipeline.KindOf(err)
	if !ok {
		return err.Error()
	}
	switch kind {
	case pipeline.KindUpstreamResolution:
		var pe *pipeline.Error
		if errors.As(err, &pe) && pe.Err != nil {
			return "The source could not be resolved: " + pe.Err.Error()
		}
		return "The source could not be resolved."
	case pipeline.KindMetadataParse:
		return "The resolver returned unreadable metadata."
	case pipeline.KindProcessSpawn:
		return "The audio tools could not be started."
	case pipeline.KindPipeUnavailable:
		return "The audio pipeline could not be set up."
	default:
		return err.Error()
	}
}
