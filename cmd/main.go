package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/internal/commands"
	"github.com/latoulicious/Cantdrown/internal/config"
	"github.com/latoulicious/Cantdrown/internal/handlers"
	"github.com/latoulicious/Cantdrown/internal/metrics"
	"github.com/latoulicious/Cantdrown/internal/presence"
	"github.com/latoulicious/Cantdrown/pkg/cron"
	"github.com/latoulicious/Cantdrown/pkg/database"
	"github.com/latoulicious/Cantdrown/pkg/pipeline"
)

const (
	maxIdle          = 5 * time.Minute
	historyRetention = 90 * 24 * time.Hour
)

func main() {
	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.LoadFromEnvironment()

	if err := pipelineCfg.Validate(); err != nil {
		logger := pipeline.DefaultLogger()
		logger.Fatal().Err(err).Msg("Invalid pipeline configuration")
	}

	logger := pipeline.NewLogger(pipelineCfg.Logging)
	pipeline.RedirectStdLog(logger)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	spawner := pipeline.NewSpawner(pipelineCfg, logger)
	checkCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := spawner.CheckTools(checkCtx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("Resolver or transcoder is not usable")
	}
	cancel()

	gate := pipeline.NewGateFromConfig(pipelineCfg.Gate, logger)
	loader := pipeline.NewLoader(gate, spawner, logger)

	history, err := database.NewHistoryStore(cfg.HistoryDBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.HistoryDBPath).Msg("Failed to open history database")
	}
	defer history.Close()

	// Create a new Discord session using the provided token
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	presenceManager := presence.NewPresenceManager(dg, cfg.CommandPrefix, func() int {
		dg.State.RLock()
		defer dg.State.RUnlock()
		return len(dg.State.Guilds)
	}, logger)

	scheduler := cron.NewScheduler(logger)

	bot := commands.NewBot(commands.Options{
		Loader:    loader,
		History:   history,
		Scheduler: scheduler,
		Presence:  presenceManager,
		Logger:    logger,
		OwnerID:   cfg.OwnerID,
		Prefix:    cfg.CommandPrefix,
	})

	handler := handlers.NewHandler(bot, logger)
	dg.AddHandler(handler.MessageHandler)
	dg.AddHandler(handler.SlashCommandHandler)

	mustSchedule := func(name, spec string, job func() error) {
		if err := scheduler.Add(name, spec, job); err != nil {
			logger.Fatal().Err(err).Str("job", name).Msg("Failed to schedule job")
		}
	}
	mustSchedule("presence-refresh", "0 */5 * * * *", func() error {
		return presenceManager.Refresh(bot.NowPlaying)
	})
	mustSchedule("idle-sweep", "0 * * * * *", func() error {
		if swept := bot.SweepIdle(maxIdle); swept > 0 {
			logger.Info().Int("swept", swept).Msg("Disconnected idle voice connections")
		}
		return nil
	})
	pruneHistory := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		pruned, err := history.Prune(ctx, time.Now().Add(-historyRetention))
		if pruned > 0 {
			logger.Info().Int64("pruned", pruned).Msg("Pruned play history")
		}
		return err
	}
	mustSchedule("history-prune", "0 30 4 * * *", pruneHistory)
	scheduler.RunNow("history-prune", pruneHistory)

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to open Discord session")
	}

	if n, err := handlers.RegisterSlashCommands(dg, dg.State.User.ID, ""); err != nil {
		logger.Warn().Err(err).Msg("Slash commands unavailable")
	} else {
		logger.Info().Int("count", n).Msg("Slash commands registered")
	}

	presenceManager.UpdateDefaultPresence()
	scheduler.Start()

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, metrics.NewRouter(func() (bool, int) {
			dg.RLock()
			ready := dg.DataReady
			dg.RUnlock()
			return ready, bot.ActivePlayers()
		}), logger)
		metricsServer.Start()
	}

	logger.Info().Str("prefix", bot.Prefix()).Msg("Bot is running. Press CTRL-C to exit.")
	// Wait here until CTRL-C or other term signal is received.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.Info().Msg("Shutting down")
	scheduler.Stop()
	bot.Shutdown()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
		cancel()
	}

	// Cleanly close down the Discord session.
	if err := dg.Close(); err != nil {
		logger.Warn().Err(err).Msg("Error closing Discord session")
	}
}
