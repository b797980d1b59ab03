package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken  string
	CommandPrefix string
	HistoryDBPath string
	OwnerID       string
	// MetricsAddr is where Prometheus metrics are served; empty disables it.
	MetricsAddr string
}

var ErrDiscordTokenNotSet = errors.New("DISCORD_TOKEN is not set")

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env files, then the environment. Missing
// files are ignored; variables already set in the environment win.
func LoadConfigFrom(files ...string) (*Config, error) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	discordToken := os.Getenv("DISCORD_TOKEN")
	if discordToken == "" {
		return nil, ErrDiscordTokenNotSet
	}

	return &Config{
		DiscordToken:  discordToken,
		CommandPrefix: getEnv("COMMAND_PREFIX", "!"),
		HistoryDBPath: getEnv("HISTORY_DB_PATH", "cantdrown.db"),
		OwnerID:       os.Getenv("BOT_OWNER_ID"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
