package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Gate.Capacity)
	assert.Equal(t, 60*time.Second, cfg.Gate.Window)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty resolver", func(c *Config) { c.Resolver.BinaryPath = "" }},
		{"empty transcoder", func(c *Config) { c.Transcoder.BinaryPath = "" }},
		{"zero capacity", func(c *Config) { c.Gate.Capacity = 0 }},
		{"zero window", func(c *Config) { c.Gate.Window = 0 }},
		{"negative grace", func(c *Config) { c.Process.TerminateGrace = -time.Second }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PIPELINE_RESOLVER_PATH", "/opt/yt-dlp")
	t.Setenv("PIPELINE_TRANSCODER_PATH", "/opt/ffmpeg")
	t.Setenv("PIPELINE_GATE_CAPACITY", "10")
	t.Setenv("PIPELINE_GATE_WINDOW", "30s")
	t.Setenv("PIPELINE_TERMINATE_GRACE", "250ms")
	t.Setenv("PIPELINE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadFromEnvironment()

	assert.Equal(t, "/opt/yt-dlp", cfg.Resolver.BinaryPath)
	assert.Equal(t, "/opt/ffmpeg", cfg.Transcoder.BinaryPath)
	assert.Equal(t, 10, cfg.Gate.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Gate.Window)
	assert.Equal(t, 250*time.Millisecond, cfg.Process.TerminateGrace)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironmentIgnoresGarbage(t *testing.T) {
	t.Setenv("PIPELINE_GATE_CAPACITY", "many")
	t.Setenv("PIPELINE_GATE_WINDOW", "soon")

	cfg := DefaultConfig()
	cfg.LoadFromEnvironment()

	assert.Equal(t, 5, cfg.Gate.Capacity)
	assert.Equal(t, 60*time.Second, cfg.Gate.Window)
}
