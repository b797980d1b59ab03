package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Loudness normalization and output format applied to every transcoder
// invocation. These are deliberately not part of Config.
const (
	LoudnessFilter   = "loudnorm=I=-16:LRA=11:TP=-1.5"
	OutputSampleRate = 48000
	OutputChannels   = 2
	// OutputSampleBytes is the width of one f32le sample.
	OutputSampleBytes = 4
)

// Config contains the configuration for the resolver/transcoder pipeline
type Config struct {
	Resolver   ResolverConfig   `json:"resolver"`
	Transcoder TranscoderConfig `json:"transcoder"`
	Gate       GateConfig       `json:"gate"`
	Process    ProcessConfig    `json:"process"`
	Logging    LoggingConfig    `json:"logging"`
}

// ResolverConfig contains configuration for the media resolver process
type ResolverConfig struct {
	BinaryPath string `json:"binary_path"`
	Format     string `json:"format"`
}

// TranscoderConfig contains configuration for the transcoder process
type TranscoderConfig struct {
	BinaryPath string `json:"binary_path"`
}

// GateConfig contains the process-wide admission control settings.
// Read once at startup.
type GateConfig struct {
	Capacity int           `json:"capacity"`
	Window   time.Duration `json:"window"`
}

// ProcessConfig contains process lifecycle settings
type ProcessConfig struct {
	TerminateGrace time.Duration `json:"terminate_grace"`
	StderrTail     int           `json:"stderr_tail"`
}

// LoggingConfig contains configuration for logging
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Resolver: ResolverConfig{
			BinaryPath: "yt-dlp",
			Format:     "webm[abr>0]/bestaudio/best",
		},
		Transcoder: TranscoderConfig{
			BinaryPath: "ffmpeg",
		},
		Gate: GateConfig{
			Capacity: 5,
			Window:   60 * time.Second,
		},
		Process: ProcessConfig{
			TerminateGrace: 2 * time.Second,
			StderrTail:     20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// LoadFromEnvironment loads configuration values from environment variables
func (c *Config) LoadFromEnvironment() {
	if val := os.Getenv("PIPELINE_RESOLVER_PATH"); val != "" {
		c.Resolver.BinaryPath = val
	}

	if val := os.Getenv("PIPELINE_RESOLVER_FORMAT"); val != "" {
		c.Resolver.Format = val
	}

	if val := os.Getenv("PIPELINE_TRANSCODER_PATH"); val != "" {
		c.Transcoder.BinaryPath = val
	}

	if val := os.Getenv("PIPELINE_GATE_CAPACITY"); val != "" {
		if capacity, err := strconv.Atoi(val); err == nil {
			c.Gate.Capacity = capacity
		}
	}

	if val := os.Getenv("PIPELINE_GATE_WINDOW"); val != "" {
		if window, err := time.ParseDuration(val); err == nil {
			c.Gate.Window = window
		}
	}

	if val := os.Getenv("PIPELINE_TERMINATE_GRACE"); val != "" {
		if grace, err := time.ParseDuration(val); err == nil {
			c.Process.TerminateGrace = grace
		}
	}

	if val := os.Getenv("PIPELINE_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}

	if val := os.Getenv("PIPELINE_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
}

// Validate validates the configuration and returns any errors
func (c *Config) Validate() error {
	var errors []string

	if c.Resolver.BinaryPath == "" {
		errors = append(errors, "resolver binary_path cannot be empty")
	}

	if c.Resolver.Format == "" {
		errors = append(errors, "resolver format cannot be empty")
	}

	if c.Transcoder.BinaryPath == "" {
		errors = append(errors, "transcoder binary_path cannot be empty")
	}

	if c.Gate.Capacity <= 0 {
		errors = append(errors, "gate capacity must be > 0")
	}

	if c.Gate.Window <= 0 {
		errors = append(errors, "gate window must be > 0")
	}

	if c.Process.TerminateGrace < 0 {
		errors = append(errors, "process terminate_grace must be >= 0")
	}

	if c.Process.StderrTail < 0 {
		errors = append(errors, "process stderr_tail must be >= 0")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "logging level must be one of: trace, debug, info, warn, error, fatal")
	}

	validLogFormats := map[string]bool{
		"json": true, "text": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "logging format must be one of: json, text, console")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}
