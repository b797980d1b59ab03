package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Spawner starts resolver/transcoder pipelines and one-shot resolver runs.
type Spawner struct {
	config *Config
	logger zerolog.Logger
}

// NewSpawner creates a spawner. A nil config uses DefaultConfig.
func NewSpawner(config *Config, logger zerolog.Logger) *Spawner {
	if config == nil {
		config = DefaultConfig()
	}
	return &Spawner{
		config: config,
		logger: logger.With().Str("component", "spawner").Logger(),
	}
}

// ResolverArgs returns the resolver arguments for a pipeline: metadata record
// on the diagnostic stream, media on stdout.
func ResolverArgs(format, locator string) []string {
	return []string{
		"--print-json",
		"-f", format,
		"-R", "infinite",
		"--no-playlist",
		"--ignore-config",
		"--no-warnings",
		"-o", "-",
		"--", locator,
	}
}

// MetadataArgs returns the resolver arguments for a metadata-only run. The
// selection flags match ResolverArgs so both pick the same item.
func MetadataArgs(format, locator string) []string {
	return []string{
		"-j",
		"-f", format,
		"-R", "infinite",
		"--no-playlist",
		"--ignore-config",
		"--no-warnings",
		"-o", "-",
		"--", locator,
	}
}

// PlaylistArgs returns the resolver arguments for a flat playlist listing.
func PlaylistArgs(locator string) []string {
	return []string{
		"-J",
		"--flat-playlist",
		"-o", "-",
		"--", locator,
	}
}

// FormatOffset renders a seek offset as fractional seconds with millisecond precision.
func FormatOffset(offset time.Duration) string {
	return strconv.FormatFloat(offset.Seconds(), 'f', 3, 64)
}

// TranscoderArgs returns the transcoder arguments. The seek, when present,
// applies to the input.
func TranscoderArgs(offset *time.Duration) []string {
	var args []string
	if offset != nil {
		args = append(args, "-ss", FormatOffset(*offset))
	}
	return append(args,
		"-i", "-",
		"-f", "s16le",
		"-ac", strconv.Itoa(OutputChannels),
		"-ar", strconv.Itoa(OutputSampleRate),
		"-acodec", "pcm_f32le",
		"-af", LoudnessFilter,
		"-",
	)
}

// Spawn starts the resolver, reads its metadata record, then starts the
// transcoder fed by the resolver's media output. Nothing is retried. ctx
// bounds only the spawn phase; the returned Pipeline lives until Close.
func (s *Spawner) Spawn(ctx context.Context, locator string, offset *time.Duration) (p *Pipeline, md *Metadata, err error) {
	defer func() { recordSpawn(err) }()

	if strings.TrimSpace(locator) == "" {
		return nil, nil, ErrEmptyLocator
	}

	logger := s.logger.With().Str("locator", locator).Logger()
	if offset != nil {
		logger = logger.With().Str("offset", FormatOffset(*offset)).Logger()
	}

	mediaR, mediaW, err := os.Pipe()
	if err != nil {
		return nil, nil, newError(KindPipeUnavailable, "spawn resolver", locator, nil, fmt.Errorf("media pipe: %w", err))
	}
	diagR, diagW, err := os.Pipe()
	if err != nil {
		closeFiles(mediaR, mediaW)
		return nil, nil, newError(KindPipeUnavailable, "spawn resolver", locator, nil, fmt.Errorf("diagnostic pipe: %w", err))
	}

	resolverCmd := exec.Command(s.config.Resolver.BinaryPath, ResolverArgs(s.config.Resolver.Format, locator)...)
	resolverCmd.Stdout = mediaW
	resolverCmd.Stderr = diagW

	resolver, err := startProcess("resolver", resolverCmd)
	// The child holds its own copies of the write ends.
	closeFiles(mediaW, diagW)
	if err != nil {
		closeFiles(mediaR, diagR)
		return nil, nil, newError(KindProcessSpawn, "spawn resolver", locator, nil, err)
	}
	logger = logger.With().Int("resolver_pid", resolver.pid()).Logger()
	logger.Debug().Msg("Resolver started")

	diag := bufio.NewReader(diagR)
	md, err = readMetadataLine(ctx, diag, func() error {
		return resolver.waitExit(s.config.Process.TerminateGrace)
	})
	if err != nil {
		terminateAll(s.config.Process.TerminateGrace, resolver)
		closeFiles(mediaR, diagR)
		var pe *Error
		if errors.As(err, &pe) {
			pe.Locator = locator
		}
		logger.Warn().Err(err).Msg("Resolver produced no usable metadata")
		return nil, nil, err
	}

	tail := newLineRing(s.config.Process.StderrTail)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		drainInto(diag, tail)
	}()

	audioR, audioW, err := os.Pipe()
	if err != nil {
		terminateAll(s.config.Process.TerminateGrace, resolver)
		closeFiles(mediaR, diagR)
		<-drained
		return nil, nil, newError(KindPipeUnavailable, "spawn transcoder", locator, nil, fmt.Errorf("audio pipe: %w", err))
	}

	transcoderCmd := exec.Command(s.config.Transcoder.BinaryPath, TranscoderArgs(offset)...)
	transcoderCmd.Stdin = mediaR
	transcoderCmd.Stdout = audioW

	transcoder, err := startProcess("transcoder", transcoderCmd)
	closeFiles(mediaR, audioW)
	if err != nil {
		terminateAll(s.config.Process.TerminateGrace, resolver)
		closeFiles(audioR, diagR)
		<-drained
		return nil, nil, newError(KindProcessSpawn, "spawn transcoder", locator, nil, err)
	}

	logger = logger.With().Int("transcoder_pid", transcoder.pid()).Logger()
	logger.Info().Str("title", md.DisplayTitle()).Msg("Pipeline started")
	livePipelines.Inc()

	return &Pipeline{
		locator:    locator,
		offset:     offset,
		resolver:   resolver,
		transcoder: transcoder,
		audio:      audioR,
		diag:       diagR,
		drained:    drained,
		tail:       tail,
		grace:      s.config.Process.TerminateGrace,
		logger:     logger,
	}, md, nil
}

// FetchMetadata runs a short-lived resolver invocation without media
// transfer and decodes its record.
func (s *Spawner) FetchMetadata(ctx context.Context, locator string) (*Metadata, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, ErrEmptyLocator
	}

	stdout, stderr, exitErr, err := s.runResolver(ctx, MetadataArgs(s.config.Resolver.Format, locator))
	if err != nil {
		return nil, newError(KindProcessSpawn, "fetch metadata", locator, nil, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	raw := stderr
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = stdout
	}

	md, err := interpretDiagnostic(raw, exitErr)
	// Stray diagnostic lines do not hide a record on stdout.
	if IsKind(err, KindMetadataParse) && len(bytes.TrimSpace(stdout)) > 0 && !bytes.Equal(raw, stdout) {
		if fromStdout, stdoutErr := ParseMetadata(stdout); stdoutErr == nil {
			md, err = fromStdout, nil
		}
	}
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.Op = "fetch metadata"
			pe.Locator = locator
		}
		s.logger.Warn().Err(err).Str("locator", locator).Msg("Metadata fetch failed")
		return nil, err
	}

	s.logger.Debug().Str("locator", locator).Str("title", md.DisplayTitle()).Msg("Fetched metadata")
	return md, nil
}

// runResolver runs the resolver to completion. err is set only when the
// process could not be started; exitErr carries a non-zero exit.
func (s *Spawner) runResolver(ctx context.Context, args []string) (stdout, stderr []byte, exitErr, err error) {
	var outBuf, errBuf bytes.Buffer

	cmd := exec.CommandContext(ctx, s.config.Resolver.BinaryPath, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return signalGroup(cmd, stopForce)
	}
	cmd.WaitDelay = s.config.Process.TerminateGrace

	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	exitErr = cmd.Wait()

	return outBuf.Bytes(), errBuf.Bytes(), exitErr, nil
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
