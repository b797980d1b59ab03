package common

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Cantdrown/pkg/pipeline"
	"github.com/rs/zerolog"
	"layeh.com/gopus"
)

const (
	// FrameSamples is 20ms of audio per channel at 48kHz.
	FrameSamples  = pipeline.OutputSampleRate / 50
	FrameDuration = 20 * time.Millisecond
	// FrameBytes is one 20ms frame of interleaved f32le PCM.
	FrameBytes = FrameSamples * pipeline.OutputChannels * pipeline.OutputSampleBytes

	opusBitrate  = 128000
	maxOpusBytes = 4000
	seekHandoff  = 5 * time.Second
)

var (
	ErrAlreadyPlaying = errors.New("player is already playing")
	ErrNotPlaying     = errors.New("nothing is playing")
)

// frameEncoder is the part of *gopus.Encoder the player uses.
type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

type seekRequest struct {
	position time.Duration
	done     chan error
}

// Player streams one source at a time to a voice connection: it reads 20ms
// f32le frames, converts them to int16, encodes them to Opus and sends them.
// Apart from Interrupt, every Source call for the playing source happens on
// the Play goroutine.
type Player struct {
	opus     chan<- []byte
	speaking func(bool) error
	encoder  frameEncoder
	logger   zerolog.Logger

	seeks chan seekRequest

	mu       sync.Mutex
	source   *pipeline.Source
	metadata *pipeline.Metadata
	cancel   context.CancelFunc
	done     chan struct{}
	paused   bool
	resume   chan struct{}
	offset   time.Duration
	frames   int64
}

// NewPlayer creates a player sending Opus frames to vc.
func NewPlayer(vc *discordgo.VoiceConnection, logger zerolog.Logger) (*Player, error) {
	encoder, err := gopus.NewEncoder(pipeline.OutputSampleRate, pipeline.OutputChannels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	encoder.SetBitrate(opusBitrate)

	return newPlayer(vc.OpusSend, vc.Speaking, encoder, logger.With().Str("guild_id", vc.GuildID).Logger()), nil
}

func newPlayer(opus chan<- []byte, speaking func(bool) error, encoder frameEncoder, logger zerolog.Logger) *Player {
	return &Player{
		opus:     opus,
		speaking: speaking,
		encoder:  encoder,
		logger:   logger.With().Str("component", "player").Logger(),
		seeks:    make(chan seekRequest),
	}
}

// Play streams src until it ends, fails or Stop is called. A source that is
// not live yet (lazy) is restarted from the beginning first. Returns nil on
// end of track and on Stop.
func (p *Player) Play(ctx context.Context, src *pipeline.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	if p.source != nil {
		p.mu.Unlock()
		cancel()
		return ErrAlreadyPlaying
	}
	p.source = src
	p.cancel = cancel
	p.done = done
	p.paused = false
	p.resume = nil
	p.offset = 0
	p.frames = 0
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		p.source = nil
		p.metadata = nil
		p.cancel = nil
		p.done = nil
		p.mu.Unlock()
		close(done)
	}()

	// Unblocks a Read stuck on a stalled pipeline.
	stopInterrupt := context.AfterFunc(ctx, src.Interrupt)
	defer stopInterrupt()

	logger := p.logger.With().Str("locator", src.Locator()).Logger()

	if src.State() != pipeline.StateLive {
		if err := src.Restart(ctx, nil); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	p.publishMetadata(src)

	if err := p.speaking(true); err != nil {
		logger.Warn().Err(err).Msg("Failed to set speaking")
	}
	defer func() {
		if err := p.speaking(false); err != nil {
			logger.Debug().Err(err).Msg("Failed to clear speaking")
		}
	}()

	pcm := make([]byte, FrameBytes)
	samples := make([]int16, FrameSamples*pipeline.OutputChannels)

	for {
		if resume := p.pausedChan(); resume != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-resume:
			case req := <-p.seeks:
				if err := p.handleSeek(ctx, src, req); err != nil {
					return err
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case req := <-p.seeks:
			if err := p.handleSeek(ctx, src, req); err != nil {
				return err
			}
			continue
		default:
		}

		if _, err := io.ReadFull(src, pcm); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, pipeline.ErrPipelineClosed) {
				// Seek interrupted the read; its request follows.
				if err := p.awaitSeek(ctx, src); err != nil {
					return err
				}
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Info().Int64("frames", p.frameCount()).Msg("Track finished")
				return nil
			}
			return fmt.Errorf("error reading PCM data: %w", err)
		}

		Float32ToInt16(pcm, samples)
		frame, err := p.encoder.Encode(samples, FrameSamples, maxOpusBytes)
		if err != nil {
			logger.Warn().Err(err).Msg("Opus encoding error")
			continue
		}

		select {
		case p.opus <- frame:
		case <-ctx.Done():
			return nil
		}

		p.mu.Lock()
		p.frames++
		p.mu.Unlock()
	}
}

func (p *Player) handleSeek(ctx context.Context, src *pipeline.Source, req seekRequest) error {
	err := src.Seek(ctx, req.position)
	if err != nil {
		req.done <- err
		return err
	}

	p.mu.Lock()
	p.offset = req.position
	p.frames = 0
	p.mu.Unlock()
	p.publishMetadata(src)
	req.done <- nil
	p.logger.Info().Str("position", FormatPosition(req.position)).Msg("Seeked")
	return nil
}

// publishMetadata records the metadata of the pipeline src is now running.
func (p *Player) publishMetadata(src *pipeline.Source) {
	md, err := src.Metadata()
	if err != nil {
		return
	}
	p.mu.Lock()
	p.metadata = md
	p.mu.Unlock()
}

// awaitSeek waits briefly for the seek request that interrupted a read.
func (p *Player) awaitSeek(ctx context.Context, src *pipeline.Source) error {
	timer := time.NewTimer(seekHandoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case req := <-p.seeks:
		return p.handleSeek(ctx, src, req)
	case <-timer.C:
		return fmt.Errorf("error reading PCM data: %w", pipeline.ErrPipelineClosed)
	}
}

// Seek restarts the playing source at position. The current read is
// interrupted and the restart happens on the Play goroutine.
func (p *Player) Seek(ctx context.Context, position time.Duration) error {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src == nil {
		return ErrNotPlaying
	}
	src.Interrupt()

	req := seekRequest{position: position, done: make(chan error, 1)}
	select {
	case p.seeks <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends playback and waits for Play to return.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Pause holds playback between frames. Returns false if already paused or idle.
func (p *Player) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil || p.paused {
		return false
	}
	p.paused = true
	p.resume = make(chan struct{})
	return true
}

// Resume continues paused playback. Returns false if not paused.
func (p *Player) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return false
	}
	p.paused = false
	close(p.resume)
	p.resume = nil
	return true
}

// IsPlaying reports whether a source is being played (paused counts).
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source != nil
}

// IsPaused reports whether playback is paused.
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Metadata returns the metadata of the pipeline being played, or nil when idle.
// It follows every restart, so it can differ from what was known at enqueue.
func (p *Player) Metadata() *pipeline.Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metadata
}

// Position returns the playback position within the track.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset + time.Duration(p.frames)*FrameDuration
}

func (p *Player) pausedChan() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return nil
	}
	return p.resume
}

func (p *Player) frameCount() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// Float32ToInt16 converts interleaved f32le samples to int16, clamping to [-1, 1].
func Float32ToInt16(pcm []byte, samples []int16) {
	n := len(pcm) / pipeline.OutputSampleBytes
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:]))
		switch {
		case math.IsNaN(float64(v)):
			v = 0
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		samples[i] = int16(v * math.MaxInt16)
	}
}

// FormatPosition renders a position as m:ss or h:mm:ss.
func FormatPosition(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
