package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pipeline is a running resolver+transcoder pair. It owns both processes and
// every pipe between them; Close tears all of it down at once.
type Pipeline struct {
	locator string
	offset  *time.Duration

	resolver   *process
	transcoder *process

	audio   *os.File
	diag    *os.File
	drained chan struct{}
	tail    *lineRing

	grace  time.Duration
	logger zerolog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
}

// Read reads transcoded f32le PCM. At the end of the stream it returns
// io.EOF if the transcoder exited cleanly and ErrTranscoderExit otherwise.
func (p *Pipeline) Read(b []byte) (int, error) {
	n, err := p.audio.Read(b)
	if err == nil {
		return n, nil
	}
	if p.closed.Load() || errors.Is(err, os.ErrClosed) {
		return n, ErrPipelineClosed
	}
	if !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read audio: %w", err)
	}

	// The transcoder closed its output; give it the grace period to exit.
	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-p.transcoder.done:
	case <-timer.C:
		return n, io.EOF
	}

	if exitErr := p.transcoder.err; exitErr != nil && !p.closed.Load() {
		p.logger.Warn().Err(exitErr).Str("resolver_tail", p.tail.String()).Msg("Transcoder exited with failure")
		return n, fmt.Errorf("%w: %v", ErrTranscoderExit, exitErr)
	}
	return n, io.EOF
}

// Close terminates both processes (graceful signal, bounded grace, then
// kill), reaps them and closes every pipe. Safe to call more than once.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		terminateAll(p.grace, p.transcoder, p.resolver)

		// With the resolver gone the drain normally sees EOF on its own.
		timer := time.NewTimer(p.grace)
		select {
		case <-p.drained:
		case <-timer.C:
		}
		timer.Stop()
		closeFiles(p.diag)
		<-p.drained
		closeFiles(p.audio)
		livePipelines.Dec()
		p.logger.Debug().Msg("Pipeline closed")
	})
	return nil
}

// Locator returns the locator this pipeline was spawned for.
func (p *Pipeline) Locator() string {
	return p.locator
}

// Offset returns the seek offset the pipeline started at, or nil.
func (p *Pipeline) Offset() *time.Duration {
	return p.offset
}

// PIDs returns the resolver and transcoder process IDs.
func (p *Pipeline) PIDs() (resolver, transcoder int) {
	return p.resolver.pid(), p.transcoder.pid()
}

// ResolverTail returns the last diagnostic lines the resolver wrote after
// its metadata record.
func (p *Pipeline) ResolverTail() []string {
	return p.tail.Lines()
}
