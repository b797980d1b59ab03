package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source is the caller-facing restartable handle for one locator.
//
// Source does not lock its own transitions: callers serialize Init, Restart,
// Read and Close per source. Interrupt is the exception and may be called
// from any goroutine to unblock a pending Read.
type Source struct {
	spawner *Spawner
	locator string
	logger  zerolog.Logger

	state    State
	metadata *Metadata
	err      error

	mu       sync.Mutex
	pipeline *Pipeline
}

// NewSource returns an uninitialized source. No process is spawned.
func NewSource(spawner *Spawner, locator string) *Source {
	return &Source{
		spawner: spawner,
		locator: locator,
		logger:  spawner.logger.With().Str("component", "source").Str("locator", locator).Logger(),
		state:   StateUninitialized,
	}
}

// Init performs construction. Eager sources spawn the pipeline immediately;
// lazy sources only fetch metadata and defer the spawn to Restart.
func (s *Source) Init(ctx context.Context, lazy bool) error {
	if !lazy {
		return s.Restart(ctx, nil)
	}

	s.teardown()
	md, err := s.spawner.FetchMetadata(ctx, s.locator)
	if err != nil {
		s.fail(err)
		return err
	}

	s.metadata = md
	s.changeState(StateMetadataOnly, "metadata fetched")
	return nil
}

// Restart discards any held pipeline and spawns a new one starting at
// offset (nil for the beginning). This is the only way to seek.
func (s *Source) Restart(ctx context.Context, offset *time.Duration) error {
	restartTotal.Inc()
	s.teardown()

	p, md, err := s.spawner.Spawn(ctx, s.locator, offset)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.pipeline = p
	s.mu.Unlock()
	s.metadata = md
	s.err = nil
	reason := "spawned"
	if offset != nil {
		reason = "spawned at " + FormatOffset(*offset)
	}
	s.changeState(StateLive, reason)
	return nil
}

// Seek restarts the source at position.
func (s *Source) Seek(ctx context.Context, position time.Duration) error {
	if position < 0 {
		position = 0
	}
	return s.Restart(ctx, &position)
}

// Metadata returns the metadata of the most recent successful init or restart.
func (s *Source) Metadata() (*Metadata, error) {
	switch s.state {
	case StateMetadataOnly, StateLive:
		return s.metadata, nil
	default:
		return nil, fmt.Errorf("%w: state %s", ErrNoMetadata, s.state)
	}
}

// Read reads audio bytes. Only a live source can be read.
func (s *Source) Read(b []byte) (int, error) {
	p := s.current()
	if s.state != StateLive || p == nil {
		return 0, fmt.Errorf("%w: state %s", ErrNotLive, s.state)
	}
	return p.Read(b)
}

// Interrupt closes the held pipeline without a state change, so a pending or
// later Read returns ErrPipelineClosed. Restart or Close clean up after it.
func (s *Source) Interrupt() {
	if p := s.current(); p != nil {
		_ = p.Close()
	}
}

// Close terminates any held pipeline and returns the source to uninitialized.
func (s *Source) Close() error {
	s.teardown()
	if s.state != StateFailed {
		s.changeState(StateUninitialized, "closed")
	}
	return nil
}

// State returns the current state.
func (s *Source) State() State {
	return s.state
}

// Err returns the failure reason while in StateFailed.
func (s *Source) Err() error {
	return s.err
}

// Locator returns the locator the source was created for.
func (s *Source) Locator() string {
	return s.locator
}

func (s *Source) current() *Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

func (s *Source) teardown() {
	s.mu.Lock()
	p := s.pipeline
	s.pipeline = nil
	s.mu.Unlock()

	if p != nil {
		_ = p.Close()
	}
	s.metadata = nil
}

func (s *Source) fail(err error) {
	s.teardown()
	s.err = err
	s.changeState(StateFailed, err.Error())
}

func (s *Source) changeState(to State, reason string) {
	from := s.state
	s.state = to
	s.logger.Debug().
		Str("from", from.String()).
		Str("to", to.String()).
		Str("reason", reason).
		Msg("Source state changed")
}
