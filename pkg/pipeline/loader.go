package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Loader is the entry point for creation requests: every Open and Expand
// takes a gate token before any resolver runs.
type Loader struct {
	gate    *Gate
	spawner *Spawner
	logger  zerolog.Logger
}

// NewLoader creates a loader sharing gate across all callers.
func NewLoader(gate *Gate, spawner *Spawner, logger zerolog.Logger) *Loader {
	return &Loader{
		gate:    gate,
		spawner: spawner,
		logger:  logger.With().Str("component", "loader").Logger(),
	}
}

// Open creates a source for locator. Eager sources come back live, lazy ones
// with metadata only. On failure nothing is held and the typed error is returned.
func (l *Loader) Open(ctx context.Context, locator string, lazy bool) (*Source, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	if err := l.gate.Acquire(ctx); err != nil {
		return nil, err
	}

	src := NewSource(l.spawner, locator)
	if err := src.Init(ctx, lazy); err != nil {
		l.logger.Warn().Err(err).Str("locator", locator).Bool("lazy", lazy).Msg("Failed to open source")
		return nil, err
	}
	return src, nil
}

// Expand lists the entries of a playlist locator.
func (l *Loader) Expand(ctx context.Context, locator string) ([]*string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	if err := l.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	return l.spawner.ExpandPlaylist(ctx, locator)
}
