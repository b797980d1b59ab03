package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Gate is the process-wide admission control for resolver invocations.
// Tokens refill smoothly at capacity/window; the bucket holds at most
// capacity tokens. Gate never rejects, it only delays.
type Gate struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGate creates a gate granting capacity tokens per window. The bucket
// starts full, so a cold gate admits capacity grants at once plus whatever
// refills during the first window; the capacity-per-window bound holds once
// that initial burst is spent.
func NewGate(capacity int, window time.Duration, logger zerolog.Logger) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	interval := window / time.Duration(capacity)

	return &Gate{
		limiter: rate.NewLimiter(rate.Every(interval), capacity),
		logger:  logger.With().Str("component", "gate").Logger(),
	}
}

// NewGateFromConfig creates the gate from the startup configuration.
func NewGateFromConfig(cfg GateConfig, logger zerolog.Logger) *Gate {
	return NewGate(cfg.Capacity, cfg.Window, logger)
}

// Acquire returns once a token was taken. If none is available it computes
// how long until the next token and sleeps, then polls again. The only error
// is ctx.Err() when the caller gives up.
func (g *Gate) Acquire(ctx context.Context) error {
	start := time.Now()
	defer func() {
		gateWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	for {
		now := time.Now()
		if g.limiter.AllowN(now, 1) {
			if waited := time.Since(start); waited >= time.Millisecond {
				g.logger.Debug().Dur("waited", waited).Msg("Resolver slot granted after wait")
			}
			return nil
		}

		wait := g.untilNextToken(now)
		g.logger.Debug().Dur("wait", wait).Msg("Resolver slot unavailable, waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// untilNextToken returns the time until one whole token is in the bucket.
func (g *Gate) untilNextToken(now time.Time) time.Duration {
	missing := 1 - g.limiter.TokensAt(now)
	if missing <= 0 {
		return time.Millisecond
	}
	seconds := missing / float64(g.limiter.Limit())
	wait := time.Duration(math.Ceil(seconds * float64(time.Second)))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}
