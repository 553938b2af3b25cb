package analysis

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/spigell/cv-screener/internal/utils"
)

// DefaultDelay is the pause between two model calls when no rate limit is configured.
const DefaultDelay = 2 * time.Second

// Pacer throttles the sequence of model calls within a run.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay sleeps for a constant interval after each candidate.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Wait(ctx context.Context) error {
	return utils.WaitFor(ctx, f.Delay)
}

// TokenBucket admits calls at a steady rate with an optional burst.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(rps float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	// The first candidate has already been sent when Wait is called.
	limiter.AllowN(time.Now(), burst)
	return &TokenBucket{limiter: limiter}
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// PacerConfig selects a Pacer. RPS above zero enables the token bucket,
// otherwise a non-positive Delay disables pacing.
type PacerConfig struct {
	Delay time.Duration
	RPS   float64
	Burst int
}

func NewPacer(cfg PacerConfig) Pacer {
	if cfg.RPS > 0 {
		return NewTokenBucket(cfg.RPS, cfg.Burst)
	}
	if cfg.Delay <= 0 {
		return FixedDelay{}
	}
	return FixedDelay{Delay: cfg.Delay}
}
