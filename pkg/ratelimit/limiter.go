// Package ratelimit paces outbound requests to a public API.
//
// The Limiter is a token bucket: one permit is consumed per request and
// permits refill at a fixed interval. With burst 1 this reproduces a fixed
// delay between consecutive requests, but the policy is driven by an injected
// Clock so it can be verified without real sleeping.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultInterval is the spacing between detail requests.
const DefaultInterval = 200 * time.Millisecond

// Prometheus metrics for request pacing.
var (
	pacingWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_pacing_waits_total",
		Help: "Total number of requests that had to wait for a pacing permit",
	})

	pacingWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokeapi_pacing_wait_seconds",
		Help:    "Time spent waiting for a pacing permit",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5},
	})
)

// Limiter hands out request permits at a fixed rate.
type Limiter struct {
	limiter  *rate.Limiter
	clock    Clock
	interval time.Duration
	logger   zerolog.Logger
}

// Option configures a Limiter.
type Option func(*limiterOptions)

type limiterOptions struct {
	clock  Clock
	burst  int
	logger zerolog.Logger
}

// WithClock replaces the real clock, typically with a VirtualClock in tests.
func WithClock(clock Clock) Option {
	return func(o *limiterOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBurst allows up to n requests back to back before pacing applies.
func WithBurst(n int) Option {
	return func(o *limiterOptions) {
		if n > 0 {
			o.burst = n
		}
	}
}

// WithLogger sets the logger used for pacing debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *limiterOptions) {
		o.logger = logger
	}
}

// NewLimiter creates a limiter that refills one permit every interval.
// An interval <= 0 disables pacing.
func NewLimiter(interval time.Duration, opts ...Option) *Limiter {
	o := limiterOptions{
		clock:  RealClock{},
		burst:  1,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Limiter{
		limiter:  rate.NewLimiter(limit, o.burst),
		clock:    o.clock,
		interval: interval,
		logger:   o.logger,
	}
}

// Interval returns the configured refill interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Drain empties the bucket so that the next Wait sleeps for a full
// interval. It is a no-op when pacing is disabled.
func (l *Limiter) Drain() {
	if l.interval <= 0 {
		return
	}
	now := l.clock.Now()
	if n := int(l.limiter.TokensAt(now)); n > 0 {
		l.limiter.ReserveN(now, n)
	}
}

// Wait consumes one permit, sleeping on the limiter's clock until it is
// available. If ctx ends while waiting the permit is returned to the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("pacing permit unavailable (burst %d)", l.limiter.Burst())
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	pacingWaitsTotal.Inc()
	pacingWaitSeconds.Observe(delay.Seconds())
	l.logger.Debug().Dur("delay", delay).Msg("Waiting for pacing permit")

	if err := l.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(l.clock.Now())
		return err
	}
	return nil
}
