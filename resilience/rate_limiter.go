package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidRate is returned for a non-positive rate.
var ErrInvalidRate = errors.New("rate must be greater than 0")

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Rate is the number of admissions allowed per second.
	Rate float64
	// OnLimit is called when an admission is refused.
	OnLimit func(name string)
	// Clock overrides time.Now; tests only.
	Clock func() time.Time
}

// RateLimiter admits at most one unit of work per fixed interval.
type RateLimiter struct {
	config   RateLimiterConfig
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	last     time.Time
	admitted bool
}

// NewRateLimiter creates a rate limiter. A non-positive rate is a
// configuration error.
func NewRateLimiter(config RateLimiterConfig) (*RateLimiter, error) {
	if config.Rate <= 0 {
		return nil, fmt.Errorf("rate limiter %q: %w (got %v)", config.Name, ErrInvalidRate, config.Rate)
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		config:   config,
		interval: IntervalFor(config.Rate),
		now:      now,
	}, nil
}

// IntervalFor converts a requests-per-second ceiling into the minimum
// spacing between admissions.
func IntervalFor(rate float64) time.Duration {
	return time.Duration(float64(time.Second) / rate)
}

// TryAdmit reports whether one unit of work may start now. It is safe to
// call at any frequency; at most one call per interval returns true.
func (rl *RateLimiter) TryAdmit() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if !rl.admitted || now.Sub(rl.last) >= rl.interval {
		rl.last = now
		rl.admitted = true
		return true
	}

	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// NextAdmission returns how long until TryAdmit can next succeed. Zero
// means an admission is available now.
func (rl *RateLimiter) NextAdmission() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.admitted {
		return 0
	}
	wait := rl.interval - rl.now().Sub(rl.last)
	if wait < 0 {
		return 0
	}
	return wait
}

// Interval returns the minimum spacing between admissions.
func (rl *RateLimiter) Interval() time.Duration {
	return rl.interval
}

// Rate returns the configured admissions per second.
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}
