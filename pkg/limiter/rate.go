package limiter

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/booth-archiver/pkg/timeutil"
)

// RateLimiter keeps requests to the same host politely spaced.
// Responsibilities:
// - Bookkeep each host's last request timestamp
// - Grow a per-host backoff after throttling responses, reset it on success
// - Block callers until the host may be requested again
type RateLimiter interface {
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	ResolveDelay(host string) time.Duration
	Wait(ctx context.Context, host string) error
}

type ConcurrentRateLimiter struct {
	mu           sync.Mutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentRateLimiter(
	baseDelay time.Duration,
	jitter time.Duration,
	randomSeed int64,
	backoffParam timeutil.BackoffParam,
) *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		baseDelay:    baseDelay,
		jitter:       jitter,
		backoffParam: backoffParam,
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(randomSeed)),
	}
}

// Backoff increments the host's backoff counter and recomputes its delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.backoffCount++
	timing.backoffDelay = timeutil.ExponentialBackoffDelay(timing.backoffCount, 0, nil, r.backoffParam)
	r.hostTimings[host] = timing
}

// ResetBackoff clears backoff state after a successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timing, ok := r.hostTimings[host]; ok {
		timing.backoffCount = 0
		timing.backoffDelay = 0
		r.hostTimings[host] = timing
	}
}

func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timing := r.hostTimings[host]
	timing.lastFetchAt = time.Now()
	r.hostTimings[host] = timing
}

// ResolveDelay returns how long a caller must still wait before requesting host.
// FinalDelay = max(BaseDelay, BackoffDelay) + Jitter, minus the time since the last request.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.Lock()
	timing, exists := r.hostTimings[host]
	base := r.baseDelay
	r.mu.Unlock()

	if !exists {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, timing.backoffDelay})
	finalDelay += r.computeJitter()

	elapsed := time.Since(timing.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

// Wait sleeps for the resolved delay, then marks the host as fetched.
func (r *ConcurrentRateLimiter) Wait(ctx context.Context, host string) error {
	if err := timeutil.SleepContext(ctx, r.ResolveDelay(host)); err != nil {
		return err
	}
	r.MarkLastFetchAsNow(host)
	return nil
}

func (r *ConcurrentRateLimiter) computeJitter() time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return timeutil.ComputeJitter(r.jitter, r.rng)
}

// HostTiming returns a copy of the host's bookkeeping.
func (r *ConcurrentRateLimiter) HostTiming(host string) (hostTiming, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timing, ok := r.hostTimings[host]
	return timing, ok
}
