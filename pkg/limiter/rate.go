package limiter

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rohmanhakim/newscrawl/pkg/timeutil"
)

// RateLimiter bookkeeps each hostname's last fetch timestamp and computes
// the final delay for each hostname given base delay, robots crawl-delay,
// and exponential backoff.
type RateLimiter interface {
	SetBaseDelay(baseDelay time.Duration)
	SetJitter(jitter time.Duration)
	SetRandomSeed(randomSeed int64)
	SetBackoffParam(param timeutil.BackoffParam)
	SetCrawlDelay(host string, delay time.Duration)
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	SetRNG(rng interface{})
	ResolveDelay(host string) time.Duration
}

type ConcurrentRateLimiter struct {
	mu           sync.RWMutex
	rngMu        sync.Mutex
	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

func NewConcurrentRateLimiter() *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		backoffParam: timeutil.NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ConcurrentRateLimiter) SetBaseDelay(baseDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseDelay = baseDelay
}

func (r *ConcurrentRateLimiter) SetJitter(jitter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jitter = jitter
}

func (r *ConcurrentRateLimiter) SetRandomSeed(randomSeed int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	r.rng = rand.New(rand.NewSource(randomSeed))
}

// SetBackoffParam replaces the exponential backoff curve used by Backoff.
func (r *ConcurrentRateLimiter) SetBackoffParam(param timeutil.BackoffParam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backoffParam = param
}

// SetCrawlDelay sets a per-host delay, separate from the global base delay.
// Used to thread a robots.txt-declared Crawl-delay into politeness.
func (r *ConcurrentRateLimiter) SetCrawlDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.crawlDelay = delay
	r.hostTimings[host] = t
}

// Backoff triggers exponential backoff for the given host, incrementing
// its backoff counter and recomputing its backoff delay.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.backoffCount++

	r.rngMu.Lock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng := r.rng
	r.rngMu.Unlock()

	t.backoffDelay = timeutil.ExponentialBackoffDelay(t.backoffCount, r.jitter, *rng, r.backoffParam)
	r.hostTimings[host] = t
}

// ResetBackoff clears the backoff state for host, called after a
// successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.hostTimings[host]
	if !exists {
		return
	}
	t.backoffCount = 0
	t.backoffDelay = 0
	r.hostTimings[host] = t
}

// MarkLastFetchAsNow records that host was just fetched.
func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.lastFetchAt = time.Now()
	r.hostTimings[host] = t
}

// SetRNG injects a custom random number generator, for deterministic tests.
func (r *ConcurrentRateLimiter) SetRNG(rng interface{}) {
	randImpl, ok := rng.(*rand.Rand)
	if !ok {
		return
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	r.rng = randImpl
}

// ResolveDelay computes the remaining wait time before host may be fetched
// again: max(baseDelay, crawlDelay, backoffDelay) + jitter, minus elapsed
// time since the last fetch. Returns 0 once that window has passed, and 0
// for hosts never seen before.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	r.mu.RLock()
	t, exists := r.hostTimings[host]
	base := r.baseDelay
	jitter := r.jitter
	r.mu.RUnlock()

	if !exists {
		return 0
	}

	finalDelay := timeutil.MaxDuration([]time.Duration{base, t.crawlDelay, t.backoffDelay})

	r.rngMu.Lock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	finalDelay += timeutil.ComputeJitter(jitter, *r.rng)
	r.rngMu.Unlock()

	elapsed := time.Since(t.lastFetchAt)
	if elapsed < finalDelay {
		return finalDelay - elapsed
	}
	return 0
}

func (r *ConcurrentRateLimiter) BaseDelay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseDelay
}

func (r *ConcurrentRateLimiter) Jitter() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jitter
}

func (r *ConcurrentRateLimiter) RNG() *rand.Rand {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng
}

// HostTimings returns a shallow copy of the per-host timing map, safe for
// the caller to range over without holding any internal lock.
func (r *ConcurrentRateLimiter) HostTimings() map[string]hostTiming {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]hostTiming, len(r.hostTimings))
	for k, v := range r.hostTimings {
		out[k] = v
	}
	return out
}
