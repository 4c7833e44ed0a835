package limiter

import (
	"sync"

	"golang.org/x/time/rate"
)

// HostBucketPool hands out a token-bucket limiter per host, sized so that
// bursts stay bounded even when ResolveDelay briefly admits several
// requests back to back (e.g. right after ResetBackoff). It complements
// ConcurrentRateLimiter rather than replacing it: ResolveDelay governs the
// steady-state gap between requests, the bucket governs burst width.
type HostBucketPool struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
}

func NewHostBucketPool(requestsPerSecond float64, burst int) *HostBucketPool {
	if burst < 1 {
		burst = 1
	}
	return &HostBucketPool{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

func (p *HostBucketPool) bucketFor(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[host]
	if !ok {
		b = rate.NewLimiter(p.rate, p.burst)
		p.buckets[host] = b
	}
	return b
}

// Allow reports whether a request to host may proceed right now without
// waiting, consuming a token if so.
func (p *HostBucketPool) Allow(host string) bool {
	return p.bucketFor(host).Allow()
}

// SetCrawlDelay narrows a host's bucket rate to match a robots.txt
// crawl-delay, expressed as requests per second.
func (p *HostBucketPool) SetCrawlDelay(host string, requestsPerSecond float64) {
	b := p.bucketFor(host)
	b.SetLimit(rate.Limit(requestsPerSecond))
}
