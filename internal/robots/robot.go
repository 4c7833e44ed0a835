package robots

/*
Responsibilities

- Fetch robots.txt per host
- Cache rules for crawl duration
- Enforce allow/disallow rules before enqueue

Robots checks occur before a URL enters the frontier.
*/

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/robots/cache"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

// CachedRobot decides whether a URL may be crawled, fetching and caching a
// per-host ruleSet the first time a host is seen.
type CachedRobot struct {
	fetcher *RobotsFetcher
	mu      sync.RWMutex
	rules   map[string]ruleSet
}

// NewCachedRobot creates a Robot with an in-memory robots.txt cache and a
// recorder wired for telemetry.
func NewCachedRobot(recorder *telemetry.Recorder, userAgent string) CachedRobot {
	return CachedRobot{
		fetcher: NewRobotsFetcher(recorder, userAgent, cache.NewMemoryCache()),
		rules:   make(map[string]ruleSet),
	}
}

// NewCachedRobotWithFetcher allows injecting a pre-built fetcher, used in
// tests to point at an httptest.Server.
func NewCachedRobotWithFetcher(fetcher *RobotsFetcher) CachedRobot {
	return CachedRobot{
		fetcher: fetcher,
		rules:   make(map[string]ruleSet),
	}
}

// Decide fetches (or reuses a cached) ruleSet for target's host and returns
// whether the URL may be crawled.
func (r *CachedRobot) Decide(ctx context.Context, target url.URL) Decision {
	host := target.Host
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rs, ok := r.ruleSetFor(host)
	if !ok {
		result, err := r.fetcher.Fetch(ctx, scheme, host)
		if err != nil {
			// Fail open: a robots.txt we could not fetch does not block
			// the crawl, it just means no declared restrictions apply.
			rs = ruleSet{host: host, userAgent: r.fetcher.UserAgent(), fetchedAt: time.Now()}
		} else {
			rs = MapResponseToRuleSet(result.Response, r.fetcher.UserAgent(), result.FetchedAt)
		}
		r.mu.Lock()
		r.rules[host] = rs
		r.mu.Unlock()
	}

	return evaluate(target, rs)
}

func (r *CachedRobot) ruleSetFor(host string) (ruleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.rules[host]
	return rs, ok
}

// evaluate applies the standard robots.txt precedence: the longest matching
// rule wins; an allow and a disallow of equal length favors allow.
func evaluate(target url.URL, rs ruleSet) Decision {
	if !rs.hasGroups {
		return Decision{Url: target, Allowed: true, Reason: EmptyRuleSet}
	}
	if !rs.matchedGroup {
		return Decision{Url: target, Allowed: true, Reason: UserAgentNotMatched}
	}

	path := target.Path
	if path == "" {
		path = "/"
	}

	bestAllowLen := -1
	for _, rule := range rs.allowRules {
		if matchesRobotsPath(path, rule.prefix) && len(rule.prefix) > bestAllowLen {
			bestAllowLen = len(rule.prefix)
		}
	}
	bestDisallowLen := -1
	for _, rule := range rs.disallowRules {
		if matchesRobotsPath(path, rule.prefix) && len(rule.prefix) > bestDisallowLen {
			bestDisallowLen = len(rule.prefix)
		}
	}

	if bestDisallowLen < 0 {
		return Decision{Url: target, Allowed: true, Reason: NoMatchingRules, CrawlDelay: rs.crawlDelay}
	}
	if bestAllowLen >= bestDisallowLen {
		return Decision{Url: target, Allowed: true, Reason: AllowedByRobots, CrawlDelay: rs.crawlDelay}
	}
	return Decision{Url: target, Allowed: false, Reason: DisallowedByRobots, CrawlDelay: rs.crawlDelay}
}

// matchesRobotsPath supports the two robots.txt wildcards: "*" (any run of
// characters) and a trailing "$" (end-of-path anchor).
func matchesRobotsPath(path, pattern string) bool {
	if pattern == "" {
		return false
	}
	anchored := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")

	segments := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, segments[0]) {
		return false
	}

	rest := path[len(segments[0]):]
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" {
			continue
		}
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(seg):]
	}

	if anchored {
		return rest == "" || pattern == path
	}
	return true
}
