package scheduler

import (
	"net/url"
	"strings"

	"github.com/rohmanhakim/newscrawl/internal/config"
)

// scopeFromConfig builds a frontier.ScopePredicate from the crawl's
// allowed-hosts/allowed-path-prefix configuration. An empty allow-list
// matches config.Build()'s own default of "seed URL hosts only".
func scopeFromConfig(cfg config.Config) func(u url.URL) bool {
	hosts := cfg.AllowedHosts()
	prefixes := cfg.AllowedPathPrefix()

	return func(u url.URL) bool {
		if len(hosts) > 0 {
			if _, ok := hosts[u.Host]; !ok {
				return false
			}
		}
		if len(prefixes) == 0 {
			return true
		}
		for _, p := range prefixes {
			if strings.HasPrefix(u.Path, p) {
				return true
			}
		}
		return false
	}
}
