// Package hostname implements normalization and matching of hostnames
// against configured rule domains. All functions are pure; callers are
// expected to normalize persisted keys before lookup.
package hostname

import (
	"strings"
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

// Normalize canonicalizes a raw hostname: trims surrounding whitespace,
// lowercases, and strips a single trailing FQDN dot. Idempotent.
func Normalize(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimSuffix(h, ".")
	return h
}

// Covers reports whether a rule configured for ruleHost governs pageHost.
// It is true for an exact match or when pageHost is a subdomain of
// ruleHost, respecting label boundaries: "m.youtube.com" is covered by
// "youtube.com", but "xnyoutube.com" is not. The relation is not
// symmetric; the apex is never covered by a subdomain rule.
func Covers(pageHost, ruleHost string) bool {
	page := Normalize(pageHost)
	rule := Normalize(ruleHost)
	if page == "" || rule == "" {
		return false
	}
	if page == rule {
		return true
	}
	return strings.HasSuffix(page, "."+rule)
}

// MatchesAny reports whether any of the configured domains covers host.
func MatchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if Covers(host, d) {
			return true
		}
	}
	return false
}

// SumUsageUnder sums recorded active time for every usage key covered by
// the configured domain. This is how a rule for "twitter.com" aggregates
// time recorded separately under "m.twitter.com". Callers that need
// reset-window awareness pass a pre-filtered view of the map.
func SumUsageUnder(configuredDomain string, usage storage.UsageMap) time.Duration {
	var total time.Duration
	for key, u := range usage {
		if Covers(key, configuredDomain) {
			total += u.ActiveDuration()
		}
	}
	return total
}
