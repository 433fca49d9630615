package tracking

import (
	"net/url"
	"strings"

	"github.com/goodtune/sitewarden/internal/hostname"
)

// Trackable maps a raw focus report to a normalized hostname eligible
// for accumulation. Only externally-addressable web-navigable hostnames
// qualify; browser-internal surfaces (new-tab pages, devtools, extension
// pages, single-label hosts like "localhost") map to the idle state.
// Full URLs are accepted and reduced to their host.
func Trackable(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", false
		}
		raw = u.Hostname()
	}

	h := hostname.Normalize(raw)
	if h == "" || strings.ContainsAny(h, " /\\?#@:") {
		return "", false
	}
	// A routable web hostname has at least two labels. This drops
	// new-tab pages, "localhost", and bare internal names.
	if !strings.Contains(h, ".") {
		return "", false
	}
	return h, true
}
