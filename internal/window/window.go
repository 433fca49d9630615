// Package window implements the lazy per-domain reset window. Expiry is
// evaluated only when a domain's usage is about to be read or written;
// there is no background sweep, so long-idle domains keep a stale window
// stamp until they are next visited.
package window

import (
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

// Policy checks and applies the rolling reset window.
type Policy struct {
	Interval time.Duration
}

// ForSettings derives the window policy from the configured reset window.
func ForSettings(settings storage.Settings) Policy {
	return Policy{Interval: settings.ResetWindow.Interval()}
}

// Expired reports whether the usage record's window has elapsed.
func (p Policy) Expired(u storage.DomainUsage, now time.Time) bool {
	if u.WindowStart.IsZero() {
		return false
	}
	return now.Sub(u.WindowStart) >= p.Interval
}

// ResetIfExpired zeroes the counter and restamps the window when it has
// elapsed. Called by the tracking engine immediately before any write.
func (p Policy) ResetIfExpired(u *storage.DomainUsage, now time.Time) bool {
	if !p.Expired(*u, now) {
		return false
	}
	u.ActiveSeconds = 0
	u.WindowStart = now
	return true
}

// LiveView returns a read-side view of the usage map with expired
// entries removed. Nothing is written back; the on-disk record resets
// only when new time is accumulated for that domain.
func (p Policy) LiveView(usage storage.UsageMap, now time.Time) storage.UsageMap {
	live := make(storage.UsageMap, len(usage))
	for key, u := range usage {
		if p.Expired(u, now) {
			continue
		}
		live[key] = u
	}
	return live
}
