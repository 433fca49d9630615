package policy

import (
	"fmt"
	"time"

	"github.com/goodtune/sitewarden/internal/hostname"
	"github.com/goodtune/sitewarden/internal/storage"
	"github.com/goodtune/sitewarden/internal/window"
)

// BlockedState computes whether a hostname is currently restricted,
// given a snapshot of settings and usage. The locked-in session is
// evaluated before every rule tier: domains outside its allow list are
// blocked unconditionally, domains inside it bypass rule evaluation
// entirely (their usage still accumulates independently).
func (r *Resolver) BlockedState(host string, usage storage.UsageMap, settings storage.Settings, now time.Time) BlockedState {
	if settings.Disabled {
		return BlockedState{}
	}

	h := hostname.Normalize(host)

	if settings.LockedIn.InEffect(now) {
		if !hostname.MatchesAny(h, settings.LockedIn.AllowedDomains) {
			return BlockedState{
				Blocked: true,
				Mode:    storage.ModeBlock,
				Reason:  ReasonLockedIn,
				Message: fmt.Sprintf("locked-in session active until %s", settings.LockedIn.EndsAt.Format(time.Kitchen)),
			}
		}
		return BlockedState{}
	}

	p := r.Resolve(h, settings)
	if p == nil {
		return BlockedState{}
	}

	if p.Mode == storage.ModeBlock {
		return BlockedState{
			Blocked: true,
			Mode:    storage.ModeBlock,
			Reason:  p.Reason,
			Message: "site is blocked",
		}
	}

	used := usedTime(h, p, usage, settings, now)
	remaining := p.Limit - used
	if remaining < 0 {
		remaining = 0
	}

	state := BlockedState{
		Blocked:          remaining <= 0,
		Mode:             storage.ModeLimit,
		Reason:           p.Reason,
		RemainingSeconds: remaining.Seconds(),
	}
	if state.Blocked {
		state.Message = "time limit reached"
	}
	return state
}

// usedTime aggregates accumulated time against the policy's pool.
// Entries whose reset window has elapsed contribute zero; the on-disk
// record is rewritten only when the tracking engine next accumulates.
func usedTime(host string, p *EffectivePolicy, usage storage.UsageMap, settings storage.Settings, now time.Time) time.Duration {
	live := window.ForSettings(settings).LiveView(usage, now)

	switch p.Reason {
	case ReasonSiteRule:
		return hostname.SumUsageUnder(p.ConfiguredDomain, live)
	case ReasonGroup:
		// Shared pool across the whole group, including each
		// domain's own subdomains. Group members that are in a
		// subdomain relationship with each other double-count; see
		// the open questions in DESIGN.md.
		var total time.Duration
		for _, d := range p.GroupDomains {
			total += hostname.SumUsageUnder(d, live)
		}
		return total
	default:
		// Global defaults: exact-hostname lookup, no aggregation.
		if u, ok := live[host]; ok {
			return u.ActiveDuration()
		}
		return 0
	}
}
