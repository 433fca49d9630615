package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mode represents a rule enforcement mode.
type Mode string

const (
	ModeBlock Mode = "block"
	ModeLimit Mode = "limit"
)

// UnmarshalJSON implements json.Unmarshaler to normalize mode to lowercase.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	normalized := Mode(strings.ToLower(s))

	switch normalized {
	case ModeBlock, ModeLimit:
		*m = normalized
		return nil
	default:
		return fmt.Errorf("invalid mode: %s (must be block or limit)", s)
	}
}

// MarshalJSON implements json.Marshaler to ensure lowercase output.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// SiteRule restricts a single domain (and its subdomains).
// LimitMinutes is meaningful only in limit mode; a limit rule without a
// limit is treated as immediately exhausted rather than rejected.
type SiteRule struct {
	Domain       string `json:"domain"`
	Mode         Mode   `json:"mode"`
	LimitMinutes int    `json:"limit_minutes,omitempty"`
	Enabled      bool   `json:"enabled"`
}

// SiteGroup restricts a set of domains together. In limit mode
// LimitMinutes is a shared pool consumed jointly by every domain in the
// group, including each domain's own subdomains.
type SiteGroup struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Domains      []string `json:"domains"`
	Mode         Mode     `json:"mode"`
	LimitMinutes int      `json:"limit_minutes,omitempty"`
	Enabled      bool     `json:"enabled"`
}

// GlobalDefaults is an optional catch-all applied when no rule, group, or
// block-list entry matches. It is matched against the exact hostname only.
type GlobalDefaults struct {
	Mode         Mode `json:"mode"`
	LimitMinutes int  `json:"limit_minutes,omitempty"`
}

// ResetWindow configures the rolling interval after which a domain's
// usage counter zeroes. Global to all domains.
type ResetWindow struct {
	IntervalHours int `json:"interval_hours"`
}

// DefaultResetIntervalHours is used when the configured interval is
// missing or out of the 1..168 range.
const DefaultResetIntervalHours = 24

// Interval returns the reset window as a duration, falling back to the
// default for out-of-range values.
func (w ResetWindow) Interval() time.Duration {
	if w.IntervalHours < 1 || w.IntervalHours > 168 {
		return DefaultResetIntervalHours * time.Hour
	}
	return time.Duration(w.IntervalHours) * time.Hour
}

// LockedInSession is a time-bound allow-list override. While active and
// unexpired it supersedes every other policy tier: domains outside the
// allow list are blocked unconditionally, domains inside it pass through
// without rule evaluation.
type LockedInSession struct {
	Active         bool      `json:"active"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	AllowedDomains []string  `json:"allowed_domains"`
	SourceGroupID  string    `json:"source_group_id,omitempty"`
}

// InEffect reports whether the session currently overrides policy.
// Expiry flips Active to false, but only on the tracking tick; queries in
// between must treat a past-deadline session as inactive.
func (s *LockedInSession) InEffect(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.EndsAt)
}

// Settings is the full user-facing configuration aggregate. Revision is
// bumped by the store on every save and drives resolver cache
// invalidation; it is never set by callers.
type Settings struct {
	Disabled        bool             `json:"disabled"`
	SiteRules       []SiteRule       `json:"site_rules"`
	Groups          []SiteGroup      `json:"groups"`
	GlobalBlockList []string         `json:"global_block_list"`
	GlobalDefaults  *GlobalDefaults  `json:"global_defaults,omitempty"`
	ResetWindow     ResetWindow      `json:"reset_window"`
	LockedIn        *LockedInSession `json:"locked_in,omitempty"`
	Revision        int64            `json:"revision"`
}

// DomainUsage is the per-domain accumulation record. ActiveSeconds is
// monotonically non-decreasing between window resets; a reset zeroes it
// and restamps WindowStart.
type DomainUsage struct {
	ActiveSeconds float64   `json:"active_seconds"`
	LastUpdated   time.Time `json:"last_updated"`
	WindowStart   time.Time `json:"window_start"`
}

// ActiveDuration returns the accumulated active time as a duration.
func (u DomainUsage) ActiveDuration() time.Duration {
	return time.Duration(u.ActiveSeconds * float64(time.Second))
}

// UsageMap maps normalized hostnames to their usage records.
type UsageMap map[string]DomainUsage

// Clone returns a shallow copy safe for the caller to mutate.
func (m UsageMap) Clone() UsageMap {
	out := make(UsageMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TrackerSession is the tracking engine's persisted state: the domain
// currently in focus and the timestamp of the last flush. An empty
// ActiveDomain means the engine is idle.
type TrackerSession struct {
	ActiveDomain string    `json:"active_domain"`
	LastFlush    time.Time `json:"last_flush"`
}
