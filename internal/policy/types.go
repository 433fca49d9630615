package policy

import (
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

// Reason identifies which policy tier produced a decision.
type Reason string

const (
	ReasonLockedIn      Reason = "locked_in"
	ReasonSiteRule      Reason = "site_rule"
	ReasonGroup         Reason = "group"
	ReasonGlobalBlock   Reason = "global_block_list"
	ReasonGlobalDefault Reason = "global_defaults"
)

// EffectivePolicy is the rule that governs a hostname after precedence
// resolution. ConfiguredDomain carries the site-rule domain whose
// subdomains share the usage pool; GroupID/GroupDomains carry the same
// provenance for group matches.
type EffectivePolicy struct {
	Mode             storage.Mode
	Limit            time.Duration
	Reason           Reason
	ConfiguredDomain string
	GroupID          string
	GroupDomains     []string
}

// BlockedState is the answer to "is this domain blocked right now".
type BlockedState struct {
	Blocked          bool         `json:"blocked"`
	Mode             storage.Mode `json:"mode,omitempty"`
	Reason           Reason       `json:"reason,omitempty"`
	RemainingSeconds float64      `json:"remaining_seconds,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// Remaining returns the remaining allowance as a duration.
func (s BlockedState) Remaining() time.Duration {
	return time.Duration(s.RemainingSeconds * float64(time.Second))
}
