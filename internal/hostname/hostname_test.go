package hostname

import (
	"testing"
	"time"

	"github.com/goodtune/sitewarden/internal/storage"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase passthrough", "youtube.com", "youtube.com"},
		{"uppercase", "YouTube.COM", "youtube.com"},
		{"surrounding whitespace", "  reddit.com \n", "reddit.com"},
		{"trailing fqdn dot", "example.com.", "example.com"},
		{"only one trailing dot stripped", "example.com..", "example.com."},
		{"empty", "", ""},
		{"idempotent", Normalize("  WWW.Example.COM.  "), "www.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCovers(t *testing.T) {
	tests := []struct {
		name string
		page string
		rule string
		want bool
	}{
		{"exact match", "youtube.com", "youtube.com", true},
		{"subdomain", "m.youtube.com", "youtube.com", true},
		{"deep subdomain", "a.b.youtube.com", "youtube.com", true},
		{"lookalike suffix", "xnyoutube.com", "youtube.com", false},
		{"apex not covered by subdomain rule", "youtube.com", "m.youtube.com", false},
		{"unrelated", "vimeo.com", "youtube.com", false},
		{"case and dot insensitive", "M.YouTube.com.", "youtube.com", true},
		{"empty page", "", "youtube.com", false},
		{"empty rule", "youtube.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Covers(tt.page, tt.rule); got != tt.want {
				t.Errorf("Covers(%q, %q) = %v, want %v", tt.page, tt.rule, got, tt.want)
			}
		})
	}
}

func TestMatchesAny(t *testing.T) {
	domains := []string{"youtube.com", "reddit.com"}

	if !MatchesAny("old.reddit.com", domains) {
		t.Error("expected old.reddit.com to match")
	}
	if MatchesAny("news.ycombinator.com", domains) {
		t.Error("expected news.ycombinator.com not to match")
	}
	if MatchesAny("anything.com", nil) {
		t.Error("expected no match against empty domain list")
	}
}

func TestSumUsageUnder(t *testing.T) {
	usage := storage.UsageMap{
		"twitter.com":     {ActiveSeconds: 100},
		"m.twitter.com":   {ActiveSeconds: 50},
		"api.twitter.com": {ActiveSeconds: 25},
		"twitch.tv":       {ActiveSeconds: 999},
	}

	got := SumUsageUnder("twitter.com", usage)
	want := 175 * time.Second
	if got != want {
		t.Errorf("SumUsageUnder() = %v, want %v", got, want)
	}

	if got := SumUsageUnder("instagram.com", usage); got != 0 {
		t.Errorf("expected zero usage for unmatched domain, got %v", got)
	}
}
