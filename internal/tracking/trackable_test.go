package tracking

import "testing"

func TestTrackable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"plain hostname", "youtube.com", "youtube.com", true},
		{"subdomain", "m.youtube.com", "m.youtube.com", true},
		{"uppercase with dot", "WWW.Example.COM.", "www.example.com", true},
		{"http url", "http://reddit.com/r/golang", "reddit.com", true},
		{"https url with port", "https://example.com:8443/path", "example.com", true},
		{"empty means focus loss", "", "", false},
		{"whitespace only", "   ", "", false},
		{"chrome internal", "chrome://newtab", "", false},
		{"about page", "about:blank", "", false},
		{"extension url", "moz-extension://abcd/popup.html", "", false},
		{"file url", "file:///tmp/x.html", "", false},
		{"localhost", "localhost", "", false},
		{"bare internal name", "router", "", false},
		{"host with path fragment", "example.com/path", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Trackable(tt.raw)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Trackable(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
			}
		})
	}
}
