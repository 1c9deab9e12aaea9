package hass

import "testing"

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com:8123", "https://example.com:8123"},
		{"http://x.com/api", "http://x.com"},
		{"https://x.com/", "https://x.com"},
		{"  homeassistant.local:8123/api/  ", "https://homeassistant.local:8123"},
		{"HTTP://Upper.example", "HTTP://Upper.example"},
		{"x.com//api//", "https://x.com"},
		{"x.com/api/api", "https://x.com"},
		{"x.com /", "https://x.com"},
		{"https://x.com/base/path", "https://x.com/base/path"},
		{"", ""},
		{"   ", ""},
		{"/api", "https://"},
		{"http://api", "http://api"},
		{"https://api/", "https://api"},
		{"api", "https://api"},
		{"https://api/api", "https://api"},
		{"http:// x.com/api ", "http://x.com"},
	}
	for _, tt := range tests {
		if got := NormalizeHost(tt.in); got != tt.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeHostIdempotent(t *testing.T) {
	inputs := []string{
		"example.com", "http://x.com/api", "https://x.com/", "x.com /", "https://", "http:/",
		"a/api/ /", " b.local:8123/api/api/ ", "ftp://files.example", "x.com/API",
		"http://api", "/api", "api/api/",
	}
	for _, in := range inputs {
		once := NormalizeHost(in)
		twice := NormalizeHost(once)
		if once != twice {
			t.Errorf("NormalizeHost not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://ha.example:8123/api/calendars/x?start=1"); got != "https://ha.example:8123" {
		t.Errorf("redactURL() = %q", got)
	}
	if got := redactURL("not a url"); got != "hass://...(redacted)" {
		t.Errorf("redactURL() = %q", got)
	}
}
