package log

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestEnabled(t *testing.T) {
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	if enabled(LevelInfo) {
		t.Error("info should be suppressed at warn level")
	}
	if !enabled(LevelWarn) || !enabled(LevelError) {
		t.Error("warn and error should be enabled at warn level")
	}
}

func TestFormatKVs(t *testing.T) {
	got := formatKVs("entity", "calendar.family", "count", 3, "dangling")
	want := " entity=calendar.family count=3"
	if got != want {
		t.Errorf("formatKVs() = %q, want %q", got, want)
	}
}
