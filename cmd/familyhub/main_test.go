package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"familyhub/internal/config"
)

func TestDialAddr(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "0.0.0.0:8080", want: "127.0.0.1:8080"},
		{in: "[::]:8080", want: "127.0.0.1:8080"},
		{in: "192.168.1.20:9000", want: "192.168.1.20:9000"},
	}
	for _, tc := range testCases {
		addr, err := net.ResolveTCPAddr("tcp", tc.in)
		if err != nil {
			t.Fatalf("ResolveTCPAddr(%q): %v", tc.in, err)
		}
		if got := dialAddr(addr); got != tc.want {
			t.Errorf("dialAddr(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveLocationOrLocal(t *testing.T) {
	if resolveLocationOrLocal("Local") != time.Local || resolveLocationOrLocal("Not/AZone") != time.Local {
		t.Error("expected fallback to time.Local")
	}
	if loc := resolveLocationOrLocal("UTC"); loc.String() != "UTC" {
		t.Errorf("UTC resolved to %s", loc)
	}
}

func TestLoadSeedEventsFallsBackToDemo(t *testing.T) {
	conf := config.DefaultConfig()
	if got := loadSeedEvents(conf, time.UTC); len(got) != 4 {
		t.Errorf("demo seed has %d events, want 4", len(got))
	}

	conf.SeedICS = filepath.Join(t.TempDir(), "missing.ics")
	if got := loadSeedEvents(conf, time.UTC); len(got) != 4 {
		t.Errorf("missing seed file should fall back to demo events, got %d", len(got))
	}

	path := filepath.Join(t.TempDir(), "seed.ics")
	today := time.Now().UTC().Format("20060102")
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:seed-1\r\nSUMMARY:Library day\r\nDTSTART:" + today + "T150000Z\r\nDTEND:" + today + "T160000Z\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	conf.SeedICS = path
	got := loadSeedEvents(conf, time.UTC)
	if len(got) != 1 || got[0].Title != "Library day" {
		t.Errorf("seed events = %+v", got)
	}
}
