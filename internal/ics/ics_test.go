package ics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const seedCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//familyhub//seed//EN
BEGIN:VEVENT
UID:soccer@test
SUMMARY:Soccer Practice
CATEGORIES:sports,kids
ORGANIZER;CN=Jimmy:mailto:jimmy@example.com
DTSTART:20250602T153000Z
DTEND:20250602T170000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20250609T153000Z
END:VEVENT
BEGIN:VEVENT
UID:dentist@test
SUMMARY:Dentist Appointment
LOCATION:Main St
DTSTART:20250603T100000Z
DTEND:20250603T110000Z
END:VEVENT
BEGIN:VEVENT
UID:holiday@test
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250704
END:VEVENT
BEGIN:VEVENT
SUMMARY:No uid
DTSTART:20250603T100000Z
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS("seed", crlf(seedCalendar))
	if err != nil {
		t.Fatalf("ParseICS() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events (missing UID skipped), got %d", len(events))
	}

	soccer := events[0]
	if soccer.Summary != "Soccer Practice" || soccer.Category != "sports" || soccer.Person != "Jimmy" {
		t.Errorf("unexpected soccer event: %+v", soccer)
	}
	if soccer.RawRRule == "" || len(soccer.ExDates) != 1 {
		t.Errorf("expected rrule and one exdate, got %q %v", soccer.RawRRule, soccer.ExDates)
	}

	holiday := events[2]
	if !holiday.AllDay {
		t.Error("expected VALUE=DATE event to be all-day")
	}
	if got := holiday.End.Sub(holiday.Start); got != 24*time.Hour {
		t.Errorf("all-day duration = %v, want 24h", got)
	}
}

func TestParseICSEmpty(t *testing.T) {
	if _, err := ParseICS("empty", nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpandOccurrences(t *testing.T) {
	parsed, err := ParseICS("seed", crlf(seedCalendar))
	if err != nil {
		t.Fatal(err)
	}

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences() error = %v", err)
	}

	var soccer []string
	titles := map[string]int{}
	for _, ev := range res.Events {
		titles[ev.Title]++
		if ev.Title == "Soccer Practice" {
			soccer = append(soccer, ev.ID)
			if ev.End.Sub(ev.Start) != 90*time.Minute {
				t.Errorf("occurrence duration = %v", ev.End.Sub(ev.Start))
			}
		}
		if ev.Source != "" {
			t.Errorf("seed events must be local, got source %q", ev.Source)
		}
	}

	want := []string{
		"soccer@test-2025-06-02T15:30:00Z",
		"soccer@test-2025-06-16T15:30:00Z",
		"soccer@test-2025-06-23T15:30:00Z",
	}
	if len(soccer) != len(want) {
		t.Fatalf("soccer occurrences = %v, want %v", soccer, want)
	}
	for i := range want {
		if soccer[i] != want[i] {
			t.Errorf("occurrence %d id = %q, want %q", i, soccer[i], want[i])
		}
	}
	if titles["Dentist Appointment"] != 1 || titles["Holiday"] != 1 {
		t.Errorf("unexpected titles: %v", titles)
	}
}

func TestExpandOccurrencesRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	if _, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)}); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestExpandOccurrencesCap(t *testing.T) {
	daily := ParsedEvent{
		UID:      "daily@test",
		Summary:  "Vitamins",
		Start:    time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 1, 1, 8, 5, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}
	res, err := ExpandOccurrences([]ParsedEvent{daily}, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:               time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxOccurrencesPerEvent: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Events) != 10 {
		t.Errorf("expected 10 capped occurrences, got %d", len(res.Events))
	}
	if len(res.TruncatedEvents) != 1 || res.TruncatedEvents[0] != "daily@test" {
		t.Errorf("TruncatedEvents = %v", res.TruncatedEvents)
	}
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.ics")
	if err := os.WriteFile(path, crlf(seedCalendar), 0o600); err != nil {
		t.Fatal(err)
	}
	events, err := LoadSeed(path,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC),
		time.UTC)
	if err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected soccer + dentist in the first week, got %d: %+v", len(events), events)
	}

	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.ics"), time.Now(), time.Now(), time.UTC); err == nil {
		t.Error("expected error for missing file")
	}
}
