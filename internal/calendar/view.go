package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"familyhub/internal/model"
)

// View is a calendar view; each view implies a fetch range.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

// ParseView parses a view name. Empty input selects the week view.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case "", ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// ParseWeekStart maps "monday" to time.Monday and anything else to
// time.Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}

// ViewRange returns the range a view shows around ref, in ref's location:
//
//	day:   [startOfDay, startOfDay+1d)
//	week:  [startOfWeek, startOfWeek+7d)
//	month: [startOfMonth, endOfMonth] where endOfMonth is the month's last millisecond
func ViewRange(view View, ref time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day := startOfDay(ref)
	switch view {
	case ViewDay:
		return day, day.AddDate(0, 0, 1)
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return first, first.AddDate(0, 1, 0).Add(-time.Millisecond)
	default:
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		first := day.AddDate(0, 0, -offset)
		return first, first.AddDate(0, 0, 7)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Overlaps reports whether ev intersects [start, end). Zero-length events
// count when they start inside the range.
func Overlaps(ev model.CalendarEvent, start, end time.Time) bool {
	if !ev.Start.Before(end) {
		return false
	}
	if ev.End.After(ev.Start) {
		return ev.End.After(start)
	}
	return !ev.Start.Before(start)
}

// InRange returns the events overlapping [start, end), sorted by start
// time and then title.
func InRange(events []model.CalendarEvent, start, end time.Time) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if Overlaps(ev, start, end) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].Title < out[j].Title
	})
	return out
}
