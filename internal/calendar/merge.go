package calendar

import (
	"time"

	"familyhub/internal/model"
)

// Merge unions local events with remote-derived events.
//
// Remote events are de-duplicated by id (first occurrence wins). A local
// event is dropped when a remote event has the same title on the same
// calendar day in loc, or the same id; the remote copy wins. This matches by
// title and day only, so two distinct events sharing both collapse into the
// remote one. Ids are unique in the result.
func Merge(local, remote []model.CalendarEvent, loc *time.Location) []model.CalendarEvent {
	if loc == nil {
		loc = time.Local
	}

	seen := make(map[string]struct{}, len(remote))
	dedup := make([]model.CalendarEvent, 0, len(remote))
	taken := make(map[string]struct{}, len(remote))
	for _, ev := range remote {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		seen[ev.ID] = struct{}{}
		dedup = append(dedup, ev)
		taken[titleDayKey(ev, loc)] = struct{}{}
	}

	out := make([]model.CalendarEvent, 0, len(local)+len(dedup))
	for _, ev := range local {
		if _, ok := seen[ev.ID]; ok {
			continue
		}
		if _, ok := taken[titleDayKey(ev, loc)]; ok {
			continue
		}
		out = append(out, ev)
	}
	return append(out, dedup...)
}

func titleDayKey(ev model.CalendarEvent, loc *time.Location) string {
	return ev.Title + "\x00" + ev.Start.In(loc).Format("2006-01-02")
}
