package hass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entity is a calendar entity discovered on the Home Assistant server.
type Entity struct {
	EntityID string
	Name     string
	// Color is the calendar's display color, empty when the server sends none.
	Color string
}

type entityWire struct {
	EntityID   string `json:"entity_id"`
	Name       string `json:"name"`
	Attributes *struct {
		Color string `json:"color"`
	} `json:"attributes"`
}

func (w entityWire) entity() Entity {
	e := Entity{EntityID: w.EntityID, Name: w.Name}
	if w.Attributes != nil {
		e.Color = w.Attributes.Color
	}
	return e
}

// RemoteEvent is one event as returned by /api/calendars/{entity_id}.
type RemoteEvent struct {
	UID string `json:"uid"`
	// RecurrenceID tells the occurrences of a recurring series apart; they
	// all share UID.
	RecurrenceID string `json:"recurrence_id"`
	Summary     string `json:"summary"`
	Start       Time   `json:"start"`
	End         Time   `json:"end"`
	AllDay      bool   `json:"all_day"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Time is an event boundary. Raw keeps the string exactly as sent, since it
// forms part of the fallback event id.
//
// Accepted encodings:
//
//	"2025-06-01T10:00:00Z"
//	{"dateTime": "2025-06-01T10:00:00+02:00"}
//	{"date": "2025-06-01"}
type Time struct {
	Raw      string
	Time     time.Time
	DateOnly bool
	// Floating is set for date-times sent without an offset. Time then holds
	// the wall clock in UTC and In places it in the requested location.
	Floating bool
}

const dateLayout = "2006-01-02"

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("missing time value")
	}

	var raw string
	if data[0] == '{' {
		var obj struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw = obj.DateTime
		if raw == "" {
			raw = obj.Date
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		return errors.New("missing time value")
	}

	parsed, err := parseTime(raw)
	if err != nil {
		return err
	}
	parsed.Raw = raw
	*t = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

// In returns the instant in loc. Date-only values denote a calendar day and
// offset-less date-times a wall clock, so both are anchored in loc rather
// than converted.
func (t Time) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	switch {
	case t.DateOnly:
		return time.Date(t.Time.Year(), t.Time.Month(), t.Time.Day(), 0, 0, 0, 0, loc)
	case t.Floating:
		tt := t.Time
		return time.Date(tt.Year(), tt.Month(), tt.Day(), tt.Hour(), tt.Minute(), tt.Second(), tt.Nanosecond(), loc)
	}
	return t.Time.In(loc)
}

func parseTime(raw string) (Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return Time{Time: ts}, nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return Time{Time: ts, Floating: true}, nil
	}
	if ts, err := time.Parse(dateLayout, raw); err == nil {
		return Time{Time: ts, DateOnly: true}, nil
	}
	return Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// EntityEvents pairs a calendar entity with the events fetched for it.
type EntityEvents struct {
	Entity Entity
	Events []RemoteEvent
}

// FetchResult is the outcome of one FetchEvents call, in discovery order.
type FetchResult struct {
	Calendars []EntityEvents
	Failures  []EntityFailure
}

// EventCount returns the number of events across all calendars.
func (r FetchResult) EventCount() int {
	n := 0
	for _, c := range r.Calendars {
		n += len(c.Events)
	}
	return n
}

// Err returns a KindPartialFetchFailure error when any entity was skipped.
func (r FetchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &FetchError{Kind: KindPartialFetchFailure, Failures: r.Failures}
}
