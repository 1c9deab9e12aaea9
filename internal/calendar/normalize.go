package calendar

import (
	"time"

	"familyhub/internal/hass"
	"familyhub/internal/model"
)

// UntitledEvent is the title given to remote events without a summary.
const UntitledEvent = "Untitled Event"

// Normalizer maps Home Assistant events onto the local event shape.
type Normalizer struct {
	// DefaultColor is used when the calendar entity has no color attribute.
	DefaultColor string
	// Location anchors date-only (all-day) values. nil means time.Local.
	Location *time.Location
}

// ToLocalEvent converts one remote event. The id is the remote uid when
// present, otherwise "{entity_id}-{start as sent}", so re-fetching an
// unchanged event always yields the same id. Occurrences of a recurring
// series get "{uid}-{recurrence_id}".
func (n Normalizer) ToLocalEvent(entity hass.Entity, ev hass.RemoteEvent) model.CalendarEvent {
	var id string
	switch {
	case ev.UID == "":
		id = entity.EntityID + "-" + ev.Start.Raw
	case ev.RecurrenceID != "":
		id = ev.UID + "-" + ev.RecurrenceID
	default:
		id = ev.UID
	}
	title := ev.Summary
	if title == "" {
		title = UntitledEvent
	}
	color := entity.Color
	if color == "" {
		color = n.DefaultColor
	}

	return model.CalendarEvent{
		ID:          id,
		Title:       title,
		Start:       ev.Start.In(n.location()),
		End:         ev.End.In(n.location()),
		AllDay:      ev.AllDay,
		Location:    ev.Location,
		Description: ev.Description,
		Color:       color,
		Source:      entity.EntityID,
	}
}

// Normalize flattens a fetch result in arrival order. When an id repeats
// with a different start (a series sent without recurrence ids), the later
// occurrence gets "{id}-{start as sent}" so none of them is lost. Exact
// repeats keep their id and are collapsed by Merge.
func (n Normalizer) Normalize(res hass.FetchResult) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, res.EventCount())
	starts := make(map[string]time.Time, res.EventCount())
	for _, cal := range res.Calendars {
		for _, ev := range cal.Events {
			local := n.ToLocalEvent(cal.Entity, ev)
			if first, ok := starts[local.ID]; ok && !first.Equal(local.Start) {
				local.ID += "-" + ev.Start.Raw
			}
			if _, ok := starts[local.ID]; !ok {
				starts[local.ID] = local.Start
			}
			out = append(out, local)
		}
	}
	return out
}

func (n Normalizer) location() *time.Location {
	if n.Location == nil {
		return time.Local
	}
	return n.Location
}
