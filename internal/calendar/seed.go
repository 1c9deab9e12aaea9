package calendar

import (
	"time"

	"familyhub/internal/model"
)

// Demo people outside the default family keep their own colors. Mom's is
// left to the family registry.
const (
	demoColorJimmy = "#0EA5E9"
	demoColorLisa  = "#FFDEE2"
	demoColorEmma  = "#FEC6A1"
)

// DemoEvents returns the starter events shown before any calendar is
// configured, placed relative to the day of now. Events without a color
// get their person's from Store.SetLocal.
func DemoEvents(now time.Time) []model.CalendarEvent {
	day := startOfDay(now)
	at := func(offset, hour, minute int) time.Time {
		return day.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
	return []model.CalendarEvent{
		{ID: "demo-1", Title: "Soccer Practice", Start: at(0, 15, 30), End: at(0, 17, 0), Person: "Jimmy", Category: "sports", Color: demoColorJimmy},
		{ID: "demo-2", Title: "Dentist Appointment", Start: at(0, 10, 0), End: at(0, 11, 0), Person: "Lisa", Category: "health", Color: demoColorLisa},
		{ID: "demo-3", Title: "Work Meeting", Start: at(1, 14, 0), End: at(1, 15, 0), Person: "Mom", Category: "work"},
		{ID: "demo-4", Title: "School Project", Start: at(2, 9, 0), End: at(2, 12, 0), Person: "Emma", Category: "education", Color: demoColorEmma},
	}
}
