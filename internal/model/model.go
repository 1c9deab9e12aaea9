package model

import "time"

// CalendarEvent is the unit stored in the hub's visible event collection.
// Local events (seeded or created through the API) have an empty Source;
// events derived from a Home Assistant calendar carry the entity id.
type CalendarEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`

	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`

	// Person and Category are only set on local events.
	Person   string `json:"person,omitempty"`
	Category string `json:"category,omitempty"`

	Source string `json:"source,omitempty"`
}

// Remote reports whether the event was derived from a remote calendar.
func (e CalendarEvent) Remote() bool {
	return e.Source != ""
}

// FamilyMember is a household member. Color is used for that member's
// local events.
type FamilyMember struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Role  string `yaml:"role" json:"role"`
	Color string `yaml:"color" json:"color"`
}

// ConnectionConfig describes the Home Assistant connection.
// BaseURL is always stored normalized (scheme, no trailing slash, no /api).
type ConnectionConfig struct {
	BaseURL     string `json:"base_url"`
	AccessToken string `json:"access_token"`
	Connected   bool   `json:"connected"`
}

// HasCredentials reports whether both the URL and the token are set.
func (c ConnectionConfig) HasCredentials() bool {
	return c.BaseURL != "" && c.AccessToken != ""
}
