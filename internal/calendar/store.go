package calendar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"familyhub/internal/model"
)

var (
	ErrNotFound     = errors.New("calendar: event not found")
	ErrRemoteEvent  = errors.New("calendar: remote events are read-only")
	ErrInvalidEvent = errors.New("calendar: invalid event")
)

// ColorResolver returns the display color for a person.
type ColorResolver func(person string) string

// Store owns the event collection. Local events and the most recent remote
// set are kept apart and merged on every Snapshot, so a sync only ever
// replaces the remote portion.
//
// Each fetch takes a generation from NextGeneration. ReplaceRemote only
// applies the result of the newest generation issued; anything older
// resolved too late and is dropped.
type Store struct {
	loc     *time.Location
	colorOf ColorResolver

	mu      sync.RWMutex
	local   []model.CalendarEvent
	remote  []model.CalendarEvent
	issued  uint64
	applied uint64
}

// NewStore creates an empty store. loc decides calendar days for merging;
// colorOf may be nil.
func NewStore(loc *time.Location, colorOf ColorResolver) *Store {
	if loc == nil {
		loc = time.Local
	}
	if colorOf == nil {
		colorOf = func(string) string { return "" }
	}
	return &Store{loc: loc, colorOf: colorOf}
}

// Snapshot returns a freshly merged copy of the collection. Callers own the
// returned slice.
func (s *Store) Snapshot() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Merge(s.local, s.remote, s.loc)
}

// RemoteCount returns the number of remote-derived events held.
func (s *Store) RemoteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.remote)
}

// NextGeneration issues a token for a new fetch.
func (s *Store) NextGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// IsLatest reports whether gen is the newest generation issued.
func (s *Store) IsLatest(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen == s.issued
}

// ReplaceRemote swaps in the remote events of generation gen. It returns
// false, leaving the store untouched, if a newer generation was issued.
func (s *Store) ReplaceRemote(gen uint64, events []model.CalendarEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.issued || gen <= s.applied {
		return false
	}
	s.remote = append([]model.CalendarEvent(nil), events...)
	s.applied = gen
	return true
}

// ClearRemote drops all remote-derived events and invalidates every fetch
// still in flight.
func (s *Store) ClearRemote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.applied = s.issued
	s.remote = nil
}

// SetLocal replaces the local events, e.g. with seed data at startup.
// Events without a color get their person's.
func (s *Store) SetLocal(events []model.CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		ev.Source = ""
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.Color == "" {
			ev.Color = s.colorOf(ev.Person)
		}
		s.local = append(s.local, ev)
	}
}

// Get returns the event with id from the merged collection.
func (s *Store) Get(id string) (model.CalendarEvent, error) {
	for _, ev := range s.Snapshot() {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.CalendarEvent{}, ErrNotFound
}

// Add stores a new local event. The id is generated and the color resolved
// from the person.
func (s *Store) Add(ev model.CalendarEvent) (model.CalendarEvent, error) {
	if ev.End.IsZero() {
		ev.End = ev.Start
	}
	if err := validate(ev); err != nil {
		return model.CalendarEvent{}, err
	}
	ev.ID = uuid.NewString()
	ev.Source = ""
	ev.Color = s.colorOf(ev.Person)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = append(s.local, ev)
	return ev, nil
}

// EventUpdate lists the fields an edit may change; nil fields are kept.
type EventUpdate struct {
	Title       *string    `json:"title"`
	Start       *time.Time `json:"start"`
	End         *time.Time `json:"end"`
	AllDay      *bool      `json:"all_day"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	Person      *string    `json:"person"`
	Category    *string    `json:"category"`
}

// Update edits a local event and re-resolves its color from the person.
func (s *Store) Update(id string, upd EventUpdate) (model.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.localIndex(id)
	if idx < 0 {
		return model.CalendarEvent{}, s.missing(id)
	}

	ev := s.local[idx]
	if upd.Title != nil {
		ev.Title = *upd.Title
	}
	if upd.Start != nil {
		ev.Start = *upd.Start
	}
	if upd.End != nil {
		ev.End = *upd.End
	}
	if upd.AllDay != nil {
		ev.AllDay = *upd.AllDay
	}
	if upd.Location != nil {
		ev.Location = *upd.Location
	}
	if upd.Description != nil {
		ev.Description = *upd.Description
	}
	if upd.Person != nil {
		ev.Person = *upd.Person
	}
	if upd.Category != nil {
		ev.Category = *upd.Category
	}
	if err := validate(ev); err != nil {
		return model.CalendarEvent{}, err
	}
	ev.Color = s.colorOf(ev.Person)

	s.local[idx] = ev
	return ev, nil
}

// Delete removes a local event.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.localIndex(id)
	if idx < 0 {
		return s.missing(id)
	}
	s.local = append(s.local[:idx:idx], s.local[idx+1:]...)
	return nil
}

// localIndex finds a visible local event. A local event sharing its id with a
// remote one is hidden by Merge, so it is not editable either.
func (s *Store) localIndex(id string) int {
	for _, ev := range s.remote {
		if ev.ID == id {
			return -1
		}
	}
	for i, ev := range s.local {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

// missing distinguishes unknown ids from remote ones. Caller holds mu.
func (s *Store) missing(id string) error {
	for _, ev := range s.remote {
		if ev.ID == id {
			return ErrRemoteEvent
		}
	}
	return ErrNotFound
}

func validate(ev model.CalendarEvent) error {
	if strings.TrimSpace(ev.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrInvalidEvent)
	}
	if ev.End.Before(ev.Start) {
		return fmt.Errorf("%w: end is before start", ErrInvalidEvent)
	}
	return nil
}
