// Package hub owns the application state: the Home Assistant connection,
// the event collection and the family members. HTTP handlers and the
// background refresh talk to the hub only.
package hub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"familyhub/internal/calendar"
	"familyhub/internal/family"
	"familyhub/internal/hass"
	"familyhub/internal/kv"
	appLog "familyhub/internal/log"
	"familyhub/internal/metrics"
	"familyhub/internal/model"
)

// Keys under which the connection settings are persisted.
const (
	KeyBaseURL     = "ha_baseUrl"
	KeyAccessToken = "ha_accessToken"
	KeyConnected   = "ha_connected"
)

// ErrMissingCredentials is returned by Save and TestConnection when the URL
// or token is blank. No request is made.
var ErrMissingCredentials = errors.New("hub: base URL and access token are required")

// CalendarAPI is the part of the Home Assistant client the hub uses.
type CalendarAPI interface {
	TestConnection(ctx context.Context, baseURL, token string) error
	FetchEvents(ctx context.Context, cfg model.ConnectionConfig, start, end time.Time) (hass.FetchResult, error)
}

// Options tune a Hub. Zero values are replaced with defaults.
type Options struct {
	DefaultColor string
	Location     *time.Location
	WeekStart    time.Weekday
	// Now is the clock; tests override it.
	Now func() time.Time
}

// Hub is safe for concurrent use.
type Hub struct {
	kv      kv.Store
	api     CalendarAPI
	events  *calendar.Store
	members *family.Registry

	norm      calendar.Normalizer
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time

	mu       sync.Mutex
	cfg      model.ConnectionConfig
	state    State
	inflight int
	outcome  State

	lastSync   time.Time
	lastCount  int
	lastError  string
	lastFailed []string
}

// Status is a point-in-time view of the hub for the dashboard.
type Status struct {
	State           string     `json:"state"`
	Connected       bool       `json:"connected"`
	BaseURL         string     `json:"base_url,omitempty"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
	LastEventCount  int        `json:"last_event_count"`
	LastError       string     `json:"last_error,omitempty"`
	FailedCalendars []string   `json:"failed_calendars,omitempty"`
	RemoteEvents    int        `json:"remote_events"`
}

// SyncResult describes one applied or discarded fetch.
type SyncResult struct {
	// Applied is false when a newer fetch was issued before this one
	// resolved; its events were dropped.
	Applied  bool
	Events   int
	Failures []hass.EntityFailure
}

// Partial returns a KindPartialFetchFailure error if any calendar was
// skipped.
func (r SyncResult) Partial() error {
	return hass.FetchResult{Failures: r.Failures}.Err()
}

// FailedCalendars returns the ids of the calendars that could not be loaded.
func (r SyncResult) FailedCalendars() []string {
	return hass.FailedEntityIDs(r.Failures)
}

// EventsResult is the answer to a view query.
type EventsResult struct {
	View            calendar.View         `json:"view"`
	Start           time.Time             `json:"range_start"`
	End             time.Time             `json:"range_end"`
	Events          []model.CalendarEvent `json:"events"`
	Connected       bool                  `json:"connected"`
	SyncError       string                `json:"sync_error,omitempty"`
	FailedCalendars []string              `json:"failed_calendars,omitempty"`
}

// New creates a hub and loads the connection settings from store. Missing
// keys read as empty; an unparsable connected flag reads as false.
func New(store kv.Store, api CalendarAPI, events *calendar.Store, members *family.Registry, opts Options) *Hub {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	h := &Hub{
		kv:        store,
		api:       api,
		events:    events,
		members:   members,
		norm:      calendar.Normalizer{DefaultColor: opts.DefaultColor, Location: opts.Location},
		loc:       opts.Location,
		weekStart: opts.WeekStart,
		now:       opts.Now,
		cfg:       loadConnection(store),
		state:     StateDisconnected,
		outcome:   StateIdle,
	}
	if h.cfg.Connected && h.cfg.HasCredentials() {
		h.state = StateIdle
	}
	appLog.Info("hub initialized", "state", h.state.String(), "connected", h.cfg.Connected)
	return h
}

func loadConnection(store kv.Store) model.ConnectionConfig {
	base, _ := store.Get(KeyBaseURL)
	token, _ := store.Get(KeyAccessToken)
	raw, _ := store.Get(KeyConnected)
	connected, err := strconv.ParseBool(raw)
	if err != nil {
		connected = false
	}
	return model.ConnectionConfig{BaseURL: base, AccessToken: token, Connected: connected}
}

// transition moves to next if the table allows it. Caller holds mu.
func (h *Hub) transition(next State) bool {
	if !canTransition(h.state, next) {
		appLog.Warn("hub state transition rejected", "from", h.state.String(), "to", next.String())
		return false
	}
	if h.state != next {
		appLog.Debug("hub state", "from", h.state.String(), "to", next.String())
	}
	h.state = next
	return true
}

// Config returns the current connection settings.
func (h *Hub) Config() model.ConnectionConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cfg
}

// State returns the current lifecycle state.
func (h *Hub) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Hub) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{
		State:           h.state.String(),
		Connected:       h.cfg.Connected,
		BaseURL:         h.cfg.BaseURL,
		LastEventCount:  h.lastCount,
		LastError:       h.lastError,
		FailedCalendars: append([]string(nil), h.lastFailed...),
		RemoteEvents:    h.events.RemoteCount(),
	}
	if !h.lastSync.IsZero() {
		t := h.lastSync
		st.LastSync = &t
	}
	return st
}

// TestConnection probes Home Assistant with cfg without saving anything.
func (h *Hub) TestConnection(ctx context.Context, cfg model.ConnectionConfig) error {
	base, token := hass.NormalizeHost(cfg.BaseURL), strings.TrimSpace(cfg.AccessToken)
	if base == "" || token == "" {
		return ErrMissingCredentials
	}
	return h.api.TestConnection(ctx, base, token)
}

// Save normalizes the URL, probes the server and, only when the probe
// succeeds, persists the settings with connected=true. Remote events from
// the previous connection are dropped.
func (h *Hub) Save(ctx context.Context, cfg model.ConnectionConfig) (model.ConnectionConfig, error) {
	base, token := hass.NormalizeHost(cfg.BaseURL), strings.TrimSpace(cfg.AccessToken)
	if base == "" || token == "" {
		return model.ConnectionConfig{}, ErrMissingCredentials
	}

	h.mu.Lock()
	prev := h.state
	if prev == StateConnecting {
		h.mu.Unlock()
		return model.ConnectionConfig{}, errors.New("hub: a connection attempt is already in progress")
	}
	h.transition(StateConnecting)
	h.mu.Unlock()

	err := h.api.TestConnection(ctx, base, token)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.lastError = UserMessage(err)
		h.restore(prev)
		return model.ConnectionConfig{}, err
	}

	next := model.ConnectionConfig{BaseURL: base, AccessToken: token, Connected: true}
	if err := h.kv.Set(map[string]string{
		KeyBaseURL:     next.BaseURL,
		KeyAccessToken: next.AccessToken,
		KeyConnected:   strconv.FormatBool(next.Connected),
	}); err != nil {
		h.restore(prev)
		return model.ConnectionConfig{}, fmt.Errorf("hub: persist connection: %w", err)
	}

	h.cfg = next
	h.events.ClearRemote()
	metrics.SetRemoteEvents(0)
	h.lastError = ""
	h.lastFailed = nil
	h.outcome = StateIdle
	h.transition(StateIdle)

	appLog.Info("hass connection saved", "base_url", next.BaseURL)
	return next, nil
}

// restore returns from StateConnecting after a failed save. Caller holds mu.
func (h *Hub) restore(prev State) {
	if h.state != StateConnecting {
		return
	}
	switch prev {
	case StateDisconnected:
		h.transition(StateDisconnected)
	case StateFetching:
		h.transition(StateIdle)
	default:
		h.transition(prev)
	}
}

// Disconnect forgets the connection settings and every remote-derived
// event. Fetches still in flight are discarded when they resolve. Memory is
// reset even if the persisted keys could not be removed.
func (h *Hub) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.kv.Delete(KeyBaseURL, KeyAccessToken, KeyConnected)

	h.cfg = model.ConnectionConfig{}
	h.events.ClearRemote()
	metrics.SetRemoteEvents(0)
	h.lastSync = time.Time{}
	h.lastCount = 0
	h.lastError = ""
	h.lastFailed = nil
	h.outcome = StateIdle
	h.transition(StateDisconnected)

	appLog.Info("hass disconnected")
	if err != nil {
		return fmt.Errorf("hub: clear connection: %w", err)
	}
	return nil
}

// Sync fetches [start, end) from Home Assistant and replaces the remote
// portion of the event collection. A result that resolves after a newer
// fetch was issued is dropped and reported with Applied=false.
//
// Failures of single calendars do not fail the sync; see SyncResult.Partial.
func (h *Hub) Sync(ctx context.Context, start, end time.Time) (SyncResult, error) {
	h.mu.Lock()
	cfg := h.cfg
	if !cfg.Connected || !cfg.HasCredentials() {
		h.mu.Unlock()
		return SyncResult{}, &hass.FetchError{Kind: hass.KindNotConnected}
	}
	gen := h.events.NextGeneration()
	h.inflight++
	if h.state != StateConnecting {
		h.transition(StateFetching)
	}
	h.mu.Unlock()

	res, err := h.api.FetchEvents(ctx, cfg, start, end)

	h.mu.Lock()
	defer h.mu.Unlock()
	defer h.settle()
	h.inflight--

	if err != nil {
		if !h.events.IsLatest(gen) {
			metrics.ObserveSync("stale")
			return SyncResult{}, err
		}
		metrics.ObserveSync("error")
		h.outcome = StateError
		h.lastError = UserMessage(err)
		h.lastFailed = nil
		appLog.Error("sync failed", err, "range_start", start.Format(time.RFC3339), "range_end", end.Format(time.RFC3339))
		return SyncResult{}, err
	}

	events := h.norm.Normalize(res)
	if !h.events.ReplaceRemote(gen, events) {
		metrics.ObserveSync("stale")
		appLog.Debug("sync result superseded", "generation", gen)
		return SyncResult{Applied: false, Events: len(events), Failures: res.Failures}, nil
	}

	metrics.SetRemoteEvents(len(events))
	h.outcome = StateIdle
	h.lastSync = h.now()
	h.lastCount = len(events)
	h.lastFailed = hass.FailedEntityIDs(res.Failures)
	if partial := res.Err(); partial != nil {
		metrics.ObserveSync("partial")
		h.lastError = UserMessage(partial)
	} else {
		metrics.ObserveSync("ok")
		h.lastError = ""
	}

	appLog.Info("sync applied",
		"generation", gen,
		"event_count", len(events),
		"failed", len(res.Failures),
		"range_start", start.Format(time.RFC3339),
		"range_end", end.Format(time.RFC3339),
	)
	return SyncResult{Applied: true, Events: len(events), Failures: res.Failures}, nil
}

// settle leaves StateFetching once the last fetch has resolved. Caller
// holds mu.
func (h *Hub) settle() {
	if h.inflight > 0 || h.state != StateFetching {
		return
	}
	h.transition(h.outcome)
}

// Refresh syncs the week containing now. It is what the background
// schedule runs.
func (h *Hub) Refresh(ctx context.Context) (SyncResult, error) {
	start, end := h.Range(calendar.ViewWeek, h.now())
	return h.Sync(ctx, start, end)
}

// Range is the fetch range of view around ref, in the hub's timezone.
func (h *Hub) Range(view calendar.View, ref time.Time) (time.Time, time.Time) {
	return calendar.ViewRange(view, ref.In(h.loc), h.weekStart)
}

// Events answers a view query: it re-syncs the view's range when
// connected, then returns the merged events overlapping the range sorted
// by start. Sync failures are reported in the result, not as an error;
// local events are always returned.
func (h *Hub) Events(ctx context.Context, view calendar.View, ref time.Time) EventsResult {
	start, end := h.Range(view, ref)
	out := EventsResult{View: view, Start: start, End: end}

	if cfg := h.Config(); cfg.Connected {
		out.Connected = true
		res, err := h.Sync(ctx, start, end)
		switch {
		case err != nil:
			out.SyncError = UserMessage(err)
		case len(res.Failures) > 0:
			out.SyncError = UserMessage(res.Partial())
			out.FailedCalendars = res.FailedCalendars()
		}
	}

	out.Events = calendar.InRange(h.events.Snapshot(), start, end)
	return out
}

// Today is the reference date for requests that do not name one.
func (h *Hub) Today() time.Time {
	return h.now().In(h.loc)
}

// Location is the timezone calendar days are decided in.
func (h *Hub) Location() *time.Location {
	return h.loc
}

func (h *Hub) Event(id string) (model.CalendarEvent, error) {
	return h.events.Get(id)
}

func (h *Hub) AddEvent(ev model.CalendarEvent) (model.CalendarEvent, error) {
	created, err := h.events.Add(ev)
	if err != nil {
		return model.CalendarEvent{}, err
	}
	appLog.Info("event added", "id", created.ID, "person", created.Person)
	return created, nil
}

func (h *Hub) UpdateEvent(id string, upd calendar.EventUpdate) (model.CalendarEvent, error) {
	return h.events.Update(id, upd)
}

func (h *Hub) DeleteEvent(id string) error {
	if err := h.events.Delete(id); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}

func (h *Hub) Members() []model.FamilyMember {
	return h.members.Members()
}

func (h *Hub) AddMember(m model.FamilyMember) (model.FamilyMember, error) {
	return h.members.Add(m)
}

func (h *Hub) UpdateMember(id string, patch model.FamilyMember) (model.FamilyMember, error) {
	return h.members.Update(id, patch)
}

func (h *Hub) DeleteMember(id string) error {
	return h.members.Delete(id)
}
