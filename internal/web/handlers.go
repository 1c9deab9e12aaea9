package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"familyhub/internal/calendar"
	"familyhub/internal/family"
	"familyhub/internal/hass"
	"familyhub/internal/hub"
	appLog "familyhub/internal/log"
	"familyhub/internal/model"
)

const maxRequestBytes = 1 << 20

// connectionResponse never carries the full token.
type connectionResponse struct {
	BaseURL     string `json:"base_url"`
	AccessToken string `json:"access_token,omitempty"`
	Connected   bool   `json:"connected"`
}

type connectionRequest struct {
	BaseURL     string `json:"base_url"`
	AccessToken string `json:"access_token"`
}

type eventRequest struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Person      string    `json:"person"`
	Category    string    `json:"category"`
}

type syncResponse struct {
	Applied         bool      `json:"applied"`
	EventCount      int       `json:"event_count"`
	RangeStart      time.Time `json:"range_start"`
	RangeEnd        time.Time `json:"range_end"`
	FailedCalendars []string  `json:"failed_calendars,omitempty"`
	Warning         string    `json:"warning,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Status())
}

// handleListEvents answers a calendar view.
//
// GET /api/events?view=week&date=2025-06-02
//   - view: day | week | month (default week)
//   - date: reference day, YYYY-MM-DD in the configured timezone (default today)
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	view, ref, err := s.parseViewQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appLog.Debug("api events request", "view", string(view), "date", ref.Format("2006-01-02"))
	writeJSON(w, http.StatusOK, s.hub.Events(r.Context(), view, ref))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	view, ref, err := s.parseViewQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, end := s.hub.Range(view, ref)
	res, err := s.hub.Sync(r.Context(), start, end)
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{
		Applied:         res.Applied,
		EventCount:      res.Events,
		RangeStart:      start,
		RangeEnd:        end,
		FailedCalendars: res.FailedCalendars(),
		Warning:         hub.UserMessage(res.Partial()),
	})
}

func (s *Server) parseViewQuery(r *http.Request) (calendar.View, time.Time, error) {
	q := r.URL.Query()
	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		return "", time.Time{}, err
	}
	ref := s.hub.Today()
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		ref, err = time.ParseInLocation("2006-01-02", raw, s.hub.Location())
		if err != nil {
			return "", time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
		}
	}
	return view, ref, nil
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.hub.Event(chi.URLParam(r, "id"))
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ev, err := s.hub.AddEvent(model.CalendarEvent{
		Title:       req.Title,
		Start:       req.Start,
		End:         req.End,
		AllDay:      req.AllDay,
		Location:    req.Location,
		Description: req.Description,
		Person:      req.Person,
		Category:    req.Category,
	})
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var upd calendar.EventUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	ev, err := s.hub.UpdateEvent(chi.URLParam(r, "id"), upd)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.DeleteEvent(chi.URLParam(r, "id")); err != nil {
		s.writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMembers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Members())
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var m model.FamilyMember
	if !decodeBody(w, r, &m) {
		return
	}
	created, err := s.hub.AddMember(m)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var patch model.FamilyMember
	if !decodeBody(w, r, &patch) {
		return
	}
	m, err := s.hub.UpdateMember(chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.hub.DeleteMember(chi.URLParam(r, "id")); err != nil {
		s.writeHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toConnectionResponse(s.hub.Config()))
}

// handleSaveConnection probes and saves the settings, then loads the
// current week so the dashboard fills in right away.
func (s *Server) handleSaveConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg, err := s.hub.Save(r.Context(), model.ConnectionConfig{BaseURL: req.BaseURL, AccessToken: req.AccessToken})
	if err != nil {
		s.writeHubError(w, err)
		return
	}

	type saveResponse struct {
		connectionResponse
		SyncError string `json:"sync_error,omitempty"`
	}
	resp := saveResponse{connectionResponse: toConnectionResponse(cfg)}
	res, err := s.hub.Refresh(r.Context())
	if err != nil {
		resp.SyncError = hub.UserMessage(err)
	} else {
		resp.SyncError = hub.UserMessage(res.Partial())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	if err := s.hub.Disconnect(); err != nil {
		appLog.Error("disconnect failed", err)
		writeError(w, http.StatusInternalServerError, "failed to clear saved connection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cfg := model.ConnectionConfig{BaseURL: req.BaseURL, AccessToken: req.AccessToken}
	if err := s.hub.TestConnection(r.Context(), cfg); err != nil {
		s.writeHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"base_url": hass.NormalizeHost(req.BaseURL),
	})
}

// writeHubError maps an error from the hub onto a status code and a
// user-facing message.
func (s *Server) writeHubError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		appLog.Error("api request failed", err, "status", status)
	}
	writeError(w, status, hub.UserMessage(err))
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, hub.ErrMissingCredentials),
		errors.Is(err, calendar.ErrInvalidEvent),
		errors.Is(err, family.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, calendar.ErrNotFound), errors.Is(err, family.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrRemoteEvent):
		return http.StatusConflict
	}

	var fe *hass.FetchError
	if errors.As(err, &fe) && fe.Kind == hass.KindNotConnected {
		return http.StatusConflict
	}
	var ce *hass.ConnectionError
	if errors.As(err, &ce) || fe != nil {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func toConnectionResponse(cfg model.ConnectionConfig) connectionResponse {
	return connectionResponse{
		BaseURL:     cfg.BaseURL,
		AccessToken: maskToken(cfg.AccessToken),
		Connected:   cfg.Connected,
	}
}

// maskToken keeps the last four characters of long tokens.
func maskToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 8:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}
