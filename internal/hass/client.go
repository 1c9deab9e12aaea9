package hass

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "familyhub/internal/log"
	"familyhub/internal/metrics"
	"familyhub/internal/model"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 8 << 20

	// isoLayout matches JavaScript's Date.prototype.toISOString.
	isoLayout = "2006-01-02T15:04:05.000Z"
)

// Client talks to the Home Assistant REST API. It keeps no connection
// state of its own; every call takes the base URL and token explicitly.
type Client struct {
	client *http.Client
}

// NewClient creates a Client whose requests time out after timeout
// (15s when zero).
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// TestConnection probes {baseURL}/api/ with the given token. A non-JSON
// response (typically the web UI's HTML) is rejected without decoding it.
func (c *Client) TestConnection(ctx context.Context, baseURL, token string) error {
	start := time.Now()
	resp, err := c.get(ctx, baseURL+"/api/", token)
	if err != nil {
		metrics.ObserveUpstream("probe", "unreachable", start)
		appLog.Error("hass probe failed", err, "host", redactURL(baseURL))
		return &ConnectionError{Kind: KindUnreachable, Err: err}
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		metrics.ObserveUpstream("probe", "http_error", start)
		appLog.Error("hass probe non-OK", errors.New(resp.Status), "host", redactURL(baseURL), "status", resp.StatusCode)
		return &ConnectionError{Kind: KindHTTPError, Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isJSONContentType(ct) {
		metrics.ObserveUpstream("probe", "invalid_shape", start)
		appLog.Error("hass probe returned non-JSON", errors.New("unexpected content type"), "host", redactURL(baseURL), "content_type", ct)
		return &ConnectionError{Kind: KindInvalidShape, ContentType: ct}
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		metrics.ObserveUpstream("probe", "invalid_shape", start)
		return &ConnectionError{Kind: KindInvalidShape, Err: err}
	}

	metrics.ObserveUpstream("probe", "ok", start)
	appLog.Info("hass probe success", "host", redactURL(baseURL), "message", body["message"])
	return nil
}

// FetchEvents discovers every calendar entity and fetches each entity's
// events overlapping [start, end).
//
// Discovery failures abort the call. Failures of individual entities are
// logged, recorded in FetchResult.Failures and skipped; see FetchResult.Err.
func (c *Client) FetchEvents(ctx context.Context, cfg model.ConnectionConfig, start, end time.Time) (FetchResult, error) {
	if !cfg.Connected || !cfg.HasCredentials() {
		return FetchResult{}, &FetchError{Kind: KindNotConnected}
	}

	entities, err := c.discover(ctx, cfg)
	if err != nil {
		return FetchResult{}, err
	}

	query := url.Values{}
	query.Set("start", start.UTC().Format(isoLayout))
	query.Set("end", end.UTC().Format(isoLayout))

	result := FetchResult{Calendars: make([]EntityEvents, 0, len(entities))}
	for _, ent := range entities {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, &FetchError{Kind: KindUnreachable, Err: err}
		}

		events, failure := c.fetchEntity(ctx, cfg, ent, query)
		if failure != nil {
			appLog.Warn("hass calendar skipped", "entity", ent.EntityID, "reason", failure.Error())
			result.Failures = append(result.Failures, *failure)
			continue
		}
		appLog.Debug("hass calendar fetched", "entity", ent.EntityID, "event_count", len(events))
		result.Calendars = append(result.Calendars, EntityEvents{Entity: ent, Events: events})
	}

	appLog.Info("hass fetch completed",
		"host", redactURL(cfg.BaseURL),
		"calendars", len(result.Calendars),
		"failed", len(result.Failures),
		"event_count", result.EventCount(),
	)
	return result, nil
}

func (c *Client) discover(ctx context.Context, cfg model.ConnectionConfig) ([]Entity, error) {
	start := time.Now()
	resp, err := c.get(ctx, cfg.BaseURL+"/api/calendar", cfg.AccessToken)
	if err != nil {
		metrics.ObserveUpstream("discovery", "unreachable", start)
		appLog.Error("hass discovery failed", err, "host", redactURL(cfg.BaseURL))
		return nil, &FetchError{Kind: KindUnreachable, Err: err}
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		metrics.ObserveUpstream("discovery", "http_error", start)
		appLog.Error("hass discovery non-OK", errors.New(resp.Status), "host", redactURL(cfg.BaseURL), "status", resp.StatusCode)
		return nil, &FetchError{Kind: KindDiscoveryFailed, Status: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if !isJSONContentType(ct) {
		metrics.ObserveUpstream("discovery", "invalid_shape", start)
		return nil, &FetchError{Kind: KindInvalidShape, ContentType: ct}
	}

	items, err := decodeArray(resp.Body)
	if err != nil {
		metrics.ObserveUpstream("discovery", "invalid_shape", start)
		return nil, &FetchError{Kind: KindInvalidShape, Err: err}
	}
	metrics.ObserveUpstream("discovery", "ok", start)

	entities := make([]Entity, 0, len(items))
	for i, item := range items {
		var w entityWire
		if err := json.Unmarshal(item, &w); err != nil || w.EntityID == "" {
			appLog.Warn("hass calendar entity without entity_id skipped", "index", i)
			continue
		}
		entities = append(entities, w.entity())
	}
	return entities, nil
}

func (c *Client) fetchEntity(ctx context.Context, cfg model.ConnectionConfig, ent Entity, query url.Values) ([]RemoteEvent, *EntityFailure) {
	start := time.Now()
	endpoint := cfg.BaseURL + "/api/calendars/" + url.PathEscape(ent.EntityID) + "?" + query.Encode()

	resp, err := c.get(ctx, endpoint, cfg.AccessToken)
	if err != nil {
		metrics.ObserveUpstream("events", "unreachable", start)
		return nil, &EntityFailure{EntityID: ent.EntityID, Kind: KindUnreachable, Err: err}
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		metrics.ObserveUpstream("events", "http_error", start)
		return nil, &EntityFailure{EntityID: ent.EntityID, Kind: KindHTTPError, Status: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); !isJSONContentType(ct) {
		metrics.ObserveUpstream("events", "invalid_shape", start)
		return nil, &EntityFailure{EntityID: ent.EntityID, Kind: KindInvalidShape, Err: errors.New("content type " + ct)}
	}

	items, err := decodeArray(resp.Body)
	if err != nil {
		metrics.ObserveUpstream("events", "invalid_shape", start)
		return nil, &EntityFailure{EntityID: ent.EntityID, Kind: KindInvalidShape, Err: err}
	}
	metrics.ObserveUpstream("events", "ok", start)

	events := make([]RemoteEvent, 0, len(items))
	for i, item := range items {
		var ev RemoteEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			// Log and skip this event, but keep the others.
			appLog.Warn("hass event skipped", "entity", ent.EntityID, "index", i, "reason", err.Error())
			continue
		}
		if ev.Start.Raw == "" {
			appLog.Warn("hass event skipped", "entity", ent.EntityID, "index", i, "reason", "missing start")
			continue
		}
		if ev.End.Raw == "" {
			ev.End = ev.Start
		}
		events = append(events, ev)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, endpoint, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.client.Do(req)
}

// decodeArray decodes a JSON array into its raw elements. Anything else,
// including valid JSON objects, is an error.
func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&raw); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "[") {
		return nil, errors.New("expected a JSON array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
}
