package hub

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"familyhub/internal/calendar"
	"familyhub/internal/family"
	"familyhub/internal/hass"
)

// UserMessage turns an error from the hub into a sentence suitable for a
// toast in the dashboard. It returns "" for a nil error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ce *hass.ConnectionError
	if errors.As(err, &ce) {
		return kindMessage(ce.Kind, ce.Status, nil)
	}
	var fe *hass.FetchError
	if errors.As(err, &fe) {
		return kindMessage(fe.Kind, fe.Status, fe.Failures)
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Please enter both the Home Assistant URL and a long-lived access token."
	case errors.Is(err, calendar.ErrNotFound):
		return "That event no longer exists."
	case errors.Is(err, calendar.ErrRemoteEvent):
		return "Events synced from Home Assistant can only be changed in Home Assistant."
	case errors.Is(err, calendar.ErrInvalidEvent):
		return "Invalid event: " + strings.TrimPrefix(err.Error(), calendar.ErrInvalidEvent.Error()+": ")
	case errors.Is(err, family.ErrNotFound):
		return "That family member no longer exists."
	case errors.Is(err, family.ErrInvalidName):
		return "A family member needs a name."
	}
	return "Something went wrong: " + err.Error()
}

func kindMessage(kind hass.Kind, status int, failures []hass.EntityFailure) string {
	switch kind {
	case hass.KindNotConnected:
		return "Not connected to Home Assistant."
	case hass.KindUnreachable:
		// A CORS rejection and a dead host look the same from here.
		return "Could not reach Home Assistant. Check the URL, and make sure the server is running and allows requests from this dashboard (http.cors_allowed_origins)."
	case hass.KindHTTPError:
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return fmt.Sprintf("Home Assistant rejected the access token (HTTP %d).", status)
		}
		return fmt.Sprintf("Home Assistant answered with HTTP %d.", status)
	case hass.KindInvalidShape:
		return "The server did not answer with JSON. Make sure the URL points at Home Assistant itself and not at a web page in front of it."
	case hass.KindDiscoveryFailed:
		return fmt.Sprintf("Could not list the calendars in Home Assistant (HTTP %d).", status)
	case hass.KindPartialFetchFailure:
		return "Some calendars could not be loaded: " + strings.Join(hass.FailedEntityIDs(failures), ", ")
	}
	return "Home Assistant request failed."
}
