package hass

import (
	"fmt"
	"strings"
)

// Kind classifies integration failures.
type Kind int

const (
	// KindNotConnected means preconditions were unmet; no request was made.
	KindNotConnected Kind = iota + 1
	// KindUnreachable is a transport-level failure (DNS, TLS, refused, timeout).
	KindUnreachable
	// KindHTTPError is a non-2xx response to the connectivity probe or an
	// entity event request.
	KindHTTPError
	// KindInvalidShape means the response was not JSON or not the expected shape.
	KindInvalidShape
	// KindDiscoveryFailed is a non-2xx response from calendar discovery.
	KindDiscoveryFailed
	// KindPartialFetchFailure means at least one entity could not be fetched.
	KindPartialFetchFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotConnected:
		return "not_connected"
	case KindUnreachable:
		return "unreachable"
	case KindHTTPError:
		return "http_error"
	case KindInvalidShape:
		return "invalid_shape"
	case KindDiscoveryFailed:
		return "discovery_failed"
	case KindPartialFetchFailure:
		return "partial_fetch_failure"
	default:
		return "unknown"
	}
}

// ConnectionError is returned by TestConnection.
type ConnectionError struct {
	Kind        Kind
	Status      int
	ContentType string
	Err         error
}

func (e *ConnectionError) Error() string {
	switch e.Kind {
	case KindHTTPError:
		return fmt.Sprintf("hass: connection failed: HTTP %d", e.Status)
	case KindInvalidShape:
		if e.ContentType != "" {
			return fmt.Sprintf("hass: expected JSON from API probe but got %q", e.ContentType)
		}
		return withCause("hass: API probe returned an invalid response", e.Err)
	default:
		return withCause("hass: connection failed: "+e.Kind.String(), e.Err)
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FetchError is returned by FetchEvents and FetchResult.Err.
type FetchError struct {
	Kind        Kind
	Status      int
	ContentType string
	Failures    []EntityFailure
	Err         error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindNotConnected:
		return "hass: not connected"
	case KindDiscoveryFailed:
		return fmt.Sprintf("hass: calendar discovery failed: HTTP %d", e.Status)
	case KindInvalidShape:
		if e.ContentType != "" {
			return fmt.Sprintf("hass: expected JSON calendar list but got %q", e.ContentType)
		}
		return withCause("hass: calendar list has unexpected shape", e.Err)
	case KindPartialFetchFailure:
		ids := make([]string, 0, len(e.Failures))
		for _, f := range e.Failures {
			ids = append(ids, f.EntityID)
		}
		return fmt.Sprintf("hass: %d calendar(s) could not be fetched: %s", len(e.Failures), strings.Join(ids, ", "))
	default:
		return withCause("hass: fetch failed: "+e.Kind.String(), e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// EntityFailure records a skipped calendar entity.
type EntityFailure struct {
	EntityID string
	Kind     Kind
	Status   int
	Err      error
}

func (f EntityFailure) Error() string {
	if f.Kind == KindHTTPError {
		return fmt.Sprintf("%s: HTTP %d", f.EntityID, f.Status)
	}
	return withCause(f.EntityID+": "+f.Kind.String(), f.Err)
}

// FailedEntityIDs lists the entity ids of failures, in order. It returns nil
// when there are none.
func FailedEntityIDs(failures []EntityFailure) []string {
	if len(failures) == 0 {
		return nil
	}
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.EntityID)
	}
	return ids
}

func withCause(msg string, err error) string {
	if err == nil {
		return msg
	}
	return msg + ": " + err.Error()
}
