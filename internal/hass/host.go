package hass

import "strings"

// NormalizeHost turns user input into a base URL: surrounding whitespace,
// trailing slashes and a trailing "/api" path segment are removed, and
// "https://" is prepended when no http(s) scheme is present.
//
//	example.com:8123      -> https://example.com:8123
//	http://x.com/api      -> http://x.com
//	https://x.com/        -> https://x.com
//	http://api            -> http://api
//
// Blank input yields "". NormalizeHost(NormalizeHost(s)) == NormalizeHost(s).
func NormalizeHost(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	scheme := "https://"
	if hasHTTPScheme(s) {
		i := strings.Index(s, "://") + len("://")
		scheme, s = s[:i], s[i:]
	}

	// With the scheme split off, a trailing "/api" is always a path segment.
	for {
		next := strings.TrimSuffix(strings.TrimSpace(strings.TrimRight(s, "/")), "/api")
		if next == s {
			break
		}
		s = next
	}
	return scheme + s
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// redactURL keeps only scheme and host so tokens or paths never reach logs.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "hass://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		rest = rest[:j]
	}
	return u[:i+3] + rest
}
