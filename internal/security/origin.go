// Package security holds the origin policy for the HTTP API and the
// WebSocket stream.
package security

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker validates WebSocket and CORS origins. Requests without an
// Origin header, from localhost, or from the server's own host are always
// accepted; anything else must match the allow list.
type OriginChecker struct {
	allowedOrigins []string
}

// NewOriginChecker creates a checker. Entries are exact origins such as
// "http://dev.example.com:3000" or wildcard hosts such as "*.example.com".
func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{allowedOrigins: allowedOrigins}
}

// CheckOrigin reports whether the request's origin is allowed.
func (oc *OriginChecker) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return oc.Allowed(origin, r.Host)
}

// Allowed reports whether origin may talk to a server reached as host.
func (oc *OriginChecker) Allowed(origin, host string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	if isLocalhost(parsed.Hostname()) || strings.EqualFold(parsed.Host, host) {
		return true
	}

	for _, allowed := range oc.allowedOrigins {
		if matchOrigin(parsed, allowed) {
			return true
		}
	}
	return false
}

func isLocalhost(host string) bool {
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasSuffix(host, ".localhost")
}

// matchOrigin supports exact match and wildcard subdomains (*.example.com).
func matchOrigin(origin *url.URL, allowed string) bool {
	allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
	if allowed == "" {
		return false
	}
	if allowed == "*" {
		return true
	}
	if strings.EqualFold(origin.Scheme+"://"+origin.Host, allowed) {
		return true
	}

	if strings.HasPrefix(allowed, "*.") {
		domain := strings.ToLower(allowed[1:]) // ".example.com"
		host := strings.ToLower(origin.Hostname())
		return strings.HasSuffix(host, domain) || host == domain[1:]
	}
	return false
}
