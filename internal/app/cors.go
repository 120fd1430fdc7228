package app

import (
	"net/url"
	"strings"
)

// extractOriginHost returns the host[:port] of an Origin header value, or the
// value itself when it does not parse as a URL.
func extractOriginHost(origin string) string {
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		return u.Host
	}
	return origin
}

// matchOriginPattern supports exact hosts, "*.example.com" subdomain
// wildcards and "host:*" any-port wildcards.
func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
