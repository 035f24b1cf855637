// Package deeplink recognizes links that open the mobility dashboard.
package deeplink

import (
	"net/url"
	"strings"
)

// Host is the deep-link host of the mobility dashboard
const Host = "mobilitymonitor"

// DefaultScheme of the city app
const DefaultScheme = "solingen"

// Matcher checks URLs against <scheme>://mobilitymonitor
type Matcher struct {
	prefix string
}

// NewMatcher creates a matcher for the given scheme. Empty means DefaultScheme.
func NewMatcher(scheme string) Matcher {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return Matcher{prefix: scheme + "://" + Host}
}

// CanOpen reports whether rawURL starts with the matcher's prefix
func (m Matcher) CanOpen(rawURL string) bool {
	return strings.HasPrefix(rawURL, m.prefix)
}

// Prefix returns the matched URL prefix
func (m Matcher) Prefix() string {
	return m.prefix
}

// Target returns the path after the host of an openable URL,
// e.g. "screen/42" for solingen://mobilitymonitor/screen/42.
func (m Matcher) Target(rawURL string) (string, bool) {
	if !m.CanOpen(rawURL) {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	return strings.Trim(u.Path, "/"), true
}
