package config

import (
	"net/url"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesAllowlist reports whether rawURL's host is permitted to be
// followed under FollowLinksAllowlist. Patterns are glob-style host
// matches, e.g. "*.example.com" or "docs.example.com".
func MatchesAllowlist(rawURL string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), host); ok {
			return true
		}
	}
	return false
}

// IsFirstParty reports whether candidateURL shares a host with baseURL,
// used for FollowLinksFirstParty.
func IsFirstParty(baseURL, candidateURL string) bool {
	b, err1 := url.Parse(baseURL)
	c, err2 := url.Parse(candidateURL)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.EqualFold(b.Hostname(), c.Hostname())
}

// MayFollow applies the resolved FollowLinks policy to a link discovered on
// a source's page.
func MayFollow(policy FollowLinks, allowlist []string, baseURL, candidateURL string) bool {
	switch policy {
	case FollowLinksNone:
		return false
	case FollowLinksFirstParty:
		return IsFirstParty(baseURL, candidateURL)
	case FollowLinksAllowlist:
		return MatchesAllowlist(candidateURL, allowlist)
	default:
		return false
	}
}
