package config

import "strings"

// FollowLinks controls whether sitemap entries off the source's own host
// may be followed; internal/ingest's sitemap fallback is the one place
// that consults it (through MayFollow). The discovery probe and fetcher
// do not.
// It is the one enum-driven polymorphism point the spec calls out alongside
// discovery.Method.
type FollowLinks string

const (
	FollowLinksNone       FollowLinks = "none"
	FollowLinksFirstParty FollowLinks = "first_party"
	FollowLinksAllowlist  FollowLinks = "allowlist"
)

// UnmarshalText lets FollowLinks decode directly from TOML string values.
func (f *FollowLinks) UnmarshalText(text []byte) error {
	switch FollowLinks(strings.ToLower(string(text))) {
	case FollowLinksNone, "":
		*f = FollowLinksNone
	case FollowLinksFirstParty:
		*f = FollowLinksFirstParty
	case FollowLinksAllowlist:
		*f = FollowLinksAllowlist
	default:
		*f = FollowLinksNone
	}
	return nil
}

// MarshalText renders FollowLinks back to its TOML string form.
func (f FollowLinks) MarshalText() ([]byte, error) {
	if f == "" {
		return []byte(FollowLinksNone), nil
	}
	return []byte(f), nil
}
