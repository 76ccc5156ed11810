package config

import (
	blzerrors "github.com/standardbeagle/blz/internal/errors"
)

// Validate checks a GlobalConfig for ranges that would otherwise fail
// silently or behave surprisingly downstream, matching the teacher's
// pattern of a small Validate() on each config section
// (internal/config/config.go's SearchRanking.Validate).
func (c *GlobalConfig) Validate() error {
	if c.Defaults.MaxArchives < 0 {
		return blzerrors.New(blzerrors.Config, "config.validate", "max_archives must be >= 0")
	}
	switch c.Defaults.FollowLinks {
	case FollowLinksNone, FollowLinksFirstParty, FollowLinksAllowlist:
	default:
		return blzerrors.New(blzerrors.Config, "config.validate", "follow_links must be one of none|first_party|allowlist")
	}
	if c.Defaults.FollowLinks == FollowLinksAllowlist && len(c.Defaults.Allowlist) == 0 {
		return blzerrors.New(blzerrors.Config, "config.validate", "follow_links=allowlist requires a non-empty allowlist")
	}
	return nil
}
