// Package config loads blz's two-tier TOML configuration: a global
// defaults file at the cache root and an optional per-source override file.
// The load-then-merge shape is kept from the teacher's config.Load /
// LoadWithRoot / mergeConfigs (internal/config/config.go in the teacher
// tree), with the wire format switched from KDL to TOML per spec.md §6.
package config

import (
	"time"
)

// Defaults are the global knobs applied to every source unless overridden.
type Defaults struct {
	RefreshHours uint32      `toml:"refresh_hours"`
	MaxArchives  int         `toml:"max_archives"`
	FetchEnabled bool        `toml:"fetch_enabled"`
	FollowLinks  FollowLinks `toml:"follow_links"`
	Allowlist    []string    `toml:"allowlist"`
}

// Paths holds filesystem location overrides.
type Paths struct {
	Root string `toml:"root"`
}

// GlobalConfig is the parsed form of <root>/global.toml.
type GlobalConfig struct {
	Defaults Defaults `toml:"defaults"`
	Paths    Paths    `toml:"paths"`
}

// DefaultGlobalConfig returns the built-in defaults used when no
// global.toml exists yet, mirroring the teacher's Load fallback-to-defaults
// behavior (internal/config/config.go's trailing default-Config branch).
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Defaults: Defaults{
			RefreshHours: 24,
			MaxArchives:  5,
			FetchEnabled: true,
			FollowLinks:  FollowLinksFirstParty,
			Allowlist:    nil,
		},
	}
}

// SourceMeta is the `[meta]` table of a per-source settings.toml.
type SourceMeta struct {
	Name        string `toml:"name"`
	DisplayName string `toml:"display_name,omitempty"`
	Homepage    string `toml:"homepage,omitempty"`
	Repo        string `toml:"repo,omitempty"`
}

// FetchOverride is the `[fetch]` table of a per-source settings.toml; every
// field is optional and, when absent, falls back to the global default.
type FetchOverride struct {
	RefreshHours *uint32      `toml:"refresh_hours,omitempty"`
	FollowLinks  *FollowLinks `toml:"follow_links,omitempty"`
	Allowlist    []string     `toml:"allowlist,omitempty"`
}

// IndexOverride is the `[index]` table of a per-source settings.toml.
type IndexOverride struct {
	MaxHeadingBlockLines *int `toml:"max_heading_block_lines,omitempty"`
}

// SourceSettings is the parsed form of sources/<alias>/settings.toml.
type SourceSettings struct {
	Meta  SourceMeta    `toml:"meta"`
	Fetch FetchOverride `toml:"fetch"`
	Index IndexOverride `toml:"index"`
}

// Effective is the fully-resolved configuration for one source: global
// defaults with any per-source override applied field-by-field, the same
// "project overrides base, base fills gaps" policy as the teacher's
// mergeConfigs.
type Effective struct {
	RefreshHours         time.Duration
	MaxArchives          int
	FetchEnabled         bool
	FollowLinks          FollowLinks
	Allowlist            []string
	MaxHeadingBlockLines int
}

// Resolve merges global defaults with an optional per-source override.
// settings may be nil when a source carries no settings.toml.
func Resolve(global *GlobalConfig, settings *SourceSettings) Effective {
	if global == nil {
		global = DefaultGlobalConfig()
	}
	eff := Effective{
		RefreshHours:         time.Duration(global.Defaults.RefreshHours) * time.Hour,
		MaxArchives:          global.Defaults.MaxArchives,
		FetchEnabled:         global.Defaults.FetchEnabled,
		FollowLinks:          global.Defaults.FollowLinks,
		Allowlist:            global.Defaults.Allowlist,
		MaxHeadingBlockLines: 0, // 0 means unbounded
	}
	if settings == nil {
		return eff
	}
	if settings.Fetch.RefreshHours != nil {
		eff.RefreshHours = time.Duration(*settings.Fetch.RefreshHours) * time.Hour
	}
	if settings.Fetch.FollowLinks != nil {
		eff.FollowLinks = *settings.Fetch.FollowLinks
	}
	if len(settings.Fetch.Allowlist) > 0 {
		eff.Allowlist = settings.Fetch.Allowlist
	}
	if settings.Index.MaxHeadingBlockLines != nil {
		eff.MaxHeadingBlockLines = *settings.Index.MaxHeadingBlockLines
	}
	return eff
}
