package model

import "time"

// LlmsJson is the per-source serialized metadata + TOC + file list + line
// index + parser diagnostics, persisted as <alias>/llms.json. It is
// rewritten whole on every successful sync — never partially updated.
type LlmsJson struct {
	Source      Source         `json:"source"`
	Toc         []*TocEntry    `json:"toc"`
	Files       []FileEntry    `json:"files"`
	LineIndex   LineIndex      `json:"line_index"`
	Diagnostics []Diagnostic   `json:"diagnostics"`
	FilterStats map[string]int `json:"filter_stats,omitempty"`
}

// AnchorMapping records one heading's remap history entry.
type AnchorMapping struct {
	HeadingPath []string `json:"heading_path"`
	OldLines    string   `json:"old_lines"`
	NewLines    string   `json:"new_lines"`
	Anchor      string   `json:"anchor"`
}

// AnchorsMap is the persisted remap history for a source, used to keep deep
// links stable across content churn.
type AnchorsMap struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Mappings  []AnchorMapping `json:"mappings"`
}
