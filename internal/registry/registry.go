// Package registry implements blz's static catalog lookup for known
// sources (spec.md §2's "Registry" component): a small built-in list of
// well-known documentation sources that `blz add <name>` can resolve
// without the caller supplying a URL, plus a "did you mean" suggestion
// when a requested name isn't in the catalog.
package registry

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// suggestThreshold matches internal/orchestrator's alias-suggestion
// threshold (grounded on the teacher's FuzzyMatcher default).
const suggestThreshold = 0.80

// Entry is one catalog row: a known source a caller can add by name alone.
type Entry struct {
	Alias       string
	URL         string
	DisplayName string
	Description string
	Category    string
	Tags        []string
}

// catalog is the built-in registry. It is intentionally small and
// hand-curated; spec.md names this component at 3% of the system's
// surface and scopes it to lookup, not catalog maintenance tooling.
var catalog = []Entry{
	{Alias: "react", URL: "https://react.dev/llms-full.txt", DisplayName: "React", Category: "frontend", Tags: []string{"javascript", "ui"}},
	{Alias: "vue", URL: "https://vuejs.org/llms-full.txt", DisplayName: "Vue.js", Category: "frontend", Tags: []string{"javascript", "ui"}},
	{Alias: "svelte", URL: "https://svelte.dev/llms-full.txt", DisplayName: "Svelte", Category: "frontend", Tags: []string{"javascript", "ui"}},
	{Alias: "tailwindcss", URL: "https://tailwindcss.com/llms.txt", DisplayName: "Tailwind CSS", Category: "frontend", Tags: []string{"css"}},
	{Alias: "nextjs", URL: "https://nextjs.org/llms.txt", DisplayName: "Next.js", Category: "frontend", Tags: []string{"javascript", "framework"}},
	{Alias: "fastapi", URL: "https://fastapi.tiangolo.com/llms.txt", DisplayName: "FastAPI", Category: "backend", Tags: []string{"python"}},
	{Alias: "django", URL: "https://docs.djangoproject.com/llms.txt", DisplayName: "Django", Category: "backend", Tags: []string{"python"}},
	{Alias: "rust", URL: "https://doc.rust-lang.org/llms.txt", DisplayName: "Rust", Category: "language", Tags: []string{"systems"}},
	{Alias: "go", URL: "https://go.dev/llms.txt", DisplayName: "Go", Category: "language", Tags: []string{"systems"}},
	{Alias: "kubernetes", URL: "https://kubernetes.io/llms.txt", DisplayName: "Kubernetes", Category: "infra", Tags: []string{"orchestration"}},
}

// Registry is a static, read-only catalog lookup.
type Registry struct {
	byAlias map[string]Entry
	aliases []string
}

// New builds a Registry over the built-in catalog.
func New() *Registry {
	return NewFrom(catalog)
}

// NewFrom builds a Registry over a caller-supplied entry list, for a
// front end that wants to extend or replace the built-in catalog.
func NewFrom(entries []Entry) *Registry {
	r := &Registry{byAlias: make(map[string]Entry, len(entries)), aliases: make([]string, 0, len(entries))}
	for _, e := range entries {
		r.byAlias[e.Alias] = e
		r.aliases = append(r.aliases, e.Alias)
	}
	sort.Strings(r.aliases)
	return r
}

// Lookup returns the catalog entry for alias, if any.
func (r *Registry) Lookup(alias string) (Entry, bool) {
	e, ok := r.byAlias[alias]
	return e, ok
}

// List returns every catalog alias in lexicographic order.
func (r *Registry) List() []string {
	out := make([]string, len(r.aliases))
	copy(out, r.aliases)
	return out
}

// Search returns catalog entries whose alias, display name, category, or
// tags contain query (case-insensitive substring match).
func (r *Registry) Search(query string) []Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Entry, 0, len(r.aliases))
		for _, alias := range r.aliases {
			out = append(out, r.byAlias[alias])
		}
		return out
	}

	var out []Entry
	for _, alias := range r.aliases {
		e := r.byAlias[alias]
		if matches(e, query) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e Entry, query string) bool {
	if strings.Contains(strings.ToLower(e.Alias), query) ||
		strings.Contains(strings.ToLower(e.DisplayName), query) ||
		strings.Contains(strings.ToLower(e.Category), query) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// Suggest returns the closest catalog alias to want by Jaro-Winkler
// similarity, if one clears suggestThreshold (grounded on the same
// edlib wiring internal/orchestrator uses for "did you mean" hints).
func (r *Registry) Suggest(want string) (string, bool) {
	var best string
	var bestScore float64
	for _, alias := range r.aliases {
		score, err := edlib.StringsSimilarity(want, alias, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		s := float64(score)
		if s > bestScore {
			bestScore = s
			best = alias
		}
	}
	if bestScore < suggestThreshold {
		return "", false
	}
	return best, true
}
