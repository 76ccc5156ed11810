package searchindex

import (
	"strings"
	"unicode/utf8"
)

const (
	snippetContext  = 50
	snippetFallback = 100
)

// snippet implements spec.md §4.3's snippet policy: ~50 chars before and
// after the first case-insensitive match of any query word in content,
// expanded to UTF-8 rune boundaries, with "..." markers on whichever side
// was truncated. If no query word appears in content at all (the query
// matched only heading_path), it returns the first ~100 chars instead.
func snippet(content, query string) string {
	if content == "" {
		return ""
	}
	words := tokenize(query)
	lowerContent := strings.ToLower(content)

	bestIdx := -1
	for _, w := range words {
		idx := strings.Index(lowerContent, strings.ToLower(w))
		if idx == -1 {
			continue
		}
		if bestIdx == -1 || idx < bestIdx {
			bestIdx = idx
		}
	}

	if bestIdx == -1 {
		return truncateRunes(content, snippetFallback, false)
	}

	start := runeBackOff(content, bestIdx, snippetContext)
	end := runeForwardOff(content, bestIdx, snippetContext)

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(content[start:end])
	if end < len(content) {
		b.WriteString("...")
	}
	return b.String()
}

// runeBackOff moves back up to n runes from byte offset idx, never
// crossing below 0, and returns a byte offset landing on a rune boundary.
func runeBackOff(s string, idx, n int) int {
	i := idx
	for count := 0; count < n && i > 0; count++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		if size == 0 {
			break
		}
		i -= size
	}
	return i
}

// runeForwardOff moves forward up to n runes from byte offset idx.
func runeForwardOff(s string, idx, n int) int {
	i := idx
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size == 0 {
			break
		}
		i += size
	}
	return i
}

func truncateRunes(s string, n int, withEllipsis bool) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	end := runeForwardOff(s, 0, n)
	out := s[:end]
	if withEllipsis {
		out += "..."
	}
	return out
}
