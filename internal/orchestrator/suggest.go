package orchestrator

import "github.com/hbollon/go-edlib"

// suggestAliasThreshold is the minimum Jaro-Winkler similarity for a "did
// you mean" suggestion, matching the teacher's FuzzyMatcher default
// (internal/semantic/fuzzy_matcher.go's NewFuzzyMatcher threshold).
const suggestAliasThreshold = 0.80

// suggestAlias finds the best-matching known alias for an unresolved
// source filter entry, for the orchestrator's "did you mean <alias>"
// warning when a filter matches nothing.
func suggestAlias(want string, known []string) (string, bool) {
	best := ""
	bestScore := 0.0
	for _, candidate := range known {
		score, err := edlib.StringsSimilarity(want, candidate, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		s := float64(score)
		if s > bestScore {
			bestScore = s
			best = candidate
		}
	}
	if bestScore >= suggestAliasThreshold {
		return best, true
	}
	return "", false
}
