package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownAlias(t *testing.T) {
	r := New()
	e, ok := r.Lookup("react")
	require.True(t, ok)
	assert.Equal(t, "React", e.DisplayName)
	assert.NotEmpty(t, e.URL)
}

func TestLookupUnknownAlias(t *testing.T) {
	r := New()
	_, ok := r.Lookup("not-a-real-framework")
	assert.False(t, ok)
}

func TestListIsSorted(t *testing.T) {
	r := New()
	aliases := r.List()
	require.NotEmpty(t, aliases)
	for i := 1; i < len(aliases); i++ {
		assert.LessOrEqual(t, aliases[i-1], aliases[i])
	}
}

func TestSearchByTag(t *testing.T) {
	r := New()
	hits := r.Search("python")
	var aliases []string
	for _, e := range hits {
		aliases = append(aliases, e.Alias)
	}
	assert.Contains(t, aliases, "fastapi")
	assert.Contains(t, aliases, "django")
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	r := New()
	assert.Len(t, r.Search(""), len(r.List()))
}

func TestSuggestFindsCloseMatch(t *testing.T) {
	r := New()
	suggestion, ok := r.Suggest("raect")
	require.True(t, ok)
	assert.Equal(t, "react", suggestion)
}

func TestSuggestNoCloseMatch(t *testing.T) {
	r := New()
	_, ok := r.Suggest("zzzzzzzzzzzz")
	assert.False(t, ok)
}
