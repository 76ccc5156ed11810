package searchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQueryBareWordIsTerm(t *testing.T) {
	node, err := parseQuery("hooks")
	require.NoError(t, err)
	tn, ok := node.(termNode)
	require.True(t, ok)
	assert.Equal(t, []string{"hook"}, tn.phrase)
}

func TestParseQueryImplicitOr(t *testing.T) {
	node, err := parseQuery("foo bar")
	require.NoError(t, err)
	bn, ok := node.(boolNode)
	require.True(t, ok)
	assert.Equal(t, "OR", bn.op)
	assert.Len(t, bn.children, 2)
}

func TestParseQueryExplicitAnd(t *testing.T) {
	node, err := parseQuery("foo AND bar")
	require.NoError(t, err)
	bn, ok := node.(boolNode)
	require.True(t, ok)
	assert.Equal(t, "AND", bn.op)
}

func TestParseQueryNotBindsIntoAndChain(t *testing.T) {
	node, err := parseQuery("foo NOT bar")
	require.NoError(t, err)
	bn, ok := node.(boolNode)
	require.True(t, ok)
	assert.Equal(t, "AND", bn.op)
	require.Len(t, bn.children, 2)
	_, isNot := bn.children[1].(notNode)
	assert.True(t, isNot)
}

func TestParseQueryParensGroup(t *testing.T) {
	node, err := parseQuery("(foo OR bar) AND baz")
	require.NoError(t, err)
	bn, ok := node.(boolNode)
	require.True(t, ok)
	assert.Equal(t, "AND", bn.op)
	require.Len(t, bn.children, 2)
	inner, ok := bn.children[0].(boolNode)
	require.True(t, ok)
	assert.Equal(t, "OR", inner.op)
}

func TestParseQueryPhrase(t *testing.T) {
	node, err := parseQuery(`"side effects"`)
	require.NoError(t, err)
	tn, ok := node.(termNode)
	require.True(t, ok)
	assert.Equal(t, []string{"side", "effect"}, tn.phrase)
}

func TestParseQueryUnbalancedParens(t *testing.T) {
	_, err := parseQuery("(foo AND bar")
	assert.Error(t, err)
}
