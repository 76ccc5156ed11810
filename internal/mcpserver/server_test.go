package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineRangeValid(t *testing.T) {
	start, end, err := parseLineRange("10-20")
	require.NoError(t, err)
	assert.Equal(t, 10, start)
	assert.Equal(t, 20, end)
}

func TestParseLineRangeRejectsMalformed(t *testing.T) {
	_, _, err := parseLineRange("abc")
	assert.Error(t, err)
}

func TestParseLineRangeRejectsInverted(t *testing.T) {
	_, _, err := parseLineRange("20-10")
	assert.Error(t, err)
}

func TestSliceLinesExtractsRange(t *testing.T) {
	text := "one\ntwo\nthree\nfour\nfive"
	out, err := sliceLines(text, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\nfour", out)
}

func TestSliceLinesClampsEnd(t *testing.T) {
	text := "one\ntwo\nthree"
	out, err := sliceLines(text, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree", out)
}

func TestSliceLinesRejectsStartPastEnd(t *testing.T) {
	text := "one\ntwo"
	_, err := sliceLines(text, 10, 20)
	assert.Error(t, err)
}
