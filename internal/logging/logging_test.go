package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToInfoTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})

	logger.Debug("should not appear")
	logger.Info("hello", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
}

func TestNewRespectsDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, Level: LevelDebug})
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNewJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf, JSON: true})
	logger.Info("structured")
	assert.Contains(t, buf.String(), `"msg":"structured"`)
}

func TestParseLevelUnknownFallsBackToInfo(t *testing.T) {
	level, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestDiscardProducesNoOutput(t *testing.T) {
	logger := Discard()
	logger.Error("this goes nowhere")
}

func TestWithOpAddsComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})
	scoped := WithOp(logger, "storage", "load_metadata")
	scoped.Info("done")
	assert.Contains(t, buf.String(), "storage.op=load_metadata")
}
