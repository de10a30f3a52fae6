package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	require.NoError(t, r.Render("# Hello\n\nSome **bold** text."))
	assert.Contains(t, buf.String(), "Hello")
	assert.Contains(t, buf.String(), "bold")
}

func TestRenderStreamAccumulates(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	// Partial deltas accumulate without rendering.
	acc, err := r.RenderStream("", "Hello ", false)
	require.NoError(t, err)
	assert.Equal(t, "Hello ", acc)
	assert.Empty(t, buf.String())

	acc, err = r.RenderStream(acc, "world", false)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", acc)
	assert.Empty(t, buf.String())
}

func TestRenderStreamFlushesOnParagraphBreak(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	acc, err := r.RenderStream("First paragraph.", "\n\nSecond", false)
	require.NoError(t, err)
	assert.Empty(t, acc, "accumulator resets after rendering")
	assert.Contains(t, buf.String(), "First paragraph.")
}

func TestRenderStreamExplicitFlush(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	acc, err := r.RenderStream("tail content", "", true)
	require.NoError(t, err)
	assert.Empty(t, acc)
	assert.Contains(t, buf.String(), "tail content")
}

func TestRenderStreamFlushEmpty(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	acc, err := r.RenderStream("", "", true)
	require.NoError(t, err)
	assert.Empty(t, acc)
	assert.Empty(t, buf.String())
}

func TestSectionHeader(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	r.SectionHeader(ThinkingLabel)
	assert.Equal(t, "\n--- Thinking Process ---\n", buf.String())
}

func TestThinkingDimmed(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRenderer(&buf)
	require.NoError(t, err)

	r.Thinking("pondering")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b[2m"))
	assert.Contains(t, out, "pondering")
	assert.True(t, strings.HasSuffix(out, "\x1b[0m"))
}

func TestNewRendererNilWriter(t *testing.T) {
	r, err := NewRenderer(nil)
	require.NoError(t, err)
	assert.NotNil(t, r)
}
