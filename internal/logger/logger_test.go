package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelInfo)
	log.SetJSON(true)

	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)
	log.Error("failed: %s", "boom")

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "shown 2", entries[0]["message"])
	assert.Equal(t, "error", entries[1]["level"])
}

func TestLogger_WithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelDebug)
	log.SetJSON(true)

	child := log.With("request_id", "abc")
	child.PipelineStart("2+2")
	log.Info("parent")

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["request_id"])
	assert.Equal(t, "2+2", entries[0]["query"])
	assert.NotContains(t, entries[1], "request_id")
}

func TestLogger_ToolCallKeepsParamsStructured(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelInfo)
	log.SetJSON(true)

	log.ToolCall("calculate", `{ "expression": "1 + 1" }`)
	log.ToolCall("calculate", `{broken`)
	log.ToolResult("calculate", false, `{"error":"Invalid expression"}`, 3*time.Millisecond)

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]any{"expression": "1 + 1"}, entries[0]["params"])
	assert.Equal(t, "{broken", entries[1]["params"])
	assert.Equal(t, "warn", entries[2]["level"])
	assert.Equal(t, false, entries[2]["success"])
}

func TestLogger_ConsoleNoColor(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, LevelInfo)
	log.SetColorMode(false)

	log.RouteDecision("search", "TOOL: SEARCH")

	out := buf.String()
	assert.Contains(t, out, "route decided")
	assert.Contains(t, out, "route=search")
	assert.NotContains(t, out, "\x1b[")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a\nb\n...", preview("a\nb\nc"))
	long := strings.Repeat("长", 600)
	got := preview(long)
	assert.Equal(t, 503, len([]rune(got)))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("whatever"))
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.With("k", "v").Error("nothing %s", "here")
	})
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&buf, LevelInfo)
	base.SetJSON(true)
	scoped := base.With("request_id", "r-1")

	fallback := Nop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	ctx := NewContext(context.Background(), scoped)
	FromContext(ctx, fallback).RouteDecision("none", "NO TOOL")

	entries := jsonLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "r-1", entries[0]["request_id"])
}
