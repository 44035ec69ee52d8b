package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerTo_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := InitLoggerTo(&buf, "info", "json")
	require.NotNil(t, l)

	l.Info("hello", slog.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestInitLoggerTo_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "info", "text").Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestInitLoggerTo_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := InitLoggerTo(&buf, "warn", "text")

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestFromContext_AttachesValues(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "info", "json")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, 42)
	ctx = WithConnID(ctx, "conn-7")

	FromContext(ctx).Info("with context")

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":42`)
	assert.Contains(t, out, `"conn_id":"conn-7"`)
}

func TestFromContext_NoValues(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, "info", "json")

	FromContext(context.Background()).Info("plain")

	out := buf.String()
	assert.True(t, strings.Contains(out, "plain"))
	assert.NotContains(t, out, "request_id")
	assert.NotContains(t, out, "user_id")
}
