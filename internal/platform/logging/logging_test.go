package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONAtLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "activity", "Chess Club")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "output=%q", buf.String())

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, "Chess Club", rec["activity"])
}

func TestNew_DefaultsToInfoText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New("bogus", "", &buf)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "msg=shown")
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	require.Same(t, slog.Default(), FromContext(context.Background()))

	logger := New("info", "text", &bytes.Buffer{})
	ctx := WithLogger(context.Background(), logger)
	require.Same(t, logger, FromContext(ctx))
}
