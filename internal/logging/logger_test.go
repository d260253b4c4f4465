package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf).With("component", "test")

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "book borrowed", "book_id", int64(7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "book borrowed", entry["msg"])
	assert.Equal(t, "test", entry["component"])
	assert.EqualValues(t, 7, entry["book_id"])
}

func TestNew_TextFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", "text", &buf)

	log.Info(context.Background(), "quiet")
	assert.Empty(t, buf.String())

	log.Warn(context.Background(), "loud")
	assert.Contains(t, buf.String(), "loud")
}
