package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json", "visiguard")
	require.NoError(t, err)

	l.Info().Msg("hidden")
	l.Warn().Str("video_id", "v1").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "visiguard", line["service"])
	assert.Equal(t, "v1", line["video_id"])
	assert.Equal(t, "warn", line["level"])
}

func TestNew_EmptyLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "", "json", "visiguard")
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug", "console", "visiguard")
	require.NoError(t, err)

	l.Debug().Msg("pipeline started")
	assert.Contains(t, buf.String(), "pipeline started")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", "json", "visiguard")
	require.Error(t, err)
}

func TestNew_AutoFormatOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "info", "auto", "visiguard")
	require.NoError(t, err)

	l.Info().Msg("plain")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
