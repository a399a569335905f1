package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestInitializeWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "debug", "json")

	ExternalServiceResult("telegram", "send_message", errors.New("chat not found"), "chat_id", int64(-100))
	out := buf.String()
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"service":"telegram"`)
	assert.Contains(t, out, `"chat_id":-100`)
}

func TestInitializeWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "text")

	DatabaseCall("select", "ads")
	assert.Empty(t, buf.String())

	Info("ready", "port", 8080)
	assert.Contains(t, buf.String(), "port=8080")
}
