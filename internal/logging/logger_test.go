package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("Persist failed", "path", "catalog.json")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"Persist failed"`)
	assert.Contains(t, buf.String(), `"path":"catalog.json"`)
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LogConfig{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)

	logger.Info("Book added", "code", "1234567890")

	assert.Contains(t, buf.String(), "msg=\"Book added\"")
	assert.Contains(t, buf.String(), "code=1234567890")
}

func TestNew_RotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "catalog.log")
	var console bytes.Buffer

	logger, closer, err := New(config.LogConfig{Level: "info", File: file, MaxSizeMB: 1, MaxBackups: 1}, &console)
	require.NoError(t, err)

	logger.Info("Book issued", "user_id", "alice")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Book issued")
	assert.Empty(t, console.String())
}

func TestNew_UnknownFormat(t *testing.T) {
	_, _, err := New(config.LogConfig{Format: "xml"}, nil)
	assert.Error(t, err)
}
