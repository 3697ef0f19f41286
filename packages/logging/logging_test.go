package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitForCLIFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)
	t.Cleanup(func() { InitForCLI(LevelError, &bytes.Buffer{}) })

	Info("runner", "hidden %d", 1)
	Warn("runner", "shown %d", 2)
	Error("http", errors.New("boom"), "request failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "subsystem=runner")
	assert.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
