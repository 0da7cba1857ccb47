package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/production"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOGGING_LEVEL", "")
	t.Setenv("LOGGING_FORMAT", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCommand_FlagsOverrideDefaults(t *testing.T) {
	out, err := execute(t, "config", "--start", "green", "--red", "2s")
	require.NoError(t, err)

	cfg, err := production.DecodeConfig([]byte(out), production.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.Green, cfg.StartColor)
	assert.Equal(t, trafficlight.Duration(2e9), cfg.Durations.Red)
	assert.Equal(t, trafficlight.Duration(trafficlight.DefaultYellowDuration), cfg.Durations.Yellow)
}

func TestConfigCommand_JSON(t *testing.T) {
	out, err := execute(t, "config", "--json", "--poll", "250ms")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"pollInterval": "250ms"`)
}

func TestConfigCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "light.yaml")
	cfg := trafficlight.DefaultConfig()
	cfg.ID = "corner-7"
	cfg.StartColor = trafficlight.Yellow
	require.NoError(t, production.WriteConfig(path, cfg))

	out, err := execute(t, "config", "--config", path, "--green", "9s")
	require.NoError(t, err)

	got, err := production.DecodeConfig([]byte(out), production.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "corner-7", got.ID)
	assert.Equal(t, trafficlight.Yellow, got.StartColor)
	assert.Equal(t, trafficlight.Duration(9e9), got.Durations.Green)
}

func TestConfigCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "config", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
}

func TestRootCommand_InvalidStart(t *testing.T) {
	_, err := execute(t, "--start", "blue")
	require.Error(t, err)
}

func TestRootCommand_Polls(t *testing.T) {
	dot := filepath.Join(t.TempDir(), "light.dot")
	out, err := execute(t,
		"--red", "1ms", "--yellow", "1ms", "--green", "1ms",
		"--poll", "2ms", "--count", "3",
		"--log-level", "ERROR",
		"--dot", dot)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, "poll "), "line %d: %q", i, line)
	}

	data, err := os.ReadFile(dot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "digraph HSM")
	assert.Contains(t, string(data), `subgraph "cluster_Base"`)
}

func TestWatchCommand(t *testing.T) {
	out, err := execute(t, "watch",
		"--red", "1ms", "--yellow", "1ms", "--green", "1ms",
		"--poll", "2ms", "--count", "3",
		"--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, out, "reply 1: ")
	assert.Contains(t, out, "reply 3: ")
	assert.NotContains(t, out, "reply 4: ")
}
