package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dc01-interlock/internal/hjop"
)

func TestRootCmdDefaults(t *testing.T) {
	cmd := newRootCmd()
	f := cmd.Flags()

	server, err := f.GetString("server")
	require.NoError(t, err)
	assert.Equal(t, hjop.DefaultServer, server)

	port, err := f.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 5823, port)

	for _, short := range []string{"s", "p", "c", "l", "m", "r", "d"} {
		assert.NotNil(t, f.ShorthandLookup(short), "flag -%s", short)
	}
}

func TestRootCmdVersion(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), appVersion)
}

func TestRootCmdRejectsBadLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-l", "chatty"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "log level")
}

func TestNewLoggerDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var out bytes.Buffer
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	logger, closer, err := newLogger("debug", dir, &out, now)
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "2026-10-19.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
	assert.Contains(t, out.String(), "msg=hello")
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var out bytes.Buffer
	logger, _, err := newLogger("warn", "", &out, time.Now())
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, out.String(), "quiet")
	assert.Contains(t, out.String(), "loud")
}

func TestRunWatchdogPortErrorExits(t *testing.T) {
	var out bytes.Buffer
	logger, _, err := newLogger("info", "", &out, time.Now())
	require.NoError(t, err)
	opts := &options{device: "/nonexistent/dc01", mock: true, reconnect: time.Millisecond, timeout: time.Second}

	err = runWatchdog(context.Background(), opts, logger)
	assert.Error(t, err)
}

func TestRunWatchdogResumeRetriesUntilCancelled(t *testing.T) {
	var out bytes.Buffer
	logger, _, err := newLogger("info", "", &out, time.Now())
	require.NoError(t, err)
	opts := &options{device: "/nonexistent/dc01", mock: true, resume: true, reconnect: 5 * time.Millisecond, timeout: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, runWatchdog(ctx, opts, logger))
	assert.Greater(t, strings.Count(out.String(), "DC-01 connection lost"), 1)
}
