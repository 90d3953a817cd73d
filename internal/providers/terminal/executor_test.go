package terminal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
)

func newTestExecutor(cfg ExecConfig) *Executor {
	return NewExecutor(cfg, logging.NewNop())
}

func TestExecutorCapturesOutput(t *testing.T) {
	ex := newTestExecutor(ExecConfig{})

	result, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "echo out; echo err >&2"}, t.TempDir(), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "out")
	assert.Contains(t, result.Stderr, "err")
	assert.False(t, result.StdoutTruncated)
	assert.False(t, result.StderrTruncated)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestExecutorNonZeroExit(t *testing.T) {
	ex := newTestExecutor(ExecConfig{})

	result, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "echo partial; exit 2"}, "", 0)
	require.NoError(t, err, "a non-zero exit is a result, not an error")

	assert.Equal(t, 2, result.ExitCode)
	assert.Contains(t, result.Stdout, "partial")
}

func TestExecutorTimeout(t *testing.T) {
	ex := newTestExecutor(ExecConfig{})

	start := time.Now()
	result, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "echo early; sleep 30"}, "", 200*time.Millisecond)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	require.NotNil(t, result, "timeout must still return captured output")
	assert.Contains(t, result.Stdout, "early")
	assert.Less(t, elapsed, 10*time.Second, "the child must be killed, not waited out")
}

func TestExecutorTimeoutClamp(t *testing.T) {
	ex := newTestExecutor(ExecConfig{MaxTimeout: 100 * time.Millisecond})

	_, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "sleep 30"}, "", time.Hour)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecutorTruncatesOutput(t *testing.T) {
	ex := newTestExecutor(ExecConfig{MaxCaptureBytes: 64})

	result, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "yes x | head -c 4096"}, "", 0)
	require.NoError(t, err)

	assert.True(t, result.StdoutTruncated)
	assert.Len(t, result.Stdout, 64)
	assert.False(t, result.StderrTruncated)
}

func TestExecutorEmptyCommand(t *testing.T) {
	ex := newTestExecutor(ExecConfig{})

	_, err := ex.Execute(context.Background(), "", nil, "", 0)
	assert.Error(t, err)
}

func TestExecutorMissingBinary(t *testing.T) {
	ex := newTestExecutor(ExecConfig{})

	_, err := ex.Execute(context.Background(), "/nonexistent/binary", nil, "", 0)
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), ErrTimeout.Error()))
}

func TestExecutorWorkingDir(t *testing.T) {
	dir := t.TempDir()
	ex := newTestExecutor(ExecConfig{})

	result, err := ex.Execute(context.Background(), "/bin/sh", []string{"-c", "pwd"}, dir, 0)
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, filepath.Base(dir))
}
