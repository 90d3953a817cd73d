package terminal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	if cfg.KillGrace == 0 {
		cfg.KillGrace = 500 * time.Millisecond
	}
	m := NewManager(cfg, logging.NewNop())
	t.Cleanup(m.Close)
	return m
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(t, Config{})

	s, err := m.CreateSession(CreateOptions{WorkingDir: t.TempDir()})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Contains(t, s.ID, "term_")

	got, err := m.GetSession(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Count())
}

func TestManagerGetUnknown(t *testing.T) {
	m := newTestManager(t, Config{})

	_, err := m.GetSession("term_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerDefaultNames(t *testing.T) {
	m := newTestManager(t, Config{})
	dir := t.TempDir()

	s1, err := m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)
	s2, err := m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "Terminal 1", s1.Summary().Name)
	assert.Equal(t, "Terminal 2", s2.Summary().Name)

	named, err := m.CreateSession(CreateOptions{WorkingDir: dir, Name: "build"})
	require.NoError(t, err)
	assert.Equal(t, "build", named.Summary().Name)
}

func TestManagerSessionCap(t *testing.T) {
	m := newTestManager(t, Config{MaxSessions: 2, ReapGrace: time.Nanosecond})
	dir := t.TempDir()

	s1, err := m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)
	_, err = m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)

	_, err = m.CreateSession(CreateOptions{WorkingDir: dir})
	assert.ErrorIs(t, err, ErrTooManySessions)

	// Killing frees the slot right away; no reap needed. The killed
	// session stays registered and queryable.
	require.NoError(t, m.KillSession(s1.ID, true))
	waitDone(t, s1)

	_, err = m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Count())
	_, err = m.GetSession(s1.ID)
	assert.NoError(t, err)

	reaped := m.ReapExited()
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 2, m.Count())
}

func TestManagerClampsBufferBytes(t *testing.T) {
	m := newTestManager(t, Config{BufferBytes: 1})
	assert.Equal(t, readChunkSize, m.cfg.BufferBytes)

	m = newTestManager(t, Config{BufferBytes: 1 << 20})
	assert.Equal(t, 1<<20, m.cfg.BufferBytes)
}

func TestManagerKillUnknown(t *testing.T) {
	m := newTestManager(t, Config{})

	err := m.KillSession("term_missing", false)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerListSessions(t *testing.T) {
	m := newTestManager(t, Config{})
	dir := t.TempDir()

	assert.Empty(t, m.ListSessions())

	_, err := m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)
	_, err = m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)

	summaries := m.ListSessions()
	assert.Len(t, summaries, 2)
}

func TestManagerRename(t *testing.T) {
	m := newTestManager(t, Config{})

	s, err := m.CreateSession(CreateOptions{WorkingDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, m.RenameSession(s.ID, "deploy"))
	assert.Equal(t, "deploy", s.Summary().Name)

	assert.ErrorIs(t, m.RenameSession("term_missing", "x"), ErrSessionNotFound)
}

func TestManagerReapSkipsRunning(t *testing.T) {
	m := newTestManager(t, Config{ReapGrace: time.Nanosecond})
	dir := t.TempDir()

	running, err := m.CreateSession(CreateOptions{WorkingDir: dir})
	require.NoError(t, err)
	waitRunning(t, running)

	ended, err := m.CreateSession(CreateOptions{WorkingDir: dir, Args: []string{"-c", "true"}})
	require.NoError(t, err)
	waitDone(t, ended)

	assert.Equal(t, 1, m.ReapExited())
	_, err = m.GetSession(ended.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The running session is never reaped.
	_, err = m.GetSession(running.ID)
	assert.NoError(t, err)
}

func TestManagerReapHonorsGrace(t *testing.T) {
	m := newTestManager(t, Config{ReapGrace: time.Hour})

	s, err := m.CreateSession(CreateOptions{WorkingDir: t.TempDir(), Args: []string{"-c", "true"}})
	require.NoError(t, err)
	waitDone(t, s)

	assert.Equal(t, 0, m.ReapExited())
	assert.Equal(t, 1, m.Count())
}

func TestManagerClose(t *testing.T) {
	m := newTestManager(t, Config{})

	s, err := m.CreateSession(CreateOptions{WorkingDir: t.TempDir()})
	require.NoError(t, err)
	waitRunning(t, s)

	m.Close()

	waitDone(t, s)
	status, _ := s.Status()
	assert.Equal(t, StatusKilled, status)
	assert.Equal(t, 0, m.Count())

	_, err = m.CreateSession(CreateOptions{WorkingDir: t.TempDir()})
	assert.Error(t, err)
}
