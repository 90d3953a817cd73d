package terminal

import (
	"errors"
	"time"
)

// Status represents the lifecycle state of a terminal session.
//
// Transitions are monotonic: Starting -> Running -> (Exited | Killed).
// A session never leaves a terminal state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusKilled   Status = "killed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusExited || s == StatusKilled
}

// Sentinel exit codes recorded when the shell did not exit on its own.
const (
	// ExitCodeSpawnFailure is recorded when the PTY or child process could
	// not be created at all.
	ExitCodeSpawnFailure = 127

	// ExitCodeIOFailure is recorded when the reader loop died on an I/O
	// error other than EOF.
	ExitCodeIOFailure = -1
)

// Caller-facing errors.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotRunning = errors.New("session not running")
	ErrTooManySessions   = errors.New("too many concurrent sessions")
	ErrTimeout           = errors.New("command timed out")
)

// Config controls session, buffer and reaping behavior for a Manager.
type Config struct {
	// Shell is the default shell executable. Empty means $SHELL, falling
	// back to /bin/bash.
	Shell string

	// MaxSessions caps concurrently live sessions. Exited sessions that
	// have not been reaped yet stay registered but do not occupy a slot.
	MaxSessions int

	// BufferBytes bounds each session's output buffer.
	BufferBytes int

	// SubscriberBuffer is the per-subscriber event channel capacity. A
	// subscriber that falls this far behind is detached with a lagged
	// event instead of silently skipping output.
	SubscriberBuffer int

	// KillGrace is how long a graceful terminate waits before escalating
	// to SIGKILL.
	KillGrace time.Duration

	// ReapGrace is how long an exited session with no subscribers remains
	// queryable before ReapExited removes it.
	ReapGrace time.Duration

	// ReapInterval is the period of the background reap loop.
	ReapInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxSessions:      16,
		BufferBytes:      256 * 1024,
		SubscriberBuffer: 256,
		KillGrace:        2 * time.Second,
		ReapGrace:        30 * time.Second,
		ReapInterval:     15 * time.Second,
	}
}

// CreateOptions describes a session to create.
type CreateOptions struct {
	// Shell is the executable to run. Defaults to the Manager's shell.
	Shell string

	// Args are passed to the shell executable.
	Args []string

	// WorkingDir is the initial working directory, immutable after
	// creation. Defaults to $HOME, then /tmp.
	WorkingDir string

	// Name is a human-readable label. Defaults to "Terminal N".
	Name string

	// Env holds extra environment variables for the child.
	Env map[string]string

	Cols int
	Rows int
}

// Summary is the public, output-free view of a session.
type Summary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Shell        string    `json:"shell"`
	WorkingDir   string    `json:"working_dir"`
	Status       Status    `json:"status"`
	ExitCode     *int      `json:"exit_code,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Subscribers  int       `json:"subscribers"`
}

// Chunk is one unit of terminal output. Sequence numbers increase by one
// per chunk for the lifetime of a session, so consumers can detect gaps.
type Chunk struct {
	Seq  uint64    `json:"seq"`
	Data []byte    `json:"data"`
	Time time.Time `json:"time"`
}

// EventType discriminates events delivered to subscribers.
type EventType string

const (
	// EventOutput carries one output chunk.
	EventOutput EventType = "output"

	// EventEnded signals the session reached a terminal state. It is the
	// last event on a subscription.
	EventEnded EventType = "ended"

	// EventLagged signals the subscriber fell too far behind and was
	// detached. No output was skipped before this point.
	EventLagged EventType = "lagged"
)

// Event is one item on a subscription stream.
type Event struct {
	Type     EventType `json:"type"`
	Chunk    *Chunk    `json:"chunk,omitempty"`
	Status   Status    `json:"status,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
}
