package terminal

import (
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/infrastructure/monitoring"
)

// Session is one interactive shell on a PTY plus its buffered output.
//
// All mutable state is guarded by mu. The reader loop is the only writer
// of output: it appends to the buffer and broadcasts to subscribers under
// the same lock, so a subscriber attaching at any moment sees a gap-free
// replay followed by live chunks.
type Session struct {
	ID string

	mu           sync.RWMutex
	name         string
	shell        string
	args         []string
	workingDir   string
	status       Status
	exitCode     int
	createdAt    time.Time
	lastActiveAt time.Time
	pty          *Pty
	subscribers  map[uint64]*subscriber
	nextSubID    uint64
	killed       bool

	buffer  *Buffer
	cfg     Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	// done is closed when the session reaches a terminal state.
	done chan struct{}
}

type subscriber struct {
	id     uint64
	events chan Event
}

// Subscription is one attached output consumer. Replay holds the buffer
// contents at attach time; Events then yields live chunks in order,
// finishing with an ended (or lagged) event.
type Subscription struct {
	Replay []Chunk
	Events <-chan Event

	session *Session
	id      uint64
	once    sync.Once
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.session.unsubscribe(s.id)
	})
}

func newSession(id string, opts CreateOptions, cfg Config, logger *logging.Logger) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		name:         opts.Name,
		shell:        opts.Shell,
		args:         opts.Args,
		workingDir:   opts.WorkingDir,
		status:       StatusStarting,
		createdAt:    now,
		lastActiveAt: now,
		subscribers:  make(map[uint64]*subscriber),
		buffer:       NewBuffer(cfg.BufferBytes),
		cfg:          cfg,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// start spawns the PTY and, on success, transitions to Running and runs
// the reader loop. Spawn failure transitions straight to Exited with a
// sentinel code; the failure reaches subscribers through the ended event
// rather than the create call, which already returned.
func (s *Session) start(rows, cols uint16, env map[string]string) {
	p, err := StartPty(s.shell, s.args, s.workingDir, env, rows, cols)
	if err != nil {
		s.logger.Error("Session spawn failed",
			zap.String("session_id", s.ID),
			zap.String("shell", s.shell),
			zap.Error(err),
		)
		s.mu.Lock()
		s.appendAndPublishLocked([]byte(err.Error() + "\r\n"))
		if s.killed {
			// Terminate raced the failed spawn; the owner asked for a
			// kill, so that is the state they get.
			s.finishLocked(StatusKilled, ExitCodeSpawnFailure)
		} else {
			s.finishLocked(StatusExited, ExitCodeSpawnFailure)
		}
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.killed {
		// Terminate raced the spawn; don't leave the child around.
		s.mu.Unlock()
		p.Terminate(true, 0)
		p.Close()
		s.mu.Lock()
		s.finishLocked(StatusKilled, p.Wait())
		s.mu.Unlock()
		return
	}
	s.pty = p
	s.status = StatusRunning
	s.mu.Unlock()

	s.readLoop(p)
}

// readLoop is the core per-session task: it owns the PTY's output side
// for the session's lifetime.
func (s *Session) readLoop(p *Pty) {
	var ioFailure bool
	for {
		data, err := p.ReadChunk()
		if len(data) > 0 {
			s.mu.Lock()
			s.appendAndPublishLocked(data)
			s.lastActiveAt = time.Now()
			s.mu.Unlock()
			if s.metrics != nil {
				s.metrics.SessionBytes.Add(float64(len(data)))
			}
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("Session read failed",
					zap.String("session_id", s.ID),
					zap.Error(err),
				)
				ioFailure = true
			}
			break
		}
	}

	p.Close()
	code := p.Wait()

	s.mu.Lock()
	switch {
	case s.killed:
		s.finishLocked(StatusKilled, code)
	case ioFailure:
		s.finishLocked(StatusExited, ExitCodeIOFailure)
	default:
		s.finishLocked(StatusExited, code)
	}
	s.mu.Unlock()
}

// appendAndPublishLocked appends one chunk and broadcasts it in arrival
// order. Callers hold mu, which is what keeps replay and live delivery
// contiguous for late subscribers.
func (s *Session) appendAndPublishLocked(data []byte) {
	chunk := s.buffer.Append(data)
	for _, sub := range s.subscribers {
		if len(sub.events) >= s.cfg.SubscriberBuffer {
			// Buffer full: detach rather than drop chunks, so every
			// delivered stream stays gap-free.
			s.dropSubscriberLocked(sub, EventLagged)
			if s.metrics != nil {
				s.metrics.SubscriberDrops.Inc()
			}
			continue
		}
		sub.events <- Event{Type: EventOutput, Chunk: &chunk}
	}
}

func (s *Session) finishLocked(status Status, code int) {
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.exitCode = code
	s.lastActiveAt = time.Now()
	for _, sub := range s.subscribers {
		s.dropSubscriberLocked(sub, EventEnded)
	}
	close(s.done)
}

// dropSubscriberLocked removes a subscriber and delivers final as its
// last event. The channel carries one slot beyond SubscriberBuffer that
// output publishing never fills, so the final marker always fits and a
// detached consumer is never left with a bare close.
func (s *Session) dropSubscriberLocked(sub *subscriber, final EventType) {
	delete(s.subscribers, sub.id)
	sub.events <- Event{Type: final, Status: s.status, ExitCode: s.exitCode}
	close(sub.events)
}

// WriteInput sends input bytes to the shell. Only valid while Running.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return ErrSessionNotRunning
	}
	p := s.pty
	s.lastActiveAt = time.Now()
	s.mu.Unlock()

	// A write into a freshly-dead PTY surfaces EPIPE here; the reader
	// loop independently confirms the exit via EOF.
	return p.Write(data)
}

// Resize propagates new dimensions to the shell. It is a no-op outside
// Running and never errors the caller; a failed resize must not take the
// session down.
func (s *Session) Resize(rows, cols uint16) {
	s.mu.RLock()
	p := s.pty
	running := s.status == StatusRunning
	s.mu.RUnlock()

	if !running || p == nil {
		return
	}
	if err := p.Resize(rows, cols); err != nil {
		s.logger.Warn("Session resize failed",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}

// Subscribe attaches an output consumer. The subscription replays the
// entire current buffer, then yields live chunks, then an ended event.
// Subscribing to an already-ended session yields the replay plus an
// immediate ended event.
func (s *Session) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	replay := s.buffer.Snapshot()

	if s.status.Terminal() {
		events := make(chan Event, 1)
		events <- Event{Type: EventEnded, Status: s.status, ExitCode: s.exitCode}
		close(events)
		return &Subscription{Replay: replay, Events: events, session: s}
	}

	// One extra slot beyond SubscriberBuffer, reserved for the final
	// lagged/ended event. See dropSubscriberLocked.
	sub := &subscriber{
		id:     s.nextSubID,
		events: make(chan Event, s.cfg.SubscriberBuffer+1),
	}
	s.nextSubID++
	s.subscribers[sub.id] = sub

	return &Subscription{Replay: replay, Events: sub.events, session: s, id: sub.id}
}

func (s *Session) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(sub.events)
	}
}

// Terminate requests shutdown. Graceful sends SIGTERM and escalates
// after the kill grace; force kills immediately. Idempotent: terminating
// a session that already ended is a no-op.
func (s *Session) Terminate(force bool) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.killed = true
	p := s.pty
	s.mu.Unlock()

	if p != nil {
		p.Terminate(force, s.cfg.KillGrace)
	}
	// Still Starting: start() observes killed and finishes the session
	// once the spawn settles.
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Status returns the current lifecycle state and exit code. The exit
// code is only meaningful in a terminal state.
func (s *Session) Status() (Status, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.exitCode
}

// Buffer exposes the session's output buffer for snapshot reads.
func (s *Session) Buffer() *Buffer {
	return s.buffer
}

// Rename sets the human-readable label.
func (s *Session) Rename(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// SubscriberCount returns the number of attached consumers.
func (s *Session) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Summary returns the public view of the session. It never exposes raw
// output.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		ID:           s.ID,
		Name:         s.name,
		Shell:        s.shell,
		WorkingDir:   s.workingDir,
		Status:       s.status,
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
		Subscribers:  len(s.subscribers),
	}
	if s.status.Terminal() {
		code := s.exitCode
		sum.ExitCode = &code
	}
	return sum
}

// reapable reports whether the session is in a terminal state, has no
// subscribers, and has been idle beyond grace.
func (s *Session) reapable(grace time.Duration, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Terminal() && len(s.subscribers) == 0 && now.Sub(s.lastActiveAt) >= grace
}
