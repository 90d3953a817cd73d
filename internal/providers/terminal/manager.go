package terminal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/infrastructure/monitoring"
	"github.com/superide/super-ide/backend/internal/shared/id"
)

// Manager is the registry of terminal sessions.
//
// It is an explicit, owned object rather than a package-level singleton,
// so call sites share one instance by reference and tests construct
// isolated managers. The registry map is the only state mutated from
// multiple call sites; per-session state is owned by each session's own
// reader loop.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nameSeq  int
	closed   bool

	cfg     Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a session manager with the given configuration.
func NewManager(cfg Config, logger *logging.Logger) *Manager {
	def := DefaultConfig()
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.BufferBytes <= 0 {
		cfg.BufferBytes = def.BufferBytes
	}
	// Below one read chunk the buffer could never honor its capacity
	// bound, since a single chunk is always kept whole.
	if cfg.BufferBytes < readChunkSize {
		cfg.BufferBytes = readChunkSize
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = def.KillGrace
	}
	if cfg.ReapGrace <= 0 {
		cfg.ReapGrace = def.ReapGrace
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = def.ReapInterval
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// CreateSession registers a new session and starts its shell
// asynchronously. The id is returned synchronously while the spawn
// proceeds; spawn failure surfaces through the session's status and its
// subscribers' ended event. The cap is enforced before any process is
// spawned.
func (m *Manager) CreateSession(opts CreateOptions) (*Session, error) {
	if opts.Shell == "" {
		opts.Shell = m.defaultShell()
	}
	if opts.WorkingDir == "" {
		opts.WorkingDir = os.Getenv("HOME")
		if opts.WorkingDir == "" {
			opts.WorkingDir = "/tmp"
		}
	}
	cols := opts.Cols
	if cols <= 0 {
		cols = 80
	}
	rows := opts.Rows
	if rows <= 0 {
		rows = 24
	}

	sessionID := string(id.NewTerminalID())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("manager closed")
	}
	// Only live sessions count toward the cap: killing a session frees
	// its slot immediately, even though it stays registered (and
	// queryable) until reaped.
	active := 0
	for _, s := range m.sessions {
		if status, _ := s.Status(); !status.Terminal() {
			active++
		}
	}
	if active >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	m.nameSeq++
	if opts.Name == "" {
		opts.Name = fmt.Sprintf("Terminal %d", m.nameSeq)
	}
	session := newSession(sessionID, opts, m.cfg, m.logger)
	session.metrics = m.metrics
	m.sessions[sessionID] = session
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionCreated()
	}
	m.logger.Info("Terminal session created",
		zap.String("session_id", sessionID),
		zap.String("shell", opts.Shell),
		zap.String("working_dir", opts.WorkingDir),
	)

	go func() {
		session.start(uint16(rows), uint16(cols), opts.Env)
		<-session.Done()
		if m.metrics != nil {
			m.metrics.SessionEnded()
		}
		status, code := session.Status()
		m.logger.Info("Terminal session ended",
			zap.String("session_id", sessionID),
			zap.String("status", string(status)),
			zap.Int("exit_code", code),
		)
	}()

	return session, nil
}

// GetSession looks up a session by id.
func (m *Manager) GetSession(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns summaries of all registered sessions, including
// exited ones that have not been reaped.
func (m *Manager) ListSessions() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}
	return summaries
}

// KillSession terminates a session's shell. The session stays registered
// until reaped so late subscribers can still fetch final output.
func (m *Manager) KillSession(sessionID string, force bool) error {
	session, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.Terminate(force)
	return nil
}

// RenameSession updates a session's label.
func (m *Manager) RenameSession(sessionID, name string) error {
	session, err := m.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.Rename(name)
	return nil
}

// ReapExited removes sessions that reached a terminal state, have no
// subscribers, and have been idle beyond the reap grace. Returns the
// number removed.
func (m *Manager) ReapExited() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	for sessionID, session := range m.sessions {
		if session.reapable(m.cfg.ReapGrace, now) {
			delete(m.sessions, sessionID)
			reaped++
			m.logger.Debug("Terminal session reaped", zap.String("session_id", sessionID))
		}
	}
	if m.metrics != nil && reaped > 0 {
		m.metrics.SessionsReaped.Add(float64(reaped))
	}
	return reaped
}

// Run reaps exited sessions periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapExited()
		}
	}
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close terminates every session and empties the registry. No OS process
// outlives the manager.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Terminate(true)
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-time.After(m.cfg.KillGrace + time.Second):
			m.logger.Warn("Session did not stop before deadline", zap.String("session_id", s.ID))
		}
	}
}

func (m *Manager) defaultShell() string {
	if m.cfg.Shell != "" {
		return m.cfg.Shell
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}
