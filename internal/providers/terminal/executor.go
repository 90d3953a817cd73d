package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/infrastructure/monitoring"
)

// ExecConfig controls one-off command execution.
type ExecConfig struct {
	// DefaultTimeout applies when the caller passes no timeout.
	DefaultTimeout time.Duration

	// MaxTimeout clamps caller-supplied timeouts.
	MaxTimeout time.Duration

	// MaxCaptureBytes bounds each of stdout and stderr. Output past the
	// bound is discarded and the result flagged as truncated, never
	// silently dropped without trace.
	MaxCaptureBytes int
}

// DefaultExecConfig returns production defaults.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		DefaultTimeout:  30 * time.Second,
		MaxTimeout:      5 * time.Minute,
		MaxCaptureBytes: 1024 * 1024,
	}
}

// CommandResult is the outcome of a one-off command.
type CommandResult struct {
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	ExitCode        int           `json:"exit_code"`
	Duration        time.Duration `json:"duration"`
	StdoutTruncated bool          `json:"stdout_truncated"`
	StderrTruncated bool          `json:"stderr_truncated"`
}

// Executor runs single non-interactive commands to completion without
// allocating a PTY. It is stateless and safe for concurrent use.
type Executor struct {
	cfg     ExecConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecConfig, logger *logging.Logger) *Executor {
	def := DefaultExecConfig()
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = def.MaxTimeout
	}
	if cfg.MaxCaptureBytes <= 0 {
		cfg.MaxCaptureBytes = def.MaxCaptureBytes
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Executor{cfg: cfg, logger: logger}
}

// WithMetrics attaches a metrics collector.
func (e *Executor) WithMetrics(metrics *monitoring.Metrics) *Executor {
	e.metrics = metrics
	return e
}

// Execute runs command with args in workingDir, enforcing timeout. On
// timeout the child is force-killed and ErrTimeout is returned together
// with a result carrying whatever output was captured so far.
func (e *Executor) Execute(ctx context.Context, command string, args []string, workingDir string, timeout time.Duration) (*CommandResult, error) {
	if command == "" {
		return nil, fmt.Errorf("empty command")
	}
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	if timeout > e.cfg.MaxTimeout {
		timeout = e.cfg.MaxTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout := newCaptureBuffer(e.cfg.MaxCaptureBytes)
	stderr := newCaptureBuffer(e.cfg.MaxCaptureBytes)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = workingDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Don't hang on grandchildren holding the pipes open after the kill.
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &CommandResult{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExitCode:        -1,
		Duration:        duration,
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() == context.DeadlineExceeded {
		e.logger.Warn("Command timed out",
			zap.String("command", command),
			zap.Duration("timeout", timeout),
		)
		e.recordExec("timeout", duration)
		return result, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, command)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Non-zero exit is an outcome, not a transport failure.
			e.recordExec("nonzero", duration)
			return result, nil
		}
		e.recordExec("error", duration)
		return nil, fmt.Errorf("failed to run %s: %w", command, err)
	}
	e.recordExec("ok", duration)
	return result, nil
}

func (e *Executor) recordExec(outcome string, duration time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordExec(outcome, duration)
	}
}

// captureBuffer accumulates up to max bytes and counts the rest as
// truncated.
type captureBuffer struct {
	mu        sync.Mutex
	data      []byte
	max       int
	truncated bool
}

func newCaptureBuffer(max int) *captureBuffer {
	return &captureBuffer{max: max}
}

func (b *captureBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.max - len(b.data)
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.data = append(b.data, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *captureBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

func (b *captureBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
