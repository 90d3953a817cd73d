package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
)

const readChunkSize = 4096

// Pty wraps one pseudo-terminal pair and the shell process attached to it.
//
// Exactly one Pty is ever associated with a session. Close always closes
// the master fd and reaps the child, so a dropped handle never leaks a
// zombie process.
type Pty struct {
	cmd  *exec.Cmd
	ptmx *os.File

	waitOnce sync.Once
	exitCode int

	closeOnce sync.Once
	done      chan struct{}
}

// StartPty spawns shell with args on a new PTY sized rows x cols.
func StartPty(shell string, args []string, workingDir string, env map[string]string, rows, cols uint16) (*Pty, error) {
	cmd := exec.Command(shell, args...)
	cmd.Dir = workingDir

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")
	for key, value := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	p := &Pty{
		cmd:      cmd,
		ptmx:     ptmx,
		exitCode: ExitCodeIOFailure,
		done:     make(chan struct{}),
	}

	go func() {
		p.wait()
		close(p.done)
	}()

	return p, nil
}

// Write sends input bytes to the PTY's input side. It fails once the
// child has exited and the fd is closed.
func (p *Pty) Write(data []byte) error {
	_, err := p.ptmx.Write(data)
	return err
}

// ReadChunk blocks until the next output chunk is available. It returns
// io.EOF once the child has exited and buffered output is drained.
func (p *Pty) ReadChunk() ([]byte, error) {
	buf := make([]byte, readChunkSize)
	n, err := p.ptmx.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		// Linux reports EIO on the master side once the slave side is
		// gone; the fd also turns ErrClosed when Close races the read.
		// Both mean the stream is over, not that the session broke.
		if errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) {
			return nil, io.EOF
		}
		return nil, err
	}
	return nil, io.EOF
}

// Resize propagates a size change to the child. Failure here is
// non-fatal for the session.
func (p *Pty) Resize(rows, cols uint16) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Terminate signals the child to exit. With force it is killed
// immediately; otherwise it gets SIGTERM and is killed after grace if it
// is still around.
func (p *Pty) Terminate(force bool, grace time.Duration) {
	proc := p.cmd.Process
	if proc == nil {
		return
	}

	if force {
		_ = proc.Kill()
		return
	}

	_ = proc.Signal(syscall.SIGTERM)
	go func() {
		select {
		case <-p.done:
		case <-time.After(grace):
			_ = proc.Kill()
		}
	}()
}

// Wait blocks until the child has exited and returns its exit code.
func (p *Pty) Wait() int {
	<-p.done
	return p.exitCode
}

// Close closes the master fd, unblocking any pending ReadChunk, and
// reaps the child.
func (p *Pty) Close() {
	p.closeOnce.Do(func() {
		_ = p.ptmx.Close()
	})
}

func (p *Pty) wait() {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		switch {
		case err == nil:
			p.exitCode = 0
		default:
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				p.exitCode = exitErr.ExitCode()
			}
		}
	})
}
