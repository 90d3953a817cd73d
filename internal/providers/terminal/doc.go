// Package terminal provides the interactive terminal subsystem.
//
// It multiplexes concurrently running, PTY-backed shell sessions,
// streams their output to attached subscribers in real time, and runs
// one-off non-interactive commands as a separate mode.
//
// Architecture:
//   - Pty wraps one pseudo-terminal pair and its child shell process
//   - Buffer keeps a bounded, sequence-numbered log of output chunks so
//     late subscribers can replay recent history
//   - Session owns one Pty and one Buffer, runs the reader loop, and
//     broadcasts chunks to subscribers in arrival order
//   - Manager registers sessions by id, enforces the concurrency cap,
//     and reaps exited sessions after an idle grace period
//   - Executor runs single commands to completion with captured output,
//     a hard timeout and bounded capture
//
// Lifecycle: a session moves Starting -> Running -> Exited or Killed,
// never backward. Exited sessions stay queryable until reaped, so a
// client that disconnected can reattach and fetch final output.
//
// Example Usage:
//
//	manager := terminal.NewManager(terminal.DefaultConfig(), logger)
//	defer manager.Close()
//
//	session, err := manager.CreateSession(terminal.CreateOptions{})
//	sub := session.Subscribe()
//	defer sub.Cancel()
//	// replay sub.Replay, then range over sub.Events
//
//	session.WriteInput([]byte("ls -la\n"))
//	session.Resize(24, 80)
//	manager.KillSession(session.ID, false)
package terminal
