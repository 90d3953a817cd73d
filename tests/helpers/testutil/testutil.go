// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"testing"
	"time"

	"github.com/superide/super-ide/backend/internal/providers/terminal"
	"github.com/superide/super-ide/backend/internal/shared/types"
)

// AssertSuccess is a helper to assert a successful result.
func AssertSuccess(t *testing.T, result *types.Result) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if !result.Success {
		t.Fatalf("Expected success, got error: %v", result.Error)
	}
}

// AssertError is a helper to assert an error result.
func AssertError(t *testing.T, result *types.Result) {
	t.Helper()
	if result == nil {
		t.Fatal("Result is nil")
	}
	if result.Success {
		t.Fatal("Expected error, got success")
	}
	if result.Error == nil {
		t.Fatal("Expected error message, got nil")
	}
}

// AssertDataField is a helper to assert a data field exists and matches expected value.
func AssertDataField(t *testing.T, result *types.Result, field string, expected interface{}) {
	t.Helper()
	AssertSuccess(t, result)

	if result.Data == nil {
		t.Fatal("Result data is nil")
	}

	actual, ok := result.Data[field]
	if !ok {
		t.Fatalf("Field %s not found in result data", field)
	}

	if actual != expected {
		t.Fatalf("Field %s: expected %v, got %v", field, expected, actual)
	}
}

// WaitForStatus blocks until the session reaches want or the timeout
// elapses, returning the final status and exit code.
func WaitForStatus(t *testing.T, s *terminal.Session, want terminal.Status, timeout time.Duration) (terminal.Status, int) {
	t.Helper()

	deadline := time.After(timeout)
	for {
		status, code := s.Status()
		if status == want {
			return status, code
		}
		select {
		case <-deadline:
			t.Fatalf("Timed out waiting for status %s, currently %s", want, status)
			return status, code
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// WaitForDone blocks until the session reaches a terminal state or the
// timeout elapses.
func WaitForDone(t *testing.T, s *terminal.Session, timeout time.Duration) {
	t.Helper()

	select {
	case <-s.Done():
	case <-time.After(timeout):
		status, _ := s.Status()
		t.Fatalf("Timed out waiting for session to end, currently %s", status)
	}
}
