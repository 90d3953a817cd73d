package terminal_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/providers/terminal"
	"github.com/superide/super-ide/backend/internal/shared/types"
	"github.com/superide/super-ide/backend/tests/helpers/testutil"
)

func newTestProvider(t *testing.T) (*terminal.Provider, *terminal.Manager) {
	t.Helper()

	cfg := terminal.DefaultConfig()
	cfg.Shell = "/bin/sh"
	cfg.KillGrace = 500 * time.Millisecond

	manager := terminal.NewManager(cfg, logging.NewNop())
	t.Cleanup(manager.Close)

	executor := terminal.NewExecutor(terminal.ExecConfig{}, logging.NewNop())
	return terminal.NewProvider(manager, executor), manager
}

func TestProviderDefinition(t *testing.T) {
	provider, _ := newTestProvider(t)

	def := provider.Definition()
	assert.Equal(t, "terminal", def.ID)
	assert.Equal(t, types.CategoryTerminal, def.Category)
	require.NotEmpty(t, def.Tools)

	for _, tool := range def.Tools {
		assert.Contains(t, tool.ID, "terminal.", "tool ids are namespaced")
	}
}

func TestProviderSessionLifecycle(t *testing.T) {
	provider, manager := newTestProvider(t)
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("Create Session", func(t *testing.T) {
		result, err := provider.Execute(ctx, "terminal.create_session", map[string]interface{}{
			"working_dir": dir,
			"name":        "workbench",
		}, nil)
		require.NoError(t, err)
		testutil.AssertSuccess(t, result)
		testutil.AssertDataField(t, result, "name", "workbench")

		sessionID, ok := result.Data["id"].(string)
		require.True(t, ok)

		session, err := manager.GetSession(sessionID)
		require.NoError(t, err)
		testutil.WaitForStatus(t, session, terminal.StatusRunning, 10*time.Second)

		t.Run("Write and Read", func(t *testing.T) {
			result, err := provider.Execute(ctx, "terminal.write", map[string]interface{}{
				"session_id": sessionID,
				"input":      "echo provider-roundtrip\n",
			}, nil)
			require.NoError(t, err)
			testutil.AssertSuccess(t, result)

			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				result, err = provider.Execute(ctx, "terminal.read", map[string]interface{}{
					"session_id": sessionID,
				}, nil)
				require.NoError(t, err)
				if out, _ := result.Data["output"].(string); strings.Contains(out, "provider-roundtrip") {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			testutil.AssertSuccess(t, result)
			assert.Contains(t, result.Data["output"], "provider-roundtrip")
		})

		t.Run("Rename", func(t *testing.T) {
			result, err := provider.Execute(ctx, "terminal.rename", map[string]interface{}{
				"session_id": sessionID,
				"name":       "renamed",
			}, nil)
			require.NoError(t, err)
			testutil.AssertSuccess(t, result)

			result, err = provider.Execute(ctx, "terminal.get_session", map[string]interface{}{
				"session_id": sessionID,
			}, nil)
			require.NoError(t, err)
			testutil.AssertDataField(t, result, "name", "renamed")
		})

		t.Run("List", func(t *testing.T) {
			result, err := provider.Execute(ctx, "terminal.list_sessions", nil, nil)
			require.NoError(t, err)
			testutil.AssertSuccess(t, result)
			assert.Equal(t, 1, result.Data["count"])
		})

		t.Run("Kill", func(t *testing.T) {
			result, err := provider.Execute(ctx, "terminal.kill", map[string]interface{}{
				"session_id": sessionID,
				"force":      true,
			}, nil)
			require.NoError(t, err)
			testutil.AssertSuccess(t, result)

			testutil.WaitForDone(t, session, 10*time.Second)
			result, err = provider.Execute(ctx, "terminal.get_session", map[string]interface{}{
				"session_id": sessionID,
			}, nil)
			require.NoError(t, err)
			testutil.AssertDataField(t, result, "status", string(terminal.StatusKilled))
		})
	})
}

func TestProviderUnknownTool(t *testing.T) {
	provider, _ := newTestProvider(t)

	_, err := provider.Execute(context.Background(), "terminal.bogus", nil, nil)
	assert.Error(t, err)
}

func TestProviderUnknownSession(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Execute(ctx, "terminal.get_session", map[string]interface{}{
		"session_id": "term_missing",
	}, nil)
	assert.ErrorIs(t, err, terminal.ErrSessionNotFound)

	_, err = provider.Execute(ctx, "terminal.write", map[string]interface{}{
		"session_id": "term_missing",
		"input":      "x",
	}, nil)
	assert.ErrorIs(t, err, terminal.ErrSessionNotFound)
}

func TestProviderExecute(t *testing.T) {
	provider, _ := newTestProvider(t)
	ctx := context.Background()

	result, err := provider.Execute(ctx, "terminal.execute", map[string]interface{}{
		"command": "/bin/sh",
		"args":    []interface{}{"-c", "echo ran"},
	}, nil)
	require.NoError(t, err)
	testutil.AssertSuccess(t, result)
	testutil.AssertDataField(t, result, "exit_code", 0)
	assert.Contains(t, result.Data["stdout"], "ran")
}

func TestProviderExecuteTimeout(t *testing.T) {
	provider, _ := newTestProvider(t)

	_, err := provider.Execute(context.Background(), "terminal.execute", map[string]interface{}{
		"command":    "/bin/sh",
		"args":       []interface{}{"-c", "sleep 30"},
		"timeout_ms": float64(200),
	}, nil)
	assert.ErrorIs(t, err, terminal.ErrTimeout)
}
