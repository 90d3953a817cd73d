package terminal

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/superide/super-ide/backend/internal/shared/types"
)

// Provider exposes the terminal subsystem through the service registry.
type Provider struct {
	manager  *Manager
	executor *Executor
}

// NewProvider creates a terminal provider around an existing manager and
// executor. Both are shared with the HTTP and WebSocket layers.
func NewProvider(manager *Manager, executor *Executor) *Provider {
	return &Provider{
		manager:  manager,
		executor: executor,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Service",
		Description: "Interactive PTY-backed shell sessions and one-off command execution",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"shell",
			"interactive",
			"sessions",
			"resize",
			"exec",
		},
		Tools: p.getTools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.create_session":
		return p.createSession(params)
	case "terminal.write":
		return p.write(params)
	case "terminal.read":
		return p.read(params)
	case "terminal.resize":
		return p.resize(params)
	case "terminal.rename":
		return p.rename(params)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.get_session":
		return p.getSession(params)
	case "terminal.kill":
		return p.kill(params)
	case "terminal.reap":
		return p.reap()
	case "terminal.execute":
		return p.execute(ctx, params)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolID)
	}
}

func (p *Provider) getTools() []types.Tool {
	return []types.Tool{
		{
			ID:          "terminal.create_session",
			Name:        "Create Terminal Session",
			Description: "Create a new interactive shell session with PTY",
			Parameters: []types.Parameter{
				{Name: "shell", Type: "string", Description: "Shell executable. Defaults to user's shell", Required: false},
				{Name: "args", Type: "array", Description: "Arguments for the shell", Required: false},
				{Name: "working_dir", Type: "string", Description: "Initial working directory. Defaults to user's home", Required: false},
				{Name: "name", Type: "string", Description: "Session label. Defaults to 'Terminal N'", Required: false},
				{Name: "cols", Type: "number", Description: "Terminal width in columns. Defaults to 80", Required: false},
				{Name: "rows", Type: "number", Description: "Terminal height in rows. Defaults to 24", Required: false},
				{Name: "env", Type: "object", Description: "Environment variables to set", Required: false},
			},
			Returns: "session_summary",
		},
		{
			ID:          "terminal.write",
			Name:        "Write to Terminal",
			Description: "Send input to a running session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "input", Type: "string", Description: "Input to send to the shell", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.read",
			Name:        "Read from Terminal",
			Description: "Read the buffered output of a session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "output_data",
		},
		{
			ID:          "terminal.resize",
			Name:        "Resize Terminal",
			Description: "Change terminal dimensions",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "cols", Type: "number", Description: "New width in columns", Required: true},
				{Name: "rows", Type: "number", Description: "New height in rows", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.rename",
			Name:        "Rename Session",
			Description: "Change a session's label",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "name", Type: "string", Description: "New label", Required: true},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.list_sessions",
			Name:        "List Terminal Sessions",
			Description: "List all registered terminal sessions",
			Parameters:  []types.Parameter{},
			Returns:     "sessions_list",
		},
		{
			ID:          "terminal.get_session",
			Name:        "Get Session Info",
			Description: "Get information about a terminal session",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
			},
			Returns: "session_summary",
		},
		{
			ID:          "terminal.kill",
			Name:        "Kill Terminal Session",
			Description: "Terminate a session's shell process",
			Parameters: []types.Parameter{
				{Name: "session_id", Type: "string", Description: "Terminal session ID", Required: true},
				{Name: "force", Type: "boolean", Description: "Kill immediately instead of SIGTERM", Required: false},
			},
			Returns: "success",
		},
		{
			ID:          "terminal.reap",
			Name:        "Reap Exited Sessions",
			Description: "Remove exited sessions past the idle grace period",
			Parameters:  []types.Parameter{},
			Returns:     "reaped_count",
		},
		{
			ID:          "terminal.execute",
			Name:        "Execute Command",
			Description: "Run a one-off non-interactive command to completion",
			Parameters: []types.Parameter{
				{Name: "command", Type: "string", Description: "Executable to run", Required: true},
				{Name: "args", Type: "array", Description: "Command arguments", Required: false},
				{Name: "working_dir", Type: "string", Description: "Working directory", Required: false},
				{Name: "timeout_ms", Type: "number", Description: "Timeout in milliseconds", Required: false},
			},
			Returns: "command_result",
		},
	}
}

func (p *Provider) createSession(params map[string]interface{}) (*types.Result, error) {
	opts := CreateOptions{}
	opts.Shell, _ = params["shell"].(string)
	opts.WorkingDir, _ = params["working_dir"].(string)
	opts.Name, _ = params["name"].(string)

	if raw, ok := params["args"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				opts.Args = append(opts.Args, s)
			}
		}
	}
	if c, ok := params["cols"].(float64); ok {
		opts.Cols = int(c)
	}
	if r, ok := params["rows"].(float64); ok {
		opts.Rows = int(r)
	}
	if envMap, ok := params["env"].(map[string]interface{}); ok {
		opts.Env = make(map[string]string, len(envMap))
		for k, v := range envMap {
			if s, ok := v.(string); ok {
				opts.Env[k] = s
			}
		}
	}

	session, err := p.manager.CreateSession(opts)
	if err != nil {
		return nil, err
	}
	return success(summaryData(session.Summary())), nil
}

func (p *Provider) write(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}
	input, ok := params["input"].(string)
	if !ok {
		return nil, fmt.Errorf("input is required")
	}

	session, err := p.manager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := session.WriteInput([]byte(input)); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"success": true}), nil
}

func (p *Provider) read(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}

	session, err := p.manager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	output := session.Buffer().Bytes()
	return success(map[string]interface{}{
		"output":        string(output),
		"output_base64": base64.StdEncoding.EncodeToString(output),
		"length":        len(output),
	}), nil
}

func (p *Provider) resize(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}
	cols, ok := params["cols"].(float64)
	if !ok {
		return nil, fmt.Errorf("cols is required")
	}
	rows, ok := params["rows"].(float64)
	if !ok {
		return nil, fmt.Errorf("rows is required")
	}

	session, err := p.manager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	session.Resize(uint16(rows), uint16(cols))
	return success(map[string]interface{}{"success": true}), nil
}

func (p *Provider) rename(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := p.manager.RenameSession(sessionID, name); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"success": true}), nil
}

func (p *Provider) listSessions() (*types.Result, error) {
	summaries := p.manager.ListSessions()
	return success(map[string]interface{}{
		"sessions": summaries,
		"count":    len(summaries),
	}), nil
}

func (p *Provider) getSession(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}

	session, err := p.manager.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	return success(summaryData(session.Summary())), nil
}

func (p *Provider) kill(params map[string]interface{}) (*types.Result, error) {
	sessionID, ok := params["session_id"].(string)
	if !ok {
		return nil, fmt.Errorf("session_id is required")
	}
	force, _ := params["force"].(bool)

	if err := p.manager.KillSession(sessionID, force); err != nil {
		return nil, err
	}
	return success(map[string]interface{}{"success": true}), nil
}

func (p *Provider) reap() (*types.Result, error) {
	reaped := p.manager.ReapExited()
	return success(map[string]interface{}{"reaped": reaped}), nil
}

func (p *Provider) execute(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	command, ok := params["command"].(string)
	if !ok {
		return nil, fmt.Errorf("command is required")
	}

	var args []string
	if raw, ok := params["args"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}
	workingDir, _ := params["working_dir"].(string)

	var timeout time.Duration
	if ms, ok := params["timeout_ms"].(float64); ok {
		timeout = time.Duration(ms) * time.Millisecond
	}

	result, err := p.executor.Execute(ctx, command, args, workingDir, timeout)
	if err != nil {
		return nil, err
	}
	return success(map[string]interface{}{
		"stdout":           result.Stdout,
		"stderr":           result.Stderr,
		"exit_code":        result.ExitCode,
		"duration_ms":      result.Duration.Milliseconds(),
		"stdout_truncated": result.StdoutTruncated,
		"stderr_truncated": result.StderrTruncated,
	}), nil
}

func success(data map[string]interface{}) *types.Result {
	return &types.Result{Success: true, Data: data}
}

func summaryData(sum Summary) map[string]interface{} {
	data := map[string]interface{}{
		"id":             sum.ID,
		"name":           sum.Name,
		"shell":          sum.Shell,
		"working_dir":    sum.WorkingDir,
		"status":         string(sum.Status),
		"created_at":     sum.CreatedAt,
		"last_active_at": sum.LastActiveAt,
		"subscribers":    sum.Subscribers,
	}
	if sum.ExitCode != nil {
		data["exit_code"] = *sum.ExitCode
	}
	return data
}
