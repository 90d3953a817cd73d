package types

// CreateSessionRequest asks for a new terminal session.
type CreateSessionRequest struct {
	Shell      string            `json:"shell"`
	Args       []string          `json:"args"`
	WorkingDir string            `json:"working_dir"`
	Name       string            `json:"name"`
	Env        map[string]string `json:"env"`
	Cols       int               `json:"cols"`
	Rows       int               `json:"rows"`
}

// InputRequest carries input bytes for a session, base64-encoded so
// binary-safe control sequences survive JSON.
type InputRequest struct {
	Data string `json:"data" binding:"required"`
}

// ResizeRequest carries new terminal dimensions.
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required"`
	Rows int `json:"rows" binding:"required"`
}

// RenameRequest updates a session label.
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}

// ExecRequest runs a one-off non-interactive command.
type ExecRequest struct {
	Command    string   `json:"command" binding:"required"`
	Args       []string `json:"args"`
	WorkingDir string   `json:"working_dir"`
	TimeoutMS  int      `json:"timeout_ms"`
}

// ExecuteRequest represents a service execution request
type ExecuteRequest struct {
	ToolID string                 `json:"tool_id" binding:"required"`
	Params map[string]interface{} `json:"params" binding:"required"`
}
