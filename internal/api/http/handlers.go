package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/superide/super-ide/backend/internal/domain/service"
	"github.com/superide/super-ide/backend/internal/providers/terminal"
	"github.com/superide/super-ide/backend/internal/shared/types"
)

// Handlers bundles the REST endpoints and their dependencies.
type Handlers struct {
	manager  *terminal.Manager
	executor *terminal.Executor
	registry *service.Registry
}

// NewHandlers creates the REST handler set.
func NewHandlers(manager *terminal.Manager, executor *terminal.Executor, registry *service.Registry) *Handlers {
	return &Handlers{
		manager:  manager,
		executor: executor,
		registry: registry,
	}
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "super-ide-backend",
		"status":  "running",
	})
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.manager.Count(),
	})
}

// CreateSession handles POST /terminal/sessions
func (h *Handlers) CreateSession(c *gin.Context) {
	var req types.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, err)
		return
	}

	session, err := h.manager.CreateSession(terminal.CreateOptions{
		Shell:      req.Shell,
		Args:       req.Args,
		WorkingDir: req.WorkingDir,
		Name:       req.Name,
		Env:        req.Env,
		Cols:       req.Cols,
		Rows:       req.Rows,
	})
	if err != nil {
		terminalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session.Summary())
}

// ListSessions handles GET /terminal/sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	summaries := h.manager.ListSessions()
	c.JSON(http.StatusOK, gin.H{
		"sessions": summaries,
		"count":    len(summaries),
	})
}

// GetSession handles GET /terminal/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		terminalError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Summary())
}

// SessionOutput handles GET /terminal/sessions/:id/output. It returns
// the buffered output snapshot; live streaming goes over the WebSocket.
func (h *Handlers) SessionOutput(c *gin.Context) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		terminalError(c, err)
		return
	}

	output := session.Buffer().Bytes()
	c.JSON(http.StatusOK, gin.H{
		"output_base64": base64.StdEncoding.EncodeToString(output),
		"length":        len(output),
	})
}

// SessionInput handles POST /terminal/sessions/:id/input
func (h *Handlers) SessionInput(c *gin.Context) {
	var req types.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		terminalError(c, err)
		return
	}
	if err := session.WriteInput(data); err != nil {
		terminalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SessionResize handles POST /terminal/sessions/:id/resize
func (h *Handlers) SessionResize(c *gin.Context) {
	var req types.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		terminalError(c, err)
		return
	}
	session.Resize(uint16(req.Rows), uint16(req.Cols))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RenameSession handles PATCH /terminal/sessions/:id
func (h *Handlers) RenameSession(c *gin.Context) {
	var req types.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.manager.RenameSession(c.Param("id"), req.Name); err != nil {
		terminalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// KillSession handles DELETE /terminal/sessions/:id?force=true
func (h *Handlers) KillSession(c *gin.Context) {
	force := c.Query("force") == "true"

	if err := h.manager.KillSession(c.Param("id"), force); err != nil {
		terminalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReapSessions handles POST /terminal/reap
func (h *Handlers) ReapSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reaped": h.manager.ReapExited()})
}

// Exec handles POST /exec: one-off non-interactive command execution.
func (h *Handlers) Exec(c *gin.Context) {
	var req types.ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	result, err := h.executor.Execute(c.Request.Context(), req.Command, req.Args, req.WorkingDir, timeout)
	if err != nil {
		if errors.Is(err, terminal.ErrTimeout) {
			// Partial output still reaches the caller.
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":  err.Error(),
				"result": result,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListServices handles GET /services
func (h *Handlers) ListServices(c *gin.Context) {
	services := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
	})
}

// ExecuteService handles POST /services/execute
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.registry.ExecuteTool(c.Request.Context(), req.ToolID, req.Params, nil)
	if err != nil {
		terminalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// terminalError maps subsystem errors onto HTTP statuses.
func terminalError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, terminal.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, terminal.ErrSessionNotRunning):
		status = http.StatusConflict
	case errors.Is(err, terminal.ErrTooManySessions):
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
