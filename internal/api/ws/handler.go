package ws

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/superide/super-ide/backend/internal/infrastructure/logging"
	"github.com/superide/super-ide/backend/internal/infrastructure/monitoring"
	"github.com/superide/super-ide/backend/internal/providers/terminal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// ClientMessage is one JSON message from the browser terminal.
type ClientMessage struct {
	Type       string            `json:"type"`
	SessionID  string            `json:"session_id,omitempty"`
	Shell      string            `json:"shell,omitempty"`
	Args       []string          `json:"args,omitempty"`
	WorkingDir string            `json:"working_dir,omitempty"`
	Name       string            `json:"name,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Data       string            `json:"data,omitempty"` // base64 input bytes
	Cols       int               `json:"cols,omitempty"`
	Rows       int               `json:"rows,omitempty"`
	Force      bool              `json:"force,omitempty"`
}

// Handler manages WebSocket connections for the terminal subsystem.
type Handler struct {
	manager *terminal.Manager
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(manager *terminal.Manager, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

// connection wraps one WebSocket with a write lock, since output pumps
// and the control loop write concurrently.
type connection struct {
	ws *websocket.Conn
	id string

	writeMu sync.Mutex

	mu          sync.Mutex
	attachments map[string]*terminal.Subscription
}

func (c *connection) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// HandleConnection handles the WebSocket upgrade and message loop for
// GET /ws/terminal. Closing the connection detaches its subscriptions
// but never kills sessions: a client must be able to reattach.
func (h *Handler) HandleConnection(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := &connection{
		ws:          wsConn,
		id:          uuid.NewString(),
		attachments: make(map[string]*terminal.Subscription),
	}
	h.metrics.WSConnections.Inc()
	h.logger.Info("Terminal WebSocket connected", zap.String("connection_id", conn.id))

	defer func() {
		conn.mu.Lock()
		for _, sub := range conn.attachments {
			sub.Cancel()
		}
		conn.attachments = make(map[string]*terminal.Subscription)
		conn.mu.Unlock()

		wsConn.Close()
		h.metrics.WSConnections.Dec()
		h.logger.Info("Terminal WebSocket closed", zap.String("connection_id", conn.id))
	}()

	conn.send(map[string]interface{}{
		"type":    "system",
		"message": "Connected to Super IDE terminal service",
	})

	for {
		var msg ClientMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.String("connection_id", conn.id), zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "create_session":
			h.handleCreate(conn, msg)
		case "attach":
			h.handleAttach(conn, msg)
		case "detach":
			h.handleDetach(conn, msg)
		case "input":
			h.handleInput(conn, msg)
		case "resize":
			h.handleResize(conn, msg)
		case "close_session":
			h.handleClose(conn, msg)
		case "ping":
			conn.send(map[string]interface{}{"type": "pong"})
		default:
			h.sendError(conn, "", "unknown_message", "unknown message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleCreate(conn *connection, msg ClientMessage) {
	session, err := h.manager.CreateSession(terminal.CreateOptions{
		Shell:      msg.Shell,
		Args:       msg.Args,
		WorkingDir: msg.WorkingDir,
		Name:       msg.Name,
		Env:        msg.Env,
		Cols:       msg.Cols,
		Rows:       msg.Rows,
	})
	if err != nil {
		h.sendError(conn, "", "create_failed", err.Error())
		return
	}

	h.sendMessage(conn, map[string]interface{}{
		"type":    "session_created",
		"session": session.Summary(),
	})

	// The creator is attached right away; further tabs attach explicitly.
	h.attach(conn, session)
}

func (h *Handler) handleAttach(conn *connection, msg ClientMessage) {
	session, err := h.manager.GetSession(msg.SessionID)
	if err != nil {
		h.sendError(conn, msg.SessionID, "session_not_found", err.Error())
		return
	}
	h.attach(conn, session)
}

// attach subscribes the connection to a session and pumps replay, live
// chunks and the final ended event to the client in order.
func (h *Handler) attach(conn *connection, session *terminal.Session) {
	conn.mu.Lock()
	if _, exists := conn.attachments[session.ID]; exists {
		conn.mu.Unlock()
		h.sendError(conn, session.ID, "already_attached", "already attached to session")
		return
	}
	sub := session.Subscribe()
	conn.attachments[session.ID] = sub
	conn.mu.Unlock()

	h.sendMessage(conn, map[string]interface{}{
		"type":    "attached",
		"session": session.Summary(),
	})

	go func() {
		defer func() {
			conn.mu.Lock()
			if conn.attachments[session.ID] == sub {
				delete(conn.attachments, session.ID)
			}
			conn.mu.Unlock()
			sub.Cancel()
		}()

		for i := range sub.Replay {
			if h.sendChunk(conn, session.ID, &sub.Replay[i]) != nil {
				return
			}
		}
		for event := range sub.Events {
			switch event.Type {
			case terminal.EventOutput:
				if h.sendChunk(conn, session.ID, event.Chunk) != nil {
					return
				}
			case terminal.EventEnded:
				h.sendMessage(conn, map[string]interface{}{
					"type":       "session_exited",
					"session_id": session.ID,
					"status":     string(event.Status),
					"exit_code":  event.ExitCode,
				})
			case terminal.EventLagged:
				h.sendMessage(conn, map[string]interface{}{
					"type":       "lagged",
					"session_id": session.ID,
				})
			}
		}
	}()
}

func (h *Handler) handleDetach(conn *connection, msg ClientMessage) {
	conn.mu.Lock()
	sub, ok := conn.attachments[msg.SessionID]
	if ok {
		delete(conn.attachments, msg.SessionID)
	}
	conn.mu.Unlock()

	if !ok {
		h.sendError(conn, msg.SessionID, "not_attached", "not attached to session")
		return
	}
	sub.Cancel()
	h.sendMessage(conn, map[string]interface{}{
		"type":       "detached",
		"session_id": msg.SessionID,
	})
}

func (h *Handler) handleInput(conn *connection, msg ClientMessage) {
	session, err := h.manager.GetSession(msg.SessionID)
	if err != nil {
		h.sendError(conn, msg.SessionID, "session_not_found", err.Error())
		return
	}

	data, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		h.sendError(conn, msg.SessionID, "bad_input", "input data is not valid base64")
		return
	}

	if err := session.WriteInput(data); err != nil {
		h.sendError(conn, msg.SessionID, "write_failed", err.Error())
	}
}

func (h *Handler) handleResize(conn *connection, msg ClientMessage) {
	session, err := h.manager.GetSession(msg.SessionID)
	if err != nil {
		h.sendError(conn, msg.SessionID, "session_not_found", err.Error())
		return
	}
	session.Resize(uint16(msg.Rows), uint16(msg.Cols))
}

func (h *Handler) handleClose(conn *connection, msg ClientMessage) {
	if err := h.manager.KillSession(msg.SessionID, msg.Force); err != nil {
		h.sendError(conn, msg.SessionID, "session_not_found", err.Error())
		return
	}
	// The session_exited event arrives through the attachment pump once
	// the shell actually goes down.
	h.sendMessage(conn, map[string]interface{}{
		"type":       "close_requested",
		"session_id": msg.SessionID,
	})
}

func (h *Handler) sendChunk(conn *connection, sessionID string, chunk *terminal.Chunk) error {
	h.metrics.RecordWSMessage("out", "output")
	return conn.send(map[string]interface{}{
		"type":       "output",
		"session_id": sessionID,
		"seq":        chunk.Seq,
		"data":       base64.StdEncoding.EncodeToString(chunk.Data),
		"timestamp":  chunk.Time.UnixMilli(),
	})
}

func (h *Handler) sendMessage(conn *connection, data map[string]interface{}) {
	if msgType, ok := data["type"].(string); ok {
		h.metrics.RecordWSMessage("out", msgType)
	}
	if err := conn.send(data); err != nil {
		h.logger.Debug("WebSocket write failed", zap.String("connection_id", conn.id), zap.Error(err))
	}
}

func (h *Handler) sendError(conn *connection, sessionID, code, message string) {
	payload := map[string]interface{}{
		"type":      "error",
		"code":      code,
		"message":   message,
		"timestamp": time.Now().Unix(),
	}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	h.sendMessage(conn, payload)
}
