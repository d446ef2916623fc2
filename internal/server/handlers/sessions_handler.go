package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/environment"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/session"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
)

// DefaultFormLocation is used when a browser session opens without a location.
const DefaultFormLocation = "/RecordForm"

// settleTimeout bounds how long a request waits for a session load.
const settleTimeout = 10 * time.Second

type openSessionRequest struct {
	Location   string              `json:"location"`
	Navigation *environment.Params `json:"navigation"`
}

type locationRequest struct {
	Location string `json:"location" binding:"required"`
}

type sessionResponse struct {
	ID          string                `json:"id"`
	Environment workspace.Environment `json:"environment"`
	Location    string                `json:"location,omitempty"`
	session.Snapshot
}

// SessionsHandler drives record form sessions.
type SessionsHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// NewSessionsHandler constructs the HTTP handler adapter.
func NewSessionsHandler(ws *workspace.Workspace, logger *zap.Logger) *SessionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionsHandler{ws: ws, logger: logger}
}

// Open starts a session. A body with navigation opens a native session;
// otherwise a browser session follows location.
func (h *SessionsHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("invalid session payload", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var entry *workspace.SessionEntry
	if req.Navigation != nil {
		entry = h.ws.OpenNativeSession(*req.Navigation)
	} else {
		location := req.Location
		if location == "" {
			location = DefaultFormLocation
		}
		var err error
		entry, err = h.ws.OpenBrowserSession(location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	h.respond(c, http.StatusCreated, entry)
}

// Get returns the current session state.
func (h *SessionsHandler) Get(c *gin.Context) {
	entry, err := h.ws.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, entry)
}

// Location navigates a browser session.
func (h *SessionsHandler) Location(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ws.Navigate(c.Param("id"), req.Location)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, entry)
}

// Navigation replaces the navigation parameters of a native session.
func (h *SessionsHandler) Navigation(c *gin.Context) {
	var params environment.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ws.SetParams(c.Param("id"), params)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, entry)
}

// Fields edits the working copy. The patch is applied whole or not at all.
func (h *SessionsHandler) Fields(c *gin.Context) {
	var patch map[string]string
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ws.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if err := entry.Machine.SetFields(patch); err != nil {
		writeError(c, err)
		return
	}

	h.respond(c, http.StatusOK, entry)
}

// Submit validates and saves the working copy.
func (h *SessionsHandler) Submit(c *gin.Context) {
	entry, err := h.ws.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := entry.Machine.Submit(c.Request.Context())
	if err != nil {
		if !errors.Is(err, models.ErrValidation) {
			h.logger.Error("submit failed", zap.String("session_id", entry.ID), zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Retry reloads after a failed load.
func (h *SessionsHandler) Retry(c *gin.Context) {
	entry, err := h.ws.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if err := entry.Machine.Retry(c.Request.Context()); err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	h.respond(c, http.StatusOK, entry)
}

// Close forgets a session.
func (h *SessionsHandler) Close(c *gin.Context) {
	if err := h.ws.CloseSession(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respond waits for in-flight loads so the returned state is settled.
func (h *SessionsHandler) respond(c *gin.Context, status int, entry *workspace.SessionEntry) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), settleTimeout)
	defer cancel()
	if err := entry.Settle(ctx); err != nil {
		h.logger.Warn("session still loading", zap.String("session_id", entry.ID), zap.Error(err))
	}

	resp := sessionResponse{
		ID:          entry.ID,
		Environment: entry.Environment,
		Snapshot:    entry.Machine.Snapshot(),
	}
	if entry.Browser != nil {
		resp.Location = entry.Browser.Location()
	}
	c.JSON(status, resp)
}
