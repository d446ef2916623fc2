package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
)

// DeletionsHandler answers pending deletion dialogs.
type DeletionsHandler struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// NewDeletionsHandler constructs the HTTP handler adapter.
func NewDeletionsHandler(ws *workspace.Workspace, logger *zap.Logger) *DeletionsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeletionsHandler{ws: ws, logger: logger}
}

// Get returns the deletion status and whether its dialog is open.
func (h *DeletionsHandler) Get(c *gin.Context) {
	entry, err := h.ws.Deletion(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deletionBody(entry))
}

// Confirm accepts the dialog and waits for the deletion to finish.
func (h *DeletionsHandler) Confirm(c *gin.Context) {
	h.decide(c, (*deletion.Dialog).Accept)
}

// Cancel dismisses the dialog. The record is left untouched.
func (h *DeletionsHandler) Cancel(c *gin.Context) {
	h.decide(c, (*deletion.Dialog).Dismiss)
}

func (h *DeletionsHandler) decide(c *gin.Context, answer func(*deletion.Dialog)) {
	entry, err := h.ws.Deletion(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	answer(entry.Dialog)

	select {
	case <-entry.Done():
	case <-c.Request.Context().Done():
		h.logger.Warn("client left before deletion finished", zap.String("deletion_id", entry.ID))
		return
	}

	status, runErr := entry.Flow.Status()
	if runErr != nil {
		body := deletionBody(entry)
		body["error"] = runErr.Error()
		c.JSON(statusFor(runErr), body)
		return
	}
	c.JSON(http.StatusOK, deletionBody(entry))
	h.logger.Debug("deletion answered", zap.String("deletion_id", entry.ID), zap.String("status", string(status)))
}

func deletionBody(entry *workspace.DeletionEntry) gin.H {
	status, err := entry.Flow.Status()
	prompt, open := entry.Dialog.Open()

	body := gin.H{
		"id":        entry.ID,
		"record_id": entry.Flow.TargetID(),
		"status":    status,
		"open":      open,
	}
	if open {
		body["prompt"] = prompt
	}
	if status == deletion.StatusDone {
		body["message"] = "Record deleted."
	}
	if err != nil {
		body["error"] = err.Error()
	}
	return body
}
