package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
)

type filterRequest struct {
	VehicleNumber string `json:"vehicle_number"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

type beginDeletionRequest struct {
	RecordID string `json:"record_id"`
}

type viewResponse struct {
	ID string `json:"id"`
	listing.ViewSnapshot
}

// ViewsHandler drives record list views.
type ViewsHandler struct {
	ws      *workspace.Workspace
	builder *listing.Builder
	logger  *zap.Logger
}

// NewViewsHandler constructs the HTTP handler adapter.
func NewViewsHandler(ws *workspace.Workspace, builder *listing.Builder, logger *zap.Logger) *ViewsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewsHandler{ws: ws, builder: builder, logger: logger}
}

func (h *ViewsHandler) bindFilter(c *gin.Context) (models.FilterSpec, bool) {
	var req filterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return models.FilterSpec{}, false
		}
	}

	spec, err := models.ParseFilterSpec(req.VehicleNumber, req.StartDate, req.EndDate, h.builder.Location())
	if err == nil {
		err = spec.Validate()
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.FilterSpec{}, false
	}
	return spec, true
}

// Create opens a view and runs its first search.
func (h *ViewsHandler) Create(c *gin.Context) {
	spec, ok := h.bindFilter(c)
	if !ok {
		return
	}

	entry, err := h.ws.OpenView(c.Request.Context(), spec)
	if err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewResponse{ID: entry.ID, ViewSnapshot: entry.View.Snapshot()})
}

// Get returns the view state without re-querying.
func (h *ViewsHandler) Get(c *gin.Context) {
	entry, err := h.ws.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.respond(c, entry)
}

// Filter replaces the view filter and re-queries.
func (h *ViewsHandler) Filter(c *gin.Context) {
	entry, err := h.ws.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	spec, ok := h.bindFilter(c)
	if !ok {
		return
	}

	if err := entry.View.Search(c.Request.Context(), spec); err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	h.respond(c, entry)
}

// Clear resets the filter and shows the full set again.
func (h *ViewsHandler) Clear(c *gin.Context) {
	entry, err := h.ws.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := entry.View.Clear(c.Request.Context()); err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	h.respond(c, entry)
}

// Refresh re-runs the current filter (pull-to-refresh).
func (h *ViewsHandler) Refresh(c *gin.Context) {
	entry, err := h.ws.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := entry.View.Refresh(c.Request.Context()); err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	h.respond(c, entry)
}

// Focus re-queries the current filter when the list becomes visible again.
func (h *ViewsHandler) Focus(c *gin.Context) {
	entry, err := h.ws.View(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := entry.View.Visible(c.Request.Context()); err != nil && !errors.Is(err, models.ErrStore) {
		writeError(c, err)
		return
	}
	h.respond(c, entry)
}

// BeginDeletion opens the modal confirmation for one listed record.
func (h *ViewsHandler) BeginDeletion(c *gin.Context) {
	var req beginDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ws.BeginDeletion(c.Param("id"), req.RecordID)
	if err != nil {
		writeError(c, err)
		return
	}

	h.logger.Debug("deletion pending", zap.String("deletion_id", entry.ID), zap.String("record_id", req.RecordID))
	c.JSON(http.StatusAccepted, deletionBody(entry))
}

func (h *ViewsHandler) respond(c *gin.Context, entry *workspace.ViewEntry) {
	c.JSON(http.StatusOK, viewResponse{ID: entry.ID, ViewSnapshot: entry.View.Snapshot()})
}
