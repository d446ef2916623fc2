package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
)

// RecordGetter loads one record.
type RecordGetter interface {
	Get(ctx context.Context, id string) (models.Record, error)
}

// RecordsHandler serves stateless record reads, searches and deletes.
type RecordsHandler struct {
	repo      RecordGetter
	listing   *listing.Service
	deletions *deletion.Coordinator
	logger    *zap.Logger
}

// NewRecordsHandler constructs the HTTP handler adapter.
func NewRecordsHandler(repo RecordGetter, listingSvc *listing.Service, deletions *deletion.Coordinator, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{repo: repo, listing: listingSvc, deletions: deletions, logger: logger}
}

// List runs one filtered query built from the query string.
func (h *RecordsHandler) List(c *gin.Context) {
	spec, err := models.ParseFilterSpec(
		c.Query("vehicle_number"),
		c.Query("start_date"),
		c.Query("end_date"),
		h.listing.Builder().Location(),
	)
	if err != nil {
		h.logger.Debug("invalid filter", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.listing.Execute(c.Request.Context(), spec)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// Get returns one record.
func (h *RecordsHandler) Get(c *gin.Context) {
	rec, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Error("failed to load record", zap.String("record_id", c.Param("id")), zap.Error(err))
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete runs a deletion whose confirmation was already answered on the
// device, passed as ?confirm=true.
func (h *RecordsHandler) Delete(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.DefaultQuery("confirm", "false"))

	flow, err := h.deletions.Begin(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	status, err := flow.Run(c.Request.Context(), deletion.Static(confirmed))
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{"record_id": flow.TargetID(), "status": status}
	if status == deletion.StatusDone {
		body["message"] = "Record deleted."
	}
	c.JSON(http.StatusOK, body)
}
