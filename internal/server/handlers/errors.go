package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/deletion"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/session"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/workspace"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrUnknownField),
		errors.Is(err, models.ErrInvalidDateRange),
		errors.Is(err, deletion.ErrMissingTarget),
		errors.Is(err, workspace.ErrNotBrowser),
		errors.Is(err, workspace.ErrNotNative):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, workspace.ErrSessionNotFound),
		errors.Is(err, workspace.ErrViewNotFound),
		errors.Is(err, workspace.ErrDeletionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrNothingToRetry),
		errors.Is(err, session.ErrStaleResult),
		errors.Is(err, deletion.ErrDeletionInProgress),
		errors.Is(err, deletion.ErrAlreadyRun):
		return http.StatusConflict
	case errors.Is(err, models.ErrStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}

	var verr *models.ValidationError
	if errors.As(err, &verr) {
		body["missing_fields"] = verr.Missing
	}

	c.JSON(statusFor(err), body)
}
