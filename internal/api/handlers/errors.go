package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/faceauth/internal/faceid"
	"github.com/your-org/faceauth/pkg/dto"
)

// writeError maps orchestrator errors to HTTP. Recognition failures carry
// no detail beyond the fixed message.
func writeError(c *gin.Context, err error) {
	var pe *faceid.ProfileError
	switch {
	case errors.Is(err, faceid.ErrUnsupportedImageFormat):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: faceid.ErrUnsupportedImageFormat.Error()})
	case errors.As(err, &pe):
		status := http.StatusBadRequest
		if pe.Conflict {
			status = http.StatusConflict
		}
		c.JSON(status, dto.ErrorResponse{Error: pe.Error(), Field: pe.Field})
	case errors.Is(err, faceid.ErrFaceAlreadyEnrolled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: faceid.ErrFaceAlreadyEnrolled.Error()})
	case errors.Is(err, faceid.ErrNoFaceDetected):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: faceid.ErrNoFaceDetected.Error()})
	case errors.Is(err, faceid.ErrNoMatchFound):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: faceid.ErrNoMatchFound.Error()})
	case errors.Is(err, faceid.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: faceid.ErrInvalidCredentials.Error()})
	case errors.Is(err, faceid.ErrIdentityNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: faceid.ErrIdentityNotFound.Error()})
	case errors.Is(err, faceid.ErrExtractorUnavailable):
		slog.Warn("extractor unavailable", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: faceid.ErrExtractorUnavailable.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
