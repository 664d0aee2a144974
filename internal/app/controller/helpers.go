package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/app/service"
	apperrors "github.com/townmarket/townmarket-backend/internal/errors"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

// MessageResponse is the plain success signal of mutating endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// parseIDParam reads a positive numeric path parameter. It writes the 400
// response itself and returns false when the value is malformed.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			name:    raw,
			"error": errString(err),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func entityNotFoundCode(kind model.EntityKind) string {
	if kind == model.KindProduct {
		return apperrors.ProductNotFound
	}
	return apperrors.PlaceNotFound
}

// respondServiceError maps the service error taxonomy onto HTTP envelopes.
// context names the resource and action, e.g. "place update".
func respondServiceError(c *gin.Context, err error, context, notFoundCode, notFoundMessage string) {
	log := middleware.GetLoggerFromContext(c)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Warn("Validation failed", map[string]interface{}{
			"context": context,
			"fields":  verr.Fields,
		})
		apperrors.RespondWithValidationError(c, verr.Fields)
	case errors.Is(err, service.ErrNotFound):
		log.Warn("Resource not found", map[string]interface{}{
			"context": context,
		})
		apperrors.NotFound(c, notFoundCode, notFoundMessage)
	case errors.Is(err, service.ErrInvalidCredentials):
		apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Email or password is incorrect")
	case errors.Is(err, service.ErrEmailAlreadyExists):
		apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "This email address is already in use")
	case errors.Is(err, service.ErrCannotDeleteSelf):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzCannotDeleteSelf, "You cannot delete your own account")
	case errors.Is(err, service.ErrUploadFailed):
		log.Error("Image upload failed", err, map[string]interface{}{
			"context": context,
		})
		apperrors.InternalError(c, apperrors.UploadFailed, "The images could not be uploaded. Please try again", err)
	default:
		info := apperrors.ParseError(err, context)
		log.Error("Request failed", err, map[string]interface{}{
			"context": context,
			"code":    info.Code,
		})
		apperrors.InternalError(c, info.Code, info.Message, err)
	}
}
