package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/middleware"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "UPLOAD_NOT_FOUND", "multipart upload not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrUploadConflict):
		return http.StatusConflict, "UPLOAD_CONFLICT", "another upload to this resource is in progress"
	case errors.Is(err, domain.ErrInvalidPartNumber):
		return http.StatusBadRequest, "INVALID_PART_NUMBER", "part number must be between 1 and 10000"
	case errors.Is(err, domain.ErrInvalidResourceName):
		return http.StatusBadRequest, "INVALID_RESOURCE_NAME", "resource name cannot be used as an object key"
	case errors.Is(err, domain.ErrUnsupportedKeyFormat):
		return http.StatusUnprocessableEntity, "UNSUPPORTED_KEY_FORMAT", "stored object key has an unsupported format"
	case errors.Is(err, domain.ErrNotUploadResource):
		return http.StatusBadRequest, "NOT_UPLOAD_RESOURCE", "resource is not an uploaded file"
	case errors.Is(err, domain.ErrCrossTenantMismatch):
		return http.StatusConflict, "CROSS_TENANT_MISMATCH", "package belongs to another organization"
	case errors.Is(err, domain.ErrPresignUnavailable):
		return http.StatusNotImplemented, "PRESIGN_UNAVAILABLE", "signed urls are not available for this storage backend"
	case errors.Is(err, domain.ErrPartUploadFailed):
		return http.StatusBadGateway, "PART_UPLOAD_FAILED", "part upload to storage failed"
	case errors.Is(err, domain.ErrBackendRequestFailed):
		return http.StatusBadGateway, "STORAGE_ERROR", "storage backend request failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// actorID extracts the acting user from the request context.
// Returns false if auth context is missing (error response already written).
func actorID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing user context")
		return uuid.Nil, false
	}
	return userID, true
}

// parseResourceID reads the :id path parameter.
func parseResourceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid resource ID")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		zap.L().Error("request failed",
			zap.String("request_id", c.GetString(middleware.ContextKeyRequestID)),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	RespondError(c, status, code, msg)
}
