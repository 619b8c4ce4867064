package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloudsync/internal/service"
)

// AdminHandler handles sysadmin maintenance endpoints.
type AdminHandler struct {
	scheduler        service.SyncScheduler
	multipartService service.MultipartService
	maxLifetime      time.Duration
}

// NewAdminHandler creates a new AdminHandler. maxLifetime is the default age
// after which multipart sessions are reaped.
func NewAdminHandler(scheduler service.SyncScheduler, multipartService service.MultipartService, maxLifetime time.Duration) *AdminHandler {
	return &AdminHandler{
		scheduler:        scheduler,
		multipartService: multipartService,
		maxLifetime:      maxLifetime,
	}
}

// Sync handles POST /api/v1/admin/sync
func (h *AdminHandler) Sync(c *gin.Context) {
	enqueued, err := h.scheduler.Schedule(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	status := http.StatusOK
	if enqueued {
		status = http.StatusAccepted
	}
	c.JSON(status, APIResponse{Success: true, Data: gin.H{"enqueued": enqueued}})
}

// CleanMultipart handles POST /api/v1/admin/multipart/clean
// An optional max_lifetime query parameter (e.g. "48h") overrides the default.
func (h *AdminHandler) CleanMultipart(c *gin.Context) {
	maxLifetime := h.maxLifetime
	if raw := c.Query("max_lifetime"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "max_lifetime must be a positive duration")
			return
		}
		maxLifetime = d
	}

	result, err := h.multipartService.Reap(c.Request.Context(), maxLifetime)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
