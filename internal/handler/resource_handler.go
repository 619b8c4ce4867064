package handler

import (
	"github.com/gin-gonic/gin"

	"cloudsync/internal/service"
)

// ResourceHandler handles resource and package read endpoints.
type ResourceHandler struct {
	resourceService service.ResourceService
}

// NewResourceHandler creates a new ResourceHandler.
func NewResourceHandler(resourceService service.ResourceService) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService}
}

// DownloadURL handles GET /api/v1/resources/:id/download-url
func (h *ResourceHandler) DownloadURL(c *gin.Context) {
	resourceID, ok := parseResourceID(c)
	if !ok {
		return
	}

	url, err := h.resourceService.DownloadURL(c.Request.Context(), resourceID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"url": url})
}

// PackageByOrganization handles GET /api/v1/organizations/:org/packages/:name
func (h *ResourceHandler) PackageByOrganization(c *gin.Context) {
	pkg, err := h.resourceService.PackageByOrganization(c.Request.Context(), c.Param("org"), c.Param("name"))
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, pkg)
}
