package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cloudsync/internal/service"
)

// MultipartHandler handles chunked upload endpoints.
type MultipartHandler struct {
	multipartService service.MultipartService
}

// NewMultipartHandler creates a new MultipartHandler.
func NewMultipartHandler(multipartService service.MultipartService) *MultipartHandler {
	return &MultipartHandler{multipartService: multipartService}
}

// Initiate handles POST /api/v1/multipart
func (h *MultipartHandler) Initiate(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		ResourceID string `json:"resource_id" binding:"required"`
		Filename   string `json:"filename" binding:"required"`
		Size       int64  `json:"size" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "resource_id and filename are required")
		return
	}
	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid resource ID")
		return
	}

	upload, err := h.multipartService.Initiate(c.Request.Context(), service.InitiateInput{
		ResourceID: resourceID,
		Filename:   req.Filename,
		Size:       req.Size,
		Actor:      actor,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, upload)
}

// UploadPart handles PUT /api/v1/multipart/:upload_id/parts/:part_number
// The request body is the raw part content.
func (h *MultipartHandler) UploadPart(c *gin.Context) {
	partNumber, err := strconv.ParseInt(c.Param("part_number"), 10, 32)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_PART_NUMBER", "part number must be an integer")
		return
	}
	if c.Request.ContentLength < 0 {
		RespondError(c, http.StatusLengthRequired, "LENGTH_REQUIRED", "Content-Length header is required")
		return
	}

	result, err := h.multipartService.UploadPart(c.Request.Context(), service.UploadPartInput{
		UploadID:   c.Param("upload_id"),
		PartNumber: int32(partNumber),
		Body:       c.Request.Body,
		Size:       c.Request.ContentLength,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// Finish handles POST /api/v1/multipart/:upload_id/finish
func (h *MultipartHandler) Finish(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req struct {
		KeepDraft bool `json:"keep_draft"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
			return
		}
	}

	res, err := h.multipartService.Finish(c.Request.Context(), service.FinishInput{
		UploadID:  c.Param("upload_id"),
		Actor:     actor,
		KeepDraft: req.KeepDraft,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, res)
}

// Check handles GET /api/v1/resources/:id/multipart
func (h *MultipartHandler) Check(c *gin.Context) {
	resourceID, ok := parseResourceID(c)
	if !ok {
		return
	}

	upload, err := h.multipartService.Check(c.Request.Context(), resourceID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, upload)
}

// Abort handles DELETE /api/v1/resources/:id/multipart
func (h *MultipartHandler) Abort(c *gin.Context) {
	resourceID, ok := parseResourceID(c)
	if !ok {
		return
	}

	result, err := h.multipartService.Abort(c.Request.Context(), resourceID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}
