package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cloudsync/internal/domain"
	"cloudsync/internal/handler"
	"cloudsync/internal/middleware"
	"cloudsync/internal/service"
	"cloudsync/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMultipartHandler() (*handler.MultipartHandler, *mocks.MockMultipartService) {
	mockSvc := new(mocks.MockMultipartService)
	return handler.NewMultipartHandler(mockSvc), mockSvc
}

func authedContext(method, target string, body *bytes.Reader, actor uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = bytes.NewReader(nil)
	}
	c.Request, _ = http.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextKeyUserID, actor)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Initiate ---

func TestMultipartHandler_Initiate_Success(t *testing.T) {
	h, mockSvc := newMultipartHandler()
	actor := uuid.New()
	resourceID := uuid.New()

	mockSvc.On("Initiate", mock.Anything, service.InitiateInput{
		ResourceID: resourceID,
		Filename:   "data.csv",
		Size:       4096,
		Actor:      actor,
	}).Return(&domain.MultipartUpload{ID: "upload-1", ResourceID: resourceID}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"resource_id": resourceID.String(),
		"filename":    "data.csv",
		"size":        4096,
	})
	c, w := authedContext(http.MethodPost, "/api/v1/multipart", bytes.NewReader(body), actor)

	h.Initiate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	mockSvc.AssertExpectations(t)
}

func TestMultipartHandler_Initiate_MissingFilename(t *testing.T) {
	h, mockSvc := newMultipartHandler()

	body, _ := json.Marshal(map[string]string{"resource_id": uuid.New().String()})
	c, w := authedContext(http.MethodPost, "/api/v1/multipart", bytes.NewReader(body), uuid.New())

	h.Initiate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
}

func TestMultipartHandler_Initiate_Conflict(t *testing.T) {
	h, mockSvc := newMultipartHandler()

	mockSvc.On("Initiate", mock.Anything, mock.AnythingOfType("service.InitiateInput")).
		Return(nil, domain.ErrUploadConflict)

	body, _ := json.Marshal(map[string]string{"resource_id": uuid.New().String(), "filename": "a.csv"})
	c, w := authedContext(http.MethodPost, "/api/v1/multipart", bytes.NewReader(body), uuid.New())

	h.Initiate(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "UPLOAD_CONFLICT", decode(t, w).Error.Code)
}

func TestMultipartHandler_Initiate_NoAuthContext(t *testing.T) {
	h, _ := newMultipartHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/multipart", http.NoBody)

	h.Initiate(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- UploadPart ---

func TestMultipartHandler_UploadPart_Success(t *testing.T) {
	h, mockSvc := newMultipartHandler()

	mockSvc.On("UploadPart", mock.Anything, mock.MatchedBy(func(in service.UploadPartInput) bool {
		return in.UploadID == "upload-1" && in.PartNumber == 2 && in.Size == 5
	})).Return(&service.UploadPartResult{PartNumber: 2, ETag: "etag"}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/api/v1/multipart/upload-1/parts/2", strings.NewReader("chunk"))
	c.Params = gin.Params{{Key: "upload_id", Value: "upload-1"}, {Key: "part_number", Value: "2"}}

	h.UploadPart(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestMultipartHandler_UploadPart_BadPartNumber(t *testing.T) {
	h, _ := newMultipartHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPut, "/api/v1/multipart/upload-1/parts/x", strings.NewReader("chunk"))
	c.Params = gin.Params{{Key: "upload_id", Value: "upload-1"}, {Key: "part_number", Value: "x"}}

	h.UploadPart(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMultipartHandler_UploadPart_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"out of range", domain.ErrInvalidPartNumber, http.StatusBadRequest},
		{"unknown session", domain.ErrSessionNotFound, http.StatusNotFound},
		{"backend rejected", domain.ErrPartUploadFailed, http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mockSvc := newMultipartHandler()
			mockSvc.On("UploadPart", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodPut, "/api/v1/multipart/u/parts/1", strings.NewReader("x"))
			c.Params = gin.Params{{Key: "upload_id", Value: "u"}, {Key: "part_number", Value: "1"}}

			h.UploadPart(c)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

// --- Finish ---

func TestMultipartHandler_Finish_KeepDraft(t *testing.T) {
	h, mockSvc := newMultipartHandler()
	actor := uuid.New()

	mockSvc.On("Finish", mock.Anything, service.FinishInput{UploadID: "upload-1", Actor: actor, KeepDraft: true}).
		Return(&domain.Resource{ID: uuid.New()}, nil)

	body, _ := json.Marshal(map[string]bool{"keep_draft": true})
	c, w := authedContext(http.MethodPost, "/api/v1/multipart/upload-1/finish", bytes.NewReader(body), actor)
	c.Params = gin.Params{{Key: "upload_id", Value: "upload-1"}}

	h.Finish(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestMultipartHandler_Finish_EmptyBody(t *testing.T) {
	h, mockSvc := newMultipartHandler()
	actor := uuid.New()

	mockSvc.On("Finish", mock.Anything, service.FinishInput{UploadID: "upload-1", Actor: actor}).
		Return(&domain.Resource{ID: uuid.New()}, nil)

	c, w := authedContext(http.MethodPost, "/api/v1/multipart/upload-1/finish", nil, actor)
	c.Params = gin.Params{{Key: "upload_id", Value: "upload-1"}}

	h.Finish(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Check / Abort ---

func TestMultipartHandler_Check_NotFound(t *testing.T) {
	h, mockSvc := newMultipartHandler()
	resourceID := uuid.New()

	mockSvc.On("Check", mock.Anything, resourceID).Return(nil, domain.ErrSessionNotFound)

	c, w := authedContext(http.MethodGet, "/api/v1/resources/"+resourceID.String()+"/multipart", nil, uuid.New())
	c.Params = gin.Params{{Key: "id", Value: resourceID.String()}}

	h.Check(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UPLOAD_NOT_FOUND", decode(t, w).Error.Code)
}

func TestMultipartHandler_Abort_InvalidID(t *testing.T) {
	h, _ := newMultipartHandler()

	c, w := authedContext(http.MethodDelete, "/api/v1/resources/nope/multipart", nil, uuid.New())
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.Abort(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMultipartHandler_Abort_ReportsResult(t *testing.T) {
	h, mockSvc := newMultipartHandler()
	resourceID := uuid.New()

	mockSvc.On("Abort", mock.Anything, resourceID).
		Return(&service.AbortResult{Aborted: []string{"u1"}, Errors: []string{"u2: timeout"}}, nil)

	c, w := authedContext(http.MethodDelete, "/api/v1/resources/"+resourceID.String()+"/multipart", nil, uuid.New())
	c.Params = gin.Params{{Key: "id", Value: resourceID.String()}}

	h.Abort(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u2: timeout")
}
