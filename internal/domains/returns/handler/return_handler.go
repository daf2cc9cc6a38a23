package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"returns-backend/internal/domains/returns/model"
	"returns-backend/internal/domains/returns/service"
	"returns-backend/internal/shared/middleware"
	"returns-backend/internal/shared/response"
)

const maxUploadBytes = 5<<20 + 1024

// =====================================================
// RETURN REQUEST HANDLER
// =====================================================
type ReturnHandler struct {
	returns service.ReturnService
	query   service.QueryService
	images  service.ImageService
	export  service.ExportService
}

func NewReturnHandler(
	returns service.ReturnService,
	query service.QueryService,
	images service.ImageService,
	export service.ExportService,
) *ReturnHandler {
	return &ReturnHandler{
		returns: returns,
		query:   query,
		images:  images,
		export:  export,
	}
}

// =====================================================
// CUSTOMER ENDPOINTS
// =====================================================

// CreateReturn godoc
// @Summary Create a return request for a delivered order
// @Tags Returns
// @Accept json
// @Produce json
// @Param request body model.CreateReturnRequest true "Return request"
// @Success 201 {object} response.Response{data=model.ReturnRequest}
// @Failure 400 {object} response.Response
// @Router /v1/returns [post]
func (h *ReturnHandler) CreateReturn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	var req model.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	rr, err := h.returns.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, rr)
}

// ListMyReturns godoc
// @Summary List the caller's return requests, newest first
// @Tags Returns
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size"
// @Param as_of query string false "Snapshot instant returned by the first page"
// @Router /v1/returns [get]
func (h *ReturnHandler) ListMyReturns(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	req, ok := bindListRequest(c)
	if !ok {
		return
	}

	result, err := h.query.ListForUser(c.Request.Context(), userID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetMyReturn godoc
// @Router /v1/returns/{id} [get]
func (h *ReturnHandler) GetMyReturn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	rr, err := h.returns.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rr)
}

// CancelMyReturn godoc
// @Router /v1/returns/{id}/cancel [post]
func (h *ReturnHandler) CancelMyReturn(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	rr, err := h.returns.Cancel(c.Request.Context(), id, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rr)
}

// UploadImage godoc
// @Summary Upload a proof image (jpeg/png, 5MB max)
// @Tags Returns
// @Accept multipart/form-data
// @Param image formData file true "Proof image"
// @Router /v1/returns/images [post]
func (h *ReturnHandler) UploadImage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "Image file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.BadRequest(c, "Image exceeds 5MB")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "Cannot read image")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		response.BadRequest(c, "Cannot read image")
		return
	}

	uploaded, err := h.images.Upload(c.Request.Context(), userID, data)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, uploaded)
}

// =====================================================
// ADMIN ENDPOINTS
// =====================================================

// ListAllReturns godoc
// @Router /v1/admin/returns [get]
func (h *ReturnHandler) ListAllReturns(c *gin.Context) {
	req, ok := bindListRequest(c)
	if !ok {
		return
	}

	result, err := h.query.ListAll(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetReturn godoc
// @Router /v1/admin/returns/{id} [get]
func (h *ReturnHandler) GetReturn(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rr, err := h.returns.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	history, err := h.returns.History(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"return_request": rr,
		"history":        history,
	})
}

// ApproveReturn godoc
// @Router /v1/admin/returns/{id}/approve [post]
func (h *ReturnHandler) ApproveReturn(c *gin.Context) {
	adminID, id, ok := adminAndID(c)
	if !ok {
		return
	}

	rr, err := h.returns.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rr)
}

// RejectReturn godoc
// @Router /v1/admin/returns/{id}/reject [post]
func (h *ReturnHandler) RejectReturn(c *gin.Context) {
	adminID, id, ok := adminAndID(c)
	if !ok {
		return
	}

	var req model.RejectReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	rr, err := h.returns.Reject(c.Request.Context(), id, adminID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rr)
}

// PickReturn godoc
// @Router /v1/admin/returns/{id}/pick [post]
func (h *ReturnHandler) PickReturn(c *gin.Context) {
	adminID, id, ok := adminAndID(c)
	if !ok {
		return
	}

	var req model.PickReturnRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}
	}

	rr, err := h.returns.MarkPicked(c.Request.Context(), id, adminID, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, rr)
}

// ExportReturns godoc
// @Summary Download return requests as an xlsx spreadsheet
// @Param status query string false "Status filter"
// @Router /v1/admin/returns/export [get]
func (h *ReturnHandler) ExportReturns(c *gin.Context) {
	data, err := h.export.ExportXLSX(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	filename := fmt.Sprintf("returns_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// =====================================================
// HELPERS
// =====================================================
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Return request ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func adminAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := parseID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return adminID, id, true
}

// bindListRequest defaults a missing page to 1
func bindListRequest(c *gin.Context) (model.ListReturnsRequest, bool) {
	req := model.ListReturnsRequest{Page: 1}
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return req, false
	}
	return req, true
}
