package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-admin-api/internal/models"
	"github.com/noah-isme/lms-admin-api/internal/service"
	appErrors "github.com/noah-isme/lms-admin-api/pkg/errors"
	"github.com/noah-isme/lms-admin-api/pkg/response"
)

// ContentHandler handles content endpoints nested under courses.
type ContentHandler struct {
	service *service.ContentService
}

// NewContentHandler creates a new content handler.
func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// List godoc
// @Summary List course contents
// @Tags Contents
// @Produce json
// @Param id path string true "Course ID"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param orderBy query string false "Sort field"
// @Param orderDirection query string false "Sort direction (ASC or DESC)"
// @Param name query string false "Name filter"
// @Param description query string false "Description filter"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/contents [get]
func (h *ContentHandler) List(c *gin.Context) {
	spec, err := querySpec(c, "name", "description")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), c.Param("id"), spec)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result.Data, &models.Pagination{
		Page:  result.Page,
		Limit: result.Limit,
		Total: result.Total,
	})
}

// Get godoc
// @Summary Get course content
// @Tags Contents
// @Produce json
// @Param id path string true "Course ID"
// @Param contentId path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/contents/{contentId} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.service.Get(c.Request.Context(), c.Param("id"), c.Param("contentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Create godoc
// @Summary Create course content
// @Tags Contents
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.ContentRequest true "Create content payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/contents [post]
func (h *ContentHandler) Create(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	content, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, content)
}

// Update godoc
// @Summary Update course content
// @Tags Contents
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param contentId path string true "Content ID"
// @Param payload body service.ContentRequest true "Update content payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/contents/{contentId} [put]
func (h *ContentHandler) Update(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	content, err := h.service.Update(c.Request.Context(), c.Param("id"), c.Param("contentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Delete godoc
// @Summary Delete course content
// @Tags Contents
// @Produce json
// @Param id path string true "Course ID"
// @Param contentId path string true "Content ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/contents/{contentId} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Param("contentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
