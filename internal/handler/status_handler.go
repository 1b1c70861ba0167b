package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vuhoang/student-records-api/internal/service"
	appErrors "github.com/vuhoang/student-records-api/pkg/errors"
	"github.com/vuhoang/student-records-api/pkg/response"
)

// StatusHandler exposes student-status endpoints.
type StatusHandler struct {
	statuses *service.StatusService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(statuses *service.StatusService) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

// List godoc
// @Summary List student statuses
// @Tags Statuses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /statuses [get]
func (h *StatusHandler) List(c *gin.Context) {
	statuses, err := h.statuses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// Get godoc
// @Summary Get student status
// @Tags Statuses
// @Produce json
// @Param id path string true "Status ID"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id} [get]
func (h *StatusHandler) Get(c *gin.Context) {
	status, err := h.statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Create godoc
// @Summary Create student status
// @Tags Statuses
// @Accept json
// @Produce json
// @Param payload body service.StatusRequest true "Status payload"
// @Success 201 {object} response.Envelope
// @Router /statuses [post]
func (h *StatusHandler) Create(c *gin.Context) {
	var req service.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, err := h.statuses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// Update godoc
// @Summary Update student status
// @Tags Statuses
// @Accept json
// @Produce json
// @Param id path string true "Status ID"
// @Param payload body service.StatusPatch true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /statuses/{id} [put]
func (h *StatusHandler) Update(c *gin.Context) {
	var patch service.StatusPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, err := h.statuses.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Delete godoc
// @Summary Delete student status
// @Tags Statuses
// @Param id path string true "Status ID"
// @Success 204
// @Router /statuses/{id} [delete]
func (h *StatusHandler) Delete(c *gin.Context) {
	if err := h.statuses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
