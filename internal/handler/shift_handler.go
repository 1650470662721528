package handler

import (
	"errors"
	"net/http"

	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/pkg/pagination"
	"github.com/AniketAku/parking-management-app--sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type ShiftHandler struct {
	shiftService service.ShiftService
}

func NewShiftHandler(shiftService service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftService: shiftService}
}

func (h *ShiftHandler) RegisterRoutes(router *gin.RouterGroup) {
	shifts := router.Group("/api/shifts")
	shifts.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleOperator))
	{
		shifts.POST("", h.OpenShift)
		shifts.GET("", h.ListShifts)
		shifts.GET("/active", h.GetActiveShift)
		shifts.GET("/:id", h.GetShift)
		shifts.POST("/:id/close", h.CloseShift)
	}
}

// OpenShift starts a cash session for the authenticated operator
// @Summary      Open shift
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.OpenShiftRequest  true  "Open Shift Payload"
// @Success      201      {object}  response.Response{data=model.Shift}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/shifts [post]
func (h *ShiftHandler) OpenShift(c *gin.Context) {
	var req service.OpenShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	shift, err := h.shiftService.OpenShift(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrShiftAlreadyOpen) {
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, shift))
}

// CloseShift reconciles and closes a cash session
// @Summary      Close shift
// @Description  Sums cash collected during the shift and reports the variance against the declared drawer
// @Tags         shifts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Shift ID"
// @Param        payload  body      service.CloseShiftRequest  true  "Close Shift Payload"
// @Success      200      {object}  response.Response{data=service.ShiftCloseResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/shifts/{id}/close [post]
func (h *ShiftHandler) CloseShift(c *gin.Context) {
	var req service.CloseShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.shiftService.CloseShift(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShiftNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrShiftAlreadyClosed):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetActiveShift returns the caller's currently open shift
// @Summary      Get active shift
// @Tags         shifts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.Shift}
// @Failure      404  {object}  response.Response
// @Router       /api/shifts/active [get]
func (h *ShiftHandler) GetActiveShift(c *gin.Context) {
	shift, err := h.shiftService.ActiveShift(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNoOpenShift) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shift))
}

// GetShift returns one shift by ID
// @Summary      Get shift
// @Tags         shifts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Shift ID"
// @Success      200  {object}  response.Response{data=model.Shift}
// @Failure      404  {object}  response.Response
// @Router       /api/shifts/{id} [get]
func (h *ShiftHandler) GetShift(c *gin.Context) {
	shift, err := h.shiftService.GetShift(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrShiftNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, shift))
}

// ListShifts returns shifts newest-first
// @Summary      List shifts
// @Tags         shifts
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/shifts [get]
func (h *ShiftHandler) ListShifts(c *gin.Context) {
	params := pagination.Parse(c)

	shifts, total, err := h.shiftService.ListShifts(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch shifts"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"shifts": shifts,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	}))
}
