package handler

import (
	"errors"
	"net/http"

	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	settingService service.SettingService
}

func NewSettingHandler(settingService service.SettingService) *SettingHandler {
	return &SettingHandler{settingService: settingService}
}

func (h *SettingHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/api/settings")
	{
		settings.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleOperator), h.ListSettings)
		settings.PUT("/:key", middleware.RequireRole(model.RoleAdmin), h.UpdateSetting)
	}
}

// ListSettings returns every configuration row
// @Summary      List settings
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Setting}
// @Failure      500  {object}  response.Response
// @Router       /api/settings [get]
func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.ListSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch settings"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

type updateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

// UpdateSetting changes one configuration value
// @Summary      Update setting
// @Description  Validates and upserts a known setting key
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key      path      string                true  "Setting key"
// @Param        payload  body      updateSettingRequest  true  "New Value"
// @Success      200      {object}  response.Response{data=model.Setting}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/settings/{key} [put]
func (h *SettingHandler) UpdateSetting(c *gin.Context) {
	var req updateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	setting, err := h.settingService.UpdateSetting(c.Request.Context(), c.Param("key"), req.Value, currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUnknownSettingKey) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, setting))
}
