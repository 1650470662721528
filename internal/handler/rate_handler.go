package handler

import (
	"net/http"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/pkg/pagination"
	"github.com/AniketAku/parking-management-app--sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateHandler struct {
	rateService service.RateService
	feeService  service.FeeService
}

func NewRateHandler(rateService service.RateService, feeService service.FeeService) *RateHandler {
	return &RateHandler{rateService: rateService, feeService: feeService}
}

func (h *RateHandler) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/api/rate-rules")
	{
		// Reads are open to every authenticated role
		read := rates.Group("")
		read.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleOperator))
		{
			read.GET("", h.ListRateRules)
			read.GET("/validate", h.ValidateSystem)
			read.POST("/estimate", h.EstimateFee)
		}

		// Writes change what vehicles get charged
		write := rates.Group("")
		write.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
		{
			write.POST("", h.CreateRateRule)
			write.PUT("/:id", h.UpdateRateRule)
			write.POST("/:id/deactivate", h.DeactivateRateRule)
		}
	}
}

// ListRateRules returns all rate rules newest-first
// @Summary      List rate rules
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/rate-rules [get]
func (h *RateHandler) ListRateRules(c *gin.Context) {
	params := pagination.Parse(c)

	rules, total, err := h.rateService.ListRateRules(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch rate rules"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rules": rules,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// CreateRateRule creates a rate rule after running the validation battery
// @Summary      Create rate rule
// @Description  Persists the rule only when validation finds no errors; the report is returned either way
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RateRuleRequest  true  "Rate Rule Payload"
// @Success      201      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response{data=service.ValidationReport}
// @Router       /api/rate-rules [post]
func (h *RateHandler) CreateRateRule(c *gin.Context) {
	var req service.RateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, report, err := h.rateService.AddRateConfig(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if rule == nil {
		// Validation errors block persistence; hand the full report back
		c.JSON(http.StatusUnprocessableEntity, response.Success(http.StatusUnprocessableEntity, report))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]interface{}{
		"rule":       rule,
		"validation": report,
	}))
}

// UpdateRateRule updates a rate rule after running the validation battery
// @Summary      Update rate rule
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Rule ID"
// @Param        payload  body      service.RateRuleRequest  true  "Rate Rule Payload"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response{data=service.ValidationReport}
// @Router       /api/rate-rules/{id} [put]
func (h *RateHandler) UpdateRateRule(c *gin.Context) {
	var req service.RateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, report, err := h.rateService.UpdateRateConfig(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if rule == nil {
		c.JSON(http.StatusUnprocessableEntity, response.Success(http.StatusUnprocessableEntity, report))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rule":       rule,
		"validation": report,
	}))
}

// DeactivateRateRule retires a rule without deleting it
// @Summary      Deactivate rate rule
// @Description  Marks the rule inactive and closes its effective window; history is never deleted
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/rate-rules/{id}/deactivate [post]
func (h *RateHandler) DeactivateRateRule(c *gin.Context) {
	if err := h.rateService.DeactivateRateRule(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Rate rule deactivated"))
}

// ValidateSystem runs the validation battery across all active rules
// @Summary      Validate rate configuration
// @Tags         rates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.ValidationReport}
// @Failure      500  {object}  response.Response
// @Router       /api/rate-rules/validate [get]
func (h *RateHandler) ValidateSystem(c *gin.Context) {
	report, err := h.rateService.ValidateCompleteSystem(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

type estimateFeeRequest struct {
	VehicleType string  `json:"vehicle_type" binding:"required"`
	Hours       float64 `json:"hours" binding:"required,gt=0"`
}

// EstimateFee quotes a fee for a hypothetical stay without touching any entry
// @Summary      Estimate parking fee
// @Tags         rates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      estimateFeeRequest  true  "Estimate Payload"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Router       /api/rate-rules/estimate [post]
func (h *RateHandler) EstimateFee(c *gin.Context) {
	var req estimateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	fee, err := h.feeService.EstimateFee(c.Request.Context(), req.VehicleType, time.Now(), req.Hours)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"vehicle_type": req.VehicleType,
		"hours":        req.Hours,
		"estimate":     fee,
	}))
}
