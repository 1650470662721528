package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager))
	{
		reports.GET("/analytics", h.GetAnalytics)
		reports.GET("/aggregations", h.GetAggregations)
		reports.GET("/hourly", h.GetHourlyBreakdown)
		reports.POST("/cache/invalidate", middleware.RequireRole(model.RoleAdmin), h.InvalidateCache)
	}
}

// GetAnalytics returns the full dashboard report for a time window
// @Summary      Comprehensive analytics
// @Description  Revenue, traffic, operational, predictive and comparative analytics for the window
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        start        query     string  false  "Window start (RFC3339 or YYYY-MM-DD, default 30 days ago)"
// @Param        end          query     string  false  "Window end (RFC3339 or YYYY-MM-DD, default now)"
// @Param        granularity  query     string  false  "Bucket size: hour, day, week, month (default day)"
// @Success      200          {object}  response.Response{data=model.AnalyticsReport}
// @Failure      400          {object}  response.Response
// @Failure      502          {object}  response.Response
// @Router       /api/reports/analytics [get]
func (h *ReportHandler) GetAnalytics(c *gin.Context) {
	rng, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	report, err := h.reportService.GenerateComprehensiveAnalytics(c.Request.Context(), rng)
	if err != nil {
		if errors.Is(err, service.ErrDataFetch) {
			c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// GetAggregations returns the lightweight totals-and-breakdowns view
// @Summary      Report aggregations
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        start            query     string  false  "Window start"
// @Param        end              query     string  false  "Window end"
// @Param        by_payment_type  query     bool    false  "Include payment type breakdown"
// @Param        by_vehicle_type  query     bool    false  "Include vehicle type breakdown"
// @Success      200              {object}  response.Response{data=service.AggregationSummary}
// @Failure      400              {object}  response.Response
// @Failure      502              {object}  response.Response
// @Router       /api/reports/aggregations [get]
func (h *ReportHandler) GetAggregations(c *gin.Context) {
	rng, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	byPayment, _ := strconv.ParseBool(c.DefaultQuery("by_payment_type", "true"))
	byVehicle, _ := strconv.ParseBool(c.DefaultQuery("by_vehicle_type", "true"))

	summary, err := h.reportService.FetchReportAggregations(c.Request.Context(), rng, service.ReportCriteria{
		ByPaymentType: byPayment,
		ByVehicleType: byVehicle,
	})
	if err != nil {
		if errors.Is(err, service.ErrDataFetch) {
			c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// GetHourlyBreakdown returns the dense 24-hour entry distribution
// @Summary      Hourly entry distribution
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        start  query     string  false  "Window start"
// @Param        end    query     string  false  "Window end"
// @Success      200    {object}  response.Response{data=[]model.HourlyBucket}
// @Failure      400    {object}  response.Response
// @Failure      502    {object}  response.Response
// @Router       /api/reports/hourly [get]
func (h *ReportHandler) GetHourlyBreakdown(c *gin.Context) {
	rng, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	buckets, err := h.reportService.FetchHourlyBreakdown(c.Request.Context(), rng.Start, rng.End)
	if err != nil {
		c.JSON(http.StatusBadGateway, response.Error(http.StatusBadGateway, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, buckets))
}

// InvalidateCache drops every cached report
// @Summary      Invalidate report cache
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /api/reports/cache/invalidate [post]
func (h *ReportHandler) InvalidateCache(c *gin.Context) {
	h.reportService.InvalidateCache()
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Report cache invalidated"))
}

// parseTimeRange reads start/end/granularity query params, accepting
// RFC3339 or plain dates, defaulting to the trailing 30 days.
func parseTimeRange(c *gin.Context) (model.TimeRange, error) {
	now := time.Now()
	rng := model.TimeRange{
		Start:       now.AddDate(0, 0, -30),
		End:         now,
		Granularity: c.DefaultQuery("granularity", model.GranularityDay),
	}

	if raw := c.Query("start"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return model.TimeRange{}, err
		}
		rng.Start = t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return model.TimeRange{}, err
		}
		rng.End = t
	}
	if !rng.End.After(rng.Start) {
		return model.TimeRange{}, errors.New("end must be after start")
	}
	return rng, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("invalid time value " + strconv.Quote(raw) + ": expected RFC3339 or YYYY-MM-DD")
}
