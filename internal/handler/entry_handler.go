package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/AniketAku/parking-management-app--sub001/internal/middleware"
	"github.com/AniketAku/parking-management-app--sub001/internal/model"
	"github.com/AniketAku/parking-management-app--sub001/internal/repository"
	"github.com/AniketAku/parking-management-app--sub001/internal/service"
	"github.com/AniketAku/parking-management-app--sub001/pkg/pagination"
	"github.com/AniketAku/parking-management-app--sub001/pkg/response"

	"github.com/gin-gonic/gin"
)

type EntryHandler struct {
	entryService  service.EntryService
	ticketService service.TicketService
}

func NewEntryHandler(entryService service.EntryService, ticketService service.TicketService) *EntryHandler {
	return &EntryHandler{entryService: entryService, ticketService: ticketService}
}

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/api/entries")
	entries.Use(middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleOperator))
	{
		entries.POST("", h.CheckIn)
		entries.GET("", h.ListEntries)
		entries.GET("/parked", h.ListParked)
		entries.GET("/overstays", h.ListOverstays)
		entries.GET("/:id", h.GetEntry)
		entries.POST("/:id/checkout", h.CheckOut)
		entries.GET("/:id/ticket", h.PrintTicket)
		entries.GET("/:id/receipt", h.PrintReceipt)
	}
}

// CheckIn registers a vehicle arriving at the gate
// @Summary      Check in a vehicle
// @Description  Creates an open parking entry and allocates the next ticket serial
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CheckInRequest  true  "Check-In Payload"
// @Success      201      {object}  response.Response{data=model.ParkingEntry}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/entries [post]
func (h *EntryHandler) CheckIn(c *gin.Context) {
	var req service.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.entryService.CheckIn(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrVehicleAlreadyParked) {
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, entry))
}

// CheckOut completes a visit: prices the stay and closes the entry
// @Summary      Check out a vehicle
// @Description  Calculates the parking fee, records payment and closes the entry
// @Tags         entries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Entry ID"
// @Param        payload  body      service.CheckOutRequest  true  "Check-Out Payload"
// @Success      200      {object}  response.Response{data=service.CheckOutResult}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/entries/{id}/checkout [post]
func (h *EntryHandler) CheckOut(c *gin.Context) {
	var req service.CheckOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.entryService.CheckOut(c.Request.Context(), c.Param("id"), req, currentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrEntryAlreadyExited):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListEntries returns a filtered, paginated entry listing
// @Summary      List parking entries
// @Description  Lists entries filtered by status, vehicle type, plate, transport or time window
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        status          query     string  false  "Entry status"
// @Param        vehicle_type    query     string  false  "Vehicle type"
// @Param        vehicle_number  query     string  false  "Plate number"
// @Param        transport_name  query     string  false  "Transport company (partial match)"
// @Param        from            query     string  false  "Entry time lower bound (RFC3339)"
// @Param        to              query     string  false  "Entry time upper bound (RFC3339)"
// @Param        page            query     int     false  "Page number"
// @Param        limit           query     int     false  "Items per page"
// @Success      200             {object}  response.Response{data=object}
// @Failure      500             {object}  response.Response
// @Router       /api/entries [get]
func (h *EntryHandler) ListEntries(c *gin.Context) {
	params := pagination.Parse(c)

	filter := repository.EntryFilter{
		Status:        c.Query("status"),
		VehicleType:   c.Query("vehicle_type"),
		VehicleNumber: c.Query("vehicle_number"),
		TransportName: c.Query("transport_name"),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.From = from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.To = to
	}

	entries, total, err := h.entryService.ListEntries(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch entries"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// ListParked returns all vehicles currently inside the facility
// @Summary      List parked vehicles
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.ParkingEntry}
// @Failure      500  {object}  response.Response
// @Router       /api/entries/parked [get]
func (h *EntryHandler) ListParked(c *gin.Context) {
	entries, err := h.entryService.ListParked(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch parked vehicles"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// ListOverstays returns parked vehicles past the overstay threshold
// @Summary      List overstaying vehicles
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.ParkingEntry}
// @Failure      500  {object}  response.Response
// @Router       /api/entries/overstays [get]
func (h *EntryHandler) ListOverstays(c *gin.Context) {
	entries, err := h.entryService.ListOverstays(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch overstays"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// GetEntry returns one parking entry by ID
// @Summary      Get parking entry
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=model.ParkingEntry}
// @Failure      404  {object}  response.Response
// @Router       /api/entries/{id} [get]
func (h *EntryHandler) GetEntry(c *gin.Context) {
	entry, err := h.entryService.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// PrintTicket returns the print-ready entry ticket payload
// @Summary      Print entry ticket
// @Description  Returns the ticket content for the printing client; reprints are allowed
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=service.TicketPayload}
// @Failure      404  {object}  response.Response
// @Router       /api/entries/{id}/ticket [get]
func (h *EntryHandler) PrintTicket(c *gin.Context) {
	ticket, err := h.ticketService.EntryTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ticket))
}

// PrintReceipt returns the print-ready exit receipt payload
// @Summary      Print exit receipt
// @Description  Returns the itemized receipt for a completed entry
// @Tags         entries
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Entry ID"
// @Success      200  {object}  response.Response{data=service.ReceiptPayload}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/entries/{id}/receipt [get]
func (h *EntryHandler) PrintReceipt(c *gin.Context) {
	receipt, err := h.ticketService.ExitReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		case errors.Is(err, service.ErrEntryStillParked):
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
		default:
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, receipt))
}

// currentUserID pulls the authenticated user's ID set by RequireRole
func currentUserID(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
