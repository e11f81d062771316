package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

type outDutyService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateOutDutyRequest) (*models.OutDuty, error)
	Return(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.OutDuty, error)
	List(ctx context.Context, actor *models.JWTClaims, q dto.OutDutyListQuery) ([]models.OutDuty, *models.Pagination, error)
}

// OutDutyHandler exposes the out-duty tracker.
type OutDutyHandler struct {
	service      outDutyService
	availability availabilityService
}

// NewOutDutyHandler builds an OutDutyHandler.
func NewOutDutyHandler(service outDutyService, availability availabilityService) *OutDutyHandler {
	return &OutDutyHandler{service: service, availability: availability}
}

// Create godoc
// @Summary Record an employee leaving on duty
// @Tags OutDuty
// @Accept json
// @Produce json
// @Param payload body dto.CreateOutDutyRequest true "Out duty"
// @Success 201 {object} response.Envelope
// @Router /out-duty [post]
func (h *OutDutyHandler) Create(c *gin.Context) {
	var req dto.CreateOutDutyRequest
	if !bindJSON(c, &req, "invalid out-duty payload") {
		return
	}
	duty, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, duty)
}

// Return godoc
// @Summary Close an out-duty as returned
// @Tags OutDuty
// @Accept json
// @Produce json
// @Param id path string true "Out duty ID"
// @Param payload body dto.CloseOutDutyRequest false "Return details"
// @Success 200 {object} response.Envelope
// @Router /out-duty/{id}/return [put]
func (h *OutDutyHandler) Return(c *gin.Context) {
	h.close(c, h.service.Return)
}

// Cancel godoc
// @Summary Cancel an out-duty
// @Tags OutDuty
// @Accept json
// @Produce json
// @Param id path string true "Out duty ID"
// @Param payload body dto.CloseOutDutyRequest false "Remarks"
// @Success 200 {object} response.Envelope
// @Router /out-duty/{id}/cancel [put]
func (h *OutDutyHandler) Cancel(c *gin.Context) {
	h.close(c, h.service.Cancel)
}

func (h *OutDutyHandler) close(c *gin.Context, fn func(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error)) {
	var req dto.CloseOutDutyRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid out-duty payload") {
		return
	}
	duty, err := fn(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duty, nil)
}

// Get godoc
// @Summary Get an out-duty record
// @Tags OutDuty
// @Produce json
// @Param id path string true "Out duty ID"
// @Success 200 {object} response.Envelope
// @Router /out-duty/{id} [get]
func (h *OutDutyHandler) Get(c *gin.Context) {
	duty, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duty, nil)
}

// List godoc
// @Summary List out-duty records
// @Tags OutDuty
// @Produce json
// @Param employeeId query string false "Employee"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Router /out-duty [get]
func (h *OutDutyHandler) List(c *gin.Context) {
	var q dto.OutDutyListQuery
	if !bindQuery(c, &q) {
		return
	}
	duties, page, err := h.service.List(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duties, page)
}

// CheckAvailability godoc
// @Summary Whether an employee is out on duty on a date
// @Tags OutDuty
// @Produce json
// @Param employeeId path string true "Employee"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /out-duty/check-availability/{employeeId}/{date} [get]
func (h *OutDutyHandler) CheckAvailability(c *gin.Context) {
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}
	result, err := h.availability.CheckOutDuty(c.Request.Context(), claimsFromContext(c), c.Param("employeeId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
