package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/middleware"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

type gateDutyService interface {
	ListByYear(ctx context.Context, year int) ([]models.GateDuty, error)
	Setup(ctx context.Context, actor *models.JWTClaims, req dto.GateDutySetupRequest) ([]models.GateDuty, error)
	UpdateSlot(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateSlotRequest) (*models.GateDuty, error)
	Replace(ctx context.Context, actor *models.JWTClaims, req dto.ReplacementRequest) (*dto.ReplacementResult, error)
	DeleteReplacement(ctx context.Context, actor *models.JWTClaims, q dto.ReplacementKeyQuery) error
	ListReplacements(ctx context.Context, year, month int) ([]models.GateDutyReplacement, error)
	Roster(ctx context.Context, year, month int) (*models.MonthRoster, error)
	ExportRoster(ctx context.Context, q dto.RosterQuery) (*dto.RosterExport, error)
	EmployeeDuties(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) ([]models.EmployeeDuty, error)
}

type availabilityService interface {
	Check(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error)
	CheckOutDuty(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error)
}

// GateDutyHandler exposes roster setup, replacements and availability.
type GateDutyHandler struct {
	duties       gateDutyService
	availability availabilityService
}

// NewGateDutyHandler builds a GateDutyHandler.
func NewGateDutyHandler(duties gateDutyService, availability availabilityService) *GateDutyHandler {
	return &GateDutyHandler{duties: duties, availability: availability}
}

// Setup godoc
// @Summary Bulk upsert the permanent roster of a year
// @Tags GateDuty
// @Accept json
// @Produce json
// @Param payload body dto.GateDutySetupRequest true "Roster"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/setup [post]
func (h *GateDutyHandler) Setup(c *gin.Context) {
	var req dto.GateDutySetupRequest
	if !bindJSON(c, &req, "invalid roster payload") {
		return
	}
	duties, err := h.duties.Setup(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duties, nil)
}

// UpdateSlot godoc
// @Summary Set or clear one slot of a roster day
// @Tags GateDuty
// @Accept json
// @Produce json
// @Param id path string true "Gate duty ID"
// @Param payload body dto.UpdateSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/setup/{id}/slot [put]
func (h *GateDutyHandler) UpdateSlot(c *gin.Context) {
	var req dto.UpdateSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	duty, err := h.duties.UpdateSlot(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duty, nil)
}

// ListByYear godoc
// @Summary Permanent roster of a year
// @Tags GateDuty
// @Produce json
// @Param year path int true "Year"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/setup/{year} [get]
func (h *GateDutyHandler) ListByYear(c *gin.Context) {
	year, ok := intParam(c, "year")
	if !ok {
		return
	}
	duties, err := h.duties.ListByYear(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duties, nil)
}

// Replace godoc
// @Summary Override one slot for one month
// @Description Returns 409 with the conflict when the candidate is unavailable and force is not set
// @Tags GateDuty
// @Accept json
// @Produce json
// @Param payload body dto.ReplacementRequest true "Replacement"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /gate-duty/replacement [post]
func (h *GateDutyHandler) Replace(c *gin.Context) {
	var req dto.ReplacementRequest
	if !bindJSON(c, &req, "invalid replacement payload") {
		return
	}
	result, err := h.duties.Replace(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Applied && result.Warning != nil {
		response.Warning(c, appErrors.Clone(appErrors.ErrAvailabilityConflict, result.Warning.Message), result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteReplacement godoc
// @Summary Remove a monthly override
// @Tags GateDuty
// @Param date path int true "Day of month"
// @Param month path int true "Month"
// @Param year path int true "Year"
// @Param slot path string true "Slot key"
// @Success 204
// @Router /gate-duty/replacement/{date}/{month}/{year}/{slot} [delete]
func (h *GateDutyHandler) DeleteReplacement(c *gin.Context) {
	var q dto.ReplacementKeyQuery
	var ok bool
	if q.Date, ok = intParam(c, "date"); !ok {
		return
	}
	if q.Month, ok = intParam(c, "month"); !ok {
		return
	}
	if q.Year, ok = intParam(c, "year"); !ok {
		return
	}
	q.Slot = c.Param("slot")
	if err := h.duties.DeleteReplacement(c.Request.Context(), claimsFromContext(c), q); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *GateDutyHandler) yearMonth(c *gin.Context) (int, int, bool) {
	year, ok := intParam(c, "year")
	if !ok {
		return 0, 0, false
	}
	month, ok := intParam(c, "month")
	if !ok {
		return 0, 0, false
	}
	return year, month, true
}

// ListReplacements godoc
// @Summary Replacements of a month
// @Tags GateDuty
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/replacement/{year}/{month} [get]
func (h *GateDutyHandler) ListReplacements(c *gin.Context) {
	year, month, ok := h.yearMonth(c)
	if !ok {
		return
	}
	reps, err := h.duties.ListReplacements(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reps, nil)
}

// Roster godoc
// @Summary Effective roster of a month
// @Tags GateDuty
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/roster/{year}/{month} [get]
func (h *GateDutyHandler) Roster(c *gin.Context) {
	year, month, ok := h.yearMonth(c)
	if !ok {
		return
	}
	roster, err := h.duties.Roster(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, roster.Cached)
	response.JSON(c, http.StatusOK, roster, nil, middleware.Meta(c))
}

// ExportRoster godoc
// @Summary Download the effective roster of a month
// @Tags GateDuty
// @Produce text/csv
// @Produce application/pdf
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /gate-duty/roster/{year}/{month}/export [get]
func (h *GateDutyHandler) ExportRoster(c *gin.Context) {
	year, month, ok := h.yearMonth(c)
	if !ok {
		return
	}
	doc, err := h.duties.ExportRoster(c.Request.Context(), dto.RosterQuery{Year: year, Month: month, Format: c.Query("format")})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

// EmployeeDuties godoc
// @Summary Slots an employee mans on a date
// @Tags GateDuty
// @Produce json
// @Param employeeId path string true "Employee"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/employee/{employeeId}/{date} [get]
func (h *GateDutyHandler) EmployeeDuties(c *gin.Context) {
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}
	duties, err := h.duties.EmployeeDuties(c.Request.Context(), claimsFromContext(c), c.Param("employeeId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, duties, nil)
}

// CheckAvailability godoc
// @Summary Leave and out-duty availability of an employee
// @Tags GateDuty
// @Produce json
// @Param employeeId path string true "Employee"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /gate-duty/check-availability/{employeeId}/{date} [get]
func (h *GateDutyHandler) CheckAvailability(c *gin.Context) {
	date, ok := dateParam(c, "date")
	if !ok {
		return
	}
	result, err := h.availability.Check(c.Request.Context(), claimsFromContext(c), c.Param("employeeId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
