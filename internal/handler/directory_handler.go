package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

type holidayService interface {
	List(ctx context.Context, q dto.HolidayListQuery) ([]models.Holiday, error)
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateHolidayRequest) (*models.Holiday, error)
	Deactivate(ctx context.Context, actor *models.JWTClaims, id string) error
}

type employeeService interface {
	List(ctx context.Context, actor *models.JWTClaims, q dto.EmployeeListQuery) ([]models.Employee, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Employee, error)
}

// DirectoryHandler exposes the holiday calendar and employee directory.
type DirectoryHandler struct {
	holidays  holidayService
	employees employeeService
}

// NewDirectoryHandler builds a DirectoryHandler.
func NewDirectoryHandler(holidays holidayService, employees employeeService) *DirectoryHandler {
	return &DirectoryHandler{holidays: holidays, employees: employees}
}

// ListHolidays godoc
// @Summary List active holidays
// @Tags Directory
// @Produce json
// @Param year query int false "Year"
// @Param type query string false "GAZETTED or RESTRICTED"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *DirectoryHandler) ListHolidays(c *gin.Context) {
	var q dto.HolidayListQuery
	if !bindQuery(c, &q) {
		return
	}
	holidays, err := h.holidays.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// CreateHoliday godoc
// @Summary Add a holiday
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body dto.CreateHolidayRequest true "Holiday"
// @Success 201 {object} response.Envelope
// @Router /holidays [post]
func (h *DirectoryHandler) CreateHoliday(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if !bindJSON(c, &req, "invalid holiday payload") {
		return
	}
	holiday, err := h.holidays.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// DeactivateHoliday godoc
// @Summary Deactivate a holiday
// @Tags Directory
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *DirectoryHandler) DeactivateHoliday(c *gin.Context) {
	if err := h.holidays.Deactivate(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListEmployees godoc
// @Summary List employees
// @Tags Directory
// @Produce json
// @Param unitId query string false "Unit"
// @Param search query string false "Name or service number"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *DirectoryHandler) ListEmployees(c *gin.Context) {
	var q dto.EmployeeListQuery
	if !bindQuery(c, &q) {
		return
	}
	employees, page, err := h.employees.List(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, page)
}

// GetEmployee godoc
// @Summary Get an employee
// @Tags Directory
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *DirectoryHandler) GetEmployee(c *gin.Context) {
	employee, err := h.employees.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}
