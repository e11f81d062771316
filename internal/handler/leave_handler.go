package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/response"
)

type leaveService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.LeaveApplication, error)
	Request(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.LeaveApplication, error)
	Decide(ctx context.Context, actor *models.JWTClaims, id string, req dto.LeaveDecisionRequest) (*models.LeaveApplication, error)
	Edit(ctx context.Context, actor *models.JWTClaims, id string, req dto.EditLeaveRequest) (*models.LeaveApplication, error)
	Extend(ctx context.Context, actor *models.JWTClaims, id string, req dto.ExtendLeaveRequest) (*models.LeaveApplication, error)
	AddMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.AddMedicalRequest) (*models.LeaveApplication, error)
	ExtendMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.ExtendMedicalRequest) (*models.LeaveApplication, error)
	MarkReturned(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error)
	Cancel(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error)
	ApproveMedical(ctx context.Context, actor *models.JWTClaims, id string, req dto.ApproveMedicalRequest) (*models.LeaveApplication, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error)
	List(ctx context.Context, actor *models.JWTClaims, q dto.LeaveListQuery) ([]models.LeaveApplication, *models.Pagination, error)
	Current(ctx context.Context, actor *models.JWTClaims) ([]models.LeaveApplication, error)
	ValidatePermissions(ctx context.Context, req dto.ValidatePermissionsRequest) (*dto.ValidatePermissionsResponse, error)
}

type leaveBalanceService interface {
	Get(ctx context.Context, actor *models.JWTClaims, employeeID string, year int) (*models.LeaveBalance, error)
	UpdateAllotment(ctx context.Context, actor *models.JWTClaims, employeeID string, req dto.UpdateBalanceRequest) (*models.LeaveBalance, error)
}

// LeaveHandler exposes the leave lifecycle and balance endpoints.
type LeaveHandler struct {
	leaves   leaveService
	balances leaveBalanceService
	now      func() time.Time
}

// NewLeaveHandler builds a LeaveHandler.
func NewLeaveHandler(leaves leaveService, balances leaveBalanceService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves, balances: balances, now: time.Now}
}

// Create godoc
// @Summary Record a leave
// @Description Creates an ON_LEAVE application and debits the balance ledger
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	leave, err := h.leaves.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Request godoc
// @Summary Request a leave for approval
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves/requests [post]
func (h *LeaveHandler) Request(c *gin.Context) {
	var req dto.CreateLeaveRequest
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	leave, err := h.leaves.Request(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// Decide godoc
// @Summary Approve or reject a pending leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.LeaveDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/decision [put]
func (h *LeaveHandler) Decide(c *gin.Context) {
	var req dto.LeaveDecisionRequest
	if !bindJSON(c, &req, "invalid decision payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.Decide(ctx, actor, id, req)
	})
}

// Edit godoc
// @Summary Edit an open leave
// @Description Restores the previous debit, re-validates and commits the new one
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.EditLeaveRequest true "Leave payload"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id} [put]
func (h *LeaveHandler) Edit(c *gin.Context) {
	var req dto.EditLeaveRequest
	if !bindJSON(c, &req, "invalid leave payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.Edit(ctx, actor, id, req)
	})
}

// Extend godoc
// @Summary Extend a casual leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.ExtendLeaveRequest true "Extension"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/extend [put]
func (h *LeaveHandler) Extend(c *gin.Context) {
	var req dto.ExtendLeaveRequest
	if !bindJSON(c, &req, "invalid extension payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.Extend(ctx, actor, id, req)
	})
}

// AddMedical godoc
// @Summary Attach medical rest to a leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.AddMedicalRequest true "Medical rest"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/add-medical [put]
func (h *LeaveHandler) AddMedical(c *gin.Context) {
	var req dto.AddMedicalRequest
	if !bindJSON(c, &req, "invalid medical payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.AddMedical(ctx, actor, id, req)
	})
}

// ExtendMedical godoc
// @Summary Extend medical rest
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.ExtendMedicalRequest true "Additional days"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/extend-medical [put]
func (h *LeaveHandler) ExtendMedical(c *gin.Context) {
	var req dto.ExtendMedicalRequest
	if !bindJSON(c, &req, "invalid medical payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.ExtendMedical(ctx, actor, id, req)
	})
}

// MarkReturned godoc
// @Summary Mark an employee returned from leave
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/return [put]
func (h *LeaveHandler) MarkReturned(c *gin.Context) {
	h.respond(c, h.leaves.MarkReturned)
}

// Cancel godoc
// @Summary Cancel a leave and restore its debit
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/cancel [put]
func (h *LeaveHandler) Cancel(c *gin.Context) {
	h.respond(c, h.leaves.Cancel)
}

// ApproveMedical godoc
// @Summary Settle the medical rest of a returned leave
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave ID"
// @Param payload body dto.ApproveMedicalRequest true "Conversion"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id}/approve-medical [put]
func (h *LeaveHandler) ApproveMedical(c *gin.Context) {
	var req dto.ApproveMedicalRequest
	if !bindJSON(c, &req, "invalid approval payload") {
		return
	}
	h.respond(c, func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
		return h.leaves.ApproveMedical(ctx, actor, id, req)
	})
}

// Get godoc
// @Summary Get a leave
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	h.respond(c, h.leaves.Get)
}

func (h *LeaveHandler) respond(c *gin.Context, fn func(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error)) {
	leave, err := fn(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// List godoc
// @Summary List leaves
// @Tags Leaves
// @Produce json
// @Param employeeId query string false "Employee"
// @Param status query string false "Status"
// @Param type query string false "Leave type"
// @Param from query string false "From date"
// @Param to query string false "To date"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	var q dto.LeaveListQuery
	if !bindQuery(c, &q) {
		return
	}
	leaves, page, err := h.leaves.List(c.Request.Context(), claimsFromContext(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, page)
}

// Current godoc
// @Summary Employees on leave today
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaves/current [get]
func (h *LeaveHandler) Current(c *gin.Context) {
	leaves, err := h.leaves.Current(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, nil)
}

// ValidatePermissions godoc
// @Summary Dry-run permission dates
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.ValidatePermissionsRequest true "Candidate dates"
// @Success 200 {object} response.Envelope
// @Router /leaves/validate-permissions [post]
func (h *LeaveHandler) ValidatePermissions(c *gin.Context) {
	var req dto.ValidatePermissionsRequest
	if !bindJSON(c, &req, "invalid permission payload") {
		return
	}
	res, err := h.leaves.ValidatePermissions(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Balance godoc
// @Summary Get or create a leave balance
// @Tags Leaves
// @Produce json
// @Param employeeId path string true "Employee"
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} response.Envelope
// @Router /leaves/balance/{employeeId} [get]
func (h *LeaveHandler) Balance(c *gin.Context) {
	year := h.now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "year must be a number"))
			return
		}
		year = parsed
	}
	balance, err := h.balances.Get(c.Request.Context(), claimsFromContext(c), c.Param("employeeId"), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}

// UpdateBalance godoc
// @Summary Set leave allotments
// @Tags Leaves
// @Accept json
// @Produce json
// @Param employeeId path string true "Employee"
// @Param payload body dto.UpdateBalanceRequest true "Allotments"
// @Success 200 {object} response.Envelope
// @Router /leaves/balance/{employeeId} [put]
func (h *LeaveHandler) UpdateBalance(c *gin.Context) {
	var req dto.UpdateBalanceRequest
	if !bindJSON(c, &req, "invalid balance payload") {
		return
	}
	balance, err := h.balances.UpdateAllotment(c.Request.Context(), claimsFromContext(c), c.Param("employeeId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, balance, nil)
}
