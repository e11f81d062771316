package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/middleware"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	appErrors "github.com/noah-isme/sigcom-backoffice-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func newContext(method, target, body string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleOfficeAdmin})
	return c, w
}

type leaveServiceStub struct {
	leaveService
	created     dto.CreateLeaveRequest
	createErr   error
	returnedID  string
	permissions *dto.ValidatePermissionsResponse
}

func (s *leaveServiceStub) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateLeaveRequest) (*models.LeaveApplication, error) {
	s.created = req
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.LeaveApplication{ID: "leave-1", EmployeeID: req.EmployeeID, Status: models.LeaveStatusOnLeave}, nil
}

func (s *leaveServiceStub) MarkReturned(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveApplication, error) {
	s.returnedID = id
	return &models.LeaveApplication{ID: id, Status: models.LeaveStatusReturned}, nil
}

func (s *leaveServiceStub) ValidatePermissions(ctx context.Context, req dto.ValidatePermissionsRequest) (*dto.ValidatePermissionsResponse, error) {
	return s.permissions, nil
}

type balanceServiceStub struct {
	leaveBalanceService
	year int
}

func (s *balanceServiceStub) Get(ctx context.Context, actor *models.JWTClaims, employeeID string, year int) (*models.LeaveBalance, error) {
	s.year = year
	return &models.LeaveBalance{EmployeeID: employeeID, Year: year}, nil
}

func TestLeaveHandlerCreate(t *testing.T) {
	svc := &leaveServiceStub{}
	h := NewLeaveHandler(svc, &balanceServiceStub{})

	c, w := newContext(http.MethodPost, "/leaves", `{"employeeId":"emp-1","leaveType":"CASUAL","startDate":"2024-03-04","endDate":"2024-03-08"}`, nil)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "emp-1", svc.created.EmployeeID)
	assert.True(t, decode(t, w).Success)

	c, w = newContext(http.MethodPost, "/leaves", `{"employeeId":`, nil)
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)

	svc.createErr = appErrors.Clone(appErrors.ErrInsufficientBalance, "Insufficient CL balance. Required: 5, Available: 3")
	c, w = newContext(http.MethodPost, "/leaves", `{"employeeId":"emp-1"}`, nil)
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "INSUFFICIENT_BALANCE", env.Error.Code)
	assert.Equal(t, "Insufficient CL balance. Required: 5, Available: 3", env.Message)
}

func TestLeaveHandlerMarkReturnedUsesPathID(t *testing.T) {
	svc := &leaveServiceStub{}
	h := NewLeaveHandler(svc, &balanceServiceStub{})

	c, w := newContext(http.MethodPut, "/leaves/leave-9/return", "", gin.Params{{Key: "id", Value: "leave-9"}})
	h.MarkReturned(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "leave-9", svc.returnedID)
}

func TestLeaveHandlerBalanceYear(t *testing.T) {
	balances := &balanceServiceStub{}
	h := NewLeaveHandler(&leaveServiceStub{}, balances)
	h.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
	params := gin.Params{{Key: "employeeId", Value: "emp-1"}}

	c, w := newContext(http.MethodGet, "/leaves/balance/emp-1", "", params)
	h.Balance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2025, balances.year)

	c, w = newContext(http.MethodGet, "/leaves/balance/emp-1?year=2024", "", params)
	h.Balance(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, balances.year)

	c, w = newContext(http.MethodGet, "/leaves/balance/emp-1?year=abc", "", params)
	h.Balance(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeaveHandlerValidatePermissions(t *testing.T) {
	svc := &leaveServiceStub{permissions: &dto.ValidatePermissionsResponse{
		Valid: false,
		Dates: []models.PermissionDateCheck{{Date: models.MustParseDate("2024-03-06"), Valid: false, Reason: "not a weekend or gazetted holiday"}},
	}}
	h := NewLeaveHandler(svc, &balanceServiceStub{})

	c, w := newContext(http.MethodPost, "/leaves/validate-permissions", `{"dates":["2024-03-06"]}`, nil)
	h.ValidatePermissions(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}

type gateDutyServiceStub struct {
	gateDutyService
	result    *dto.ReplacementResult
	roster    *models.MonthRoster
	deleted   dto.ReplacementKeyQuery
	exportReq dto.RosterQuery
}

func (s *gateDutyServiceStub) Replace(ctx context.Context, actor *models.JWTClaims, req dto.ReplacementRequest) (*dto.ReplacementResult, error) {
	return s.result, nil
}

func (s *gateDutyServiceStub) DeleteReplacement(ctx context.Context, actor *models.JWTClaims, q dto.ReplacementKeyQuery) error {
	s.deleted = q
	return nil
}

func (s *gateDutyServiceStub) Roster(ctx context.Context, year, month int) (*models.MonthRoster, error) {
	return s.roster, nil
}

func (s *gateDutyServiceStub) ExportRoster(ctx context.Context, q dto.RosterQuery) (*dto.RosterExport, error) {
	s.exportReq = q
	return &dto.RosterExport{FileName: "gate-duty-2024-03.csv", ContentType: "text/csv", Body: []byte("Date,Day\n")}, nil
}

type availabilityStub struct {
	availabilityService
}

func (availabilityStub) Check(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error) {
	return &models.Availability{EmployeeID: employeeID, Date: date, Available: false, OnLeave: true}, nil
}

func TestGateDutyHandlerReplaceWarning(t *testing.T) {
	svc := &gateDutyServiceStub{result: &dto.ReplacementResult{
		Applied: false,
		Warning: &dto.ReplacementWarning{Code: "ON_LEAVE", Message: "Arjun is on leave from 2024-03-10 to 2024-03-20"},
	}}
	h := NewGateDutyHandler(svc, availabilityStub{})

	c, w := newContext(http.MethodPost, "/gate-duty/replacement", `{"date":15,"month":3,"year":2024,"slot":"main_gate_morning","replacementEmployeeId":"emp-2","reason":"leave"}`, nil)
	h.Replace(c)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "AVAILABILITY_CONFLICT", env.Error.Code)
	assert.Contains(t, string(env.Data), `"applied":false`)

	svc.result = &dto.ReplacementResult{Applied: true, Warning: svc.result.Warning, Replacement: &models.GateDutyReplacement{ID: "rep-1"}}
	c, w = newContext(http.MethodPost, "/gate-duty/replacement", `{"force":true}`, nil)
	h.Replace(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestGateDutyHandlerDeleteReplacementParams(t *testing.T) {
	svc := &gateDutyServiceStub{}
	h := NewGateDutyHandler(svc, availabilityStub{})

	params := gin.Params{{Key: "date", Value: "15"}, {Key: "month", Value: "3"}, {Key: "year", Value: "2024"}, {Key: "slot", Value: "main_gate_morning"}}
	c, w := newContext(http.MethodDelete, "/gate-duty/replacement/15/3/2024/main_gate_morning", "", params)
	h.DeleteReplacement(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, dto.ReplacementKeyQuery{Date: 15, Month: 3, Year: 2024, Slot: "main_gate_morning"}, svc.deleted)

	params[1].Value = "march"
	c, w = newContext(http.MethodDelete, "/gate-duty/replacement/15/march/2024/main_gate_morning", "", params)
	h.DeleteReplacement(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGateDutyHandlerRosterReportsCacheHit(t *testing.T) {
	svc := &gateDutyServiceStub{roster: &models.MonthRoster{Year: 2024, Month: 3, Cached: true}}
	h := NewGateDutyHandler(svc, availabilityStub{})

	c, w := newContext(http.MethodGet, "/gate-duty/roster/2024/3", "", gin.Params{{Key: "year", Value: "2024"}, {Key: "month", Value: "3"}})
	h.Roster(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Meta["cache_hit"])
}

func TestGateDutyHandlerExportRoster(t *testing.T) {
	svc := &gateDutyServiceStub{}
	h := NewGateDutyHandler(svc, availabilityStub{})

	c, w := newContext(http.MethodGet, "/gate-duty/roster/2024/3/export?format=csv", "", gin.Params{{Key: "year", Value: "2024"}, {Key: "month", Value: "3"}})
	h.ExportRoster(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "gate-duty-2024-03.csv")
	assert.Equal(t, dto.RosterQuery{Year: 2024, Month: 3, Format: "csv"}, svc.exportReq)
}

func TestGateDutyHandlerCheckAvailability(t *testing.T) {
	h := NewGateDutyHandler(&gateDutyServiceStub{}, availabilityStub{})

	c, w := newContext(http.MethodGet, "/gate-duty/check-availability/emp-1/2024-03-15", "", gin.Params{{Key: "employeeId", Value: "emp-1"}, {Key: "date", Value: "2024-03-15"}})
	h.CheckAvailability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":false`)

	c, w = newContext(http.MethodGet, "/gate-duty/check-availability/emp-1/15-03-2024", "", gin.Params{{Key: "employeeId", Value: "emp-1"}, {Key: "date", Value: "15-03-2024"}})
	h.CheckAvailability(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type outDutyServiceStub struct {
	outDutyService
	closeReq dto.CloseOutDutyRequest
}

func (s *outDutyServiceStub) Return(ctx context.Context, actor *models.JWTClaims, id string, req dto.CloseOutDutyRequest) (*models.OutDuty, error) {
	s.closeReq = req
	return &models.OutDuty{ID: id, Status: models.OutDutyReturned}, nil
}

func TestOutDutyHandlerReturnAcceptsEmptyBody(t *testing.T) {
	svc := &outDutyServiceStub{}
	h := NewOutDutyHandler(svc, availabilityStub{})
	params := gin.Params{{Key: "id", Value: "od-1"}}

	c, w := newContext(http.MethodPut, "/out-duty/od-1/return", "", params)
	h.Return(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.closeReq.ActualReturnDate)

	c, w = newContext(http.MethodPut, "/out-duty/od-1/return", `{"actualReturnDate":"2024-03-22"}`, params)
	h.Return(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-22", svc.closeReq.ActualReturnDate)
}

type outDutyAvailabilityStub struct {
	availabilityService
	actor *models.JWTClaims
}

func (s *outDutyAvailabilityStub) CheckOutDuty(ctx context.Context, actor *models.JWTClaims, employeeID string, date models.Date) (*models.Availability, error) {
	s.actor = actor
	if actor.Role == models.RoleUnitIncharge && actor.AssignedUnit != "unit-a" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employee belongs to another unit")
	}
	return &models.Availability{EmployeeID: employeeID, Date: date, Available: true}, nil
}

func TestOutDutyHandlerCheckAvailabilityPassesCaller(t *testing.T) {
	availability := &outDutyAvailabilityStub{}
	h := NewOutDutyHandler(&outDutyServiceStub{}, availability)
	params := gin.Params{{Key: "employeeId", Value: "emp-1"}, {Key: "date", Value: "2024-03-15"}}

	c, w := newContext(http.MethodGet, "/out-duty/check-availability/emp-1/2024-03-15", "", params)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inch-1", Role: models.RoleUnitIncharge, AssignedUnit: "unit-b"})
	h.CheckAvailability(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, availability.actor)
	assert.Equal(t, "inch-1", availability.actor.UserID)

	c, w = newContext(http.MethodGet, "/out-duty/check-availability/emp-1/2024-03-15", "", params)
	h.CheckAvailability(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", availability.actor.UserID)
}

type authServiceStub struct{}

func (authServiceStub) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", User: models.UserInfo{Username: req.Username}}, nil
}

func (authServiceStub) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(authServiceStub{})

	c, w := newContext(http.MethodPost, "/auth/login", `{"username":"admin","password":"secret"}`, nil)
	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"token"`)

	c, w = newContext(http.MethodPost, "/auth/login", `{"username":"admin","password":"nope"}`, nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newContext(http.MethodGet, "/auth/me", "", nil)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"admin-1"`)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
