package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sigcom-backoffice-api/internal/handler"
	"github.com/noah-isme/sigcom-backoffice-api/internal/middleware"
	"github.com/noah-isme/sigcom-backoffice-api/internal/service"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/config"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sigcom-backoffice-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sigcom-backoffice-api/pkg/middleware/requestid"
)

// NewEngine returns a gin engine with the process-wide middleware installed:
// panic recovery, request IDs, request logging and CORS.
func NewEngine(logr *zap.Logger, cors config.CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cors))
	return r
}

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth      *handler.AuthHandler
	Leave     *handler.LeaveHandler
	GateDuty  *handler.GateDutyHandler
	OutDuty   *handler.OutDutyHandler
	Directory *handler.DirectoryHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the cross-cutting collaborators of the router.
type Options struct {
	Prefix       string
	Tokens       middleware.TokenValidator
	Policy       *middleware.Policy
	Metrics      *service.MetricsService
	LoginLimiter *middleware.IPRateLimiter
}

// Register mounts every route on r. Each protected route declares its
// {resource, action} pair exactly once here.
func Register(r *gin.Engine, h Handlers, opts Options) {
	r.Use(middleware.Metrics(opts.Metrics), middleware.ResponseMeta(), middleware.AuditContext())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(opts.Prefix)
	api.POST("/auth/login", middleware.RateLimitByIP(opts.LoginLimiter), h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))
	secured.GET("/auth/me", h.Auth.Me)

	p := opts.Policy

	leaves := secured.Group("/leaves")
	leaves.GET("", p.Authorize(middleware.ResourceLeave, middleware.ActionRead), h.Leave.List)
	leaves.GET("/current", p.Authorize(middleware.ResourceLeave, middleware.ActionRead), h.Leave.Current)
	leaves.GET("/:id", p.Authorize(middleware.ResourceLeave, middleware.ActionRead), h.Leave.Get)
	leaves.POST("", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.Create)
	leaves.POST("/requests", p.Authorize(middleware.ResourceLeave, middleware.ActionRequest), h.Leave.Request)
	leaves.POST("/validate-permissions", p.Authorize(middleware.ResourceLeave, middleware.ActionRead), h.Leave.ValidatePermissions)
	leaves.PUT("/:id", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.Edit)
	leaves.PUT("/:id/extend", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.Extend)
	leaves.PUT("/:id/add-medical", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.AddMedical)
	leaves.PUT("/:id/extend-medical", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.ExtendMedical)
	leaves.PUT("/:id/return", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.MarkReturned)
	leaves.PUT("/:id/cancel", p.Authorize(middleware.ResourceLeave, middleware.ActionWrite), h.Leave.Cancel)
	leaves.PUT("/:id/approve-medical", p.Authorize(middleware.ResourceLeave, middleware.ActionApprove), h.Leave.ApproveMedical)
	leaves.PUT("/:id/decision", p.Authorize(middleware.ResourceLeave, middleware.ActionApprove), h.Leave.Decide)
	leaves.GET("/balance/:employeeId", p.Authorize(middleware.ResourceLeaveBalance, middleware.ActionRead), h.Leave.Balance)
	leaves.PUT("/balance/:employeeId", p.Authorize(middleware.ResourceLeaveBalance, middleware.ActionWrite), h.Leave.UpdateBalance)

	gate := secured.Group("/gate-duty")
	gate.POST("/setup", p.Authorize(middleware.ResourceGateDuty, middleware.ActionWrite), h.GateDuty.Setup)
	gate.PUT("/setup/:id/slot", p.Authorize(middleware.ResourceGateDuty, middleware.ActionWrite), h.GateDuty.UpdateSlot)
	gate.GET("/setup/:year", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.ListByYear)
	gate.POST("/replacement", p.Authorize(middleware.ResourceGateDuty, middleware.ActionWrite), h.GateDuty.Replace)
	gate.DELETE("/replacement/:date/:month/:year/:slot", p.Authorize(middleware.ResourceGateDuty, middleware.ActionWrite), h.GateDuty.DeleteReplacement)
	gate.GET("/replacement/:year/:month", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.ListReplacements)
	gate.GET("/roster/:year/:month", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.Roster)
	gate.GET("/roster/:year/:month/export", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.ExportRoster)
	gate.GET("/employee/:employeeId/:date", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.EmployeeDuties)
	gate.GET("/check-availability/:employeeId/:date", p.Authorize(middleware.ResourceGateDuty, middleware.ActionRead), h.GateDuty.CheckAvailability)

	out := secured.Group("/out-duty")
	out.GET("", p.Authorize(middleware.ResourceOutDuty, middleware.ActionRead), h.OutDuty.List)
	out.GET("/:id", p.Authorize(middleware.ResourceOutDuty, middleware.ActionRead), h.OutDuty.Get)
	out.POST("", p.Authorize(middleware.ResourceOutDuty, middleware.ActionWrite), h.OutDuty.Create)
	out.PUT("/:id/return", p.Authorize(middleware.ResourceOutDuty, middleware.ActionWrite), h.OutDuty.Return)
	out.PUT("/:id/cancel", p.Authorize(middleware.ResourceOutDuty, middleware.ActionWrite), h.OutDuty.Cancel)
	out.GET("/check-availability/:employeeId/:date", p.Authorize(middleware.ResourceOutDuty, middleware.ActionRead), h.OutDuty.CheckAvailability)

	secured.GET("/holidays", p.Authorize(middleware.ResourceHoliday, middleware.ActionRead), h.Directory.ListHolidays)
	secured.POST("/holidays", p.Authorize(middleware.ResourceHoliday, middleware.ActionWrite), h.Directory.CreateHoliday)
	secured.DELETE("/holidays/:id", p.Authorize(middleware.ResourceHoliday, middleware.ActionWrite), h.Directory.DeactivateHoliday)
	secured.GET("/employees", p.Authorize(middleware.ResourceEmployee, middleware.ActionRead), h.Directory.ListEmployees)
	secured.GET("/employees/:id", p.Authorize(middleware.ResourceEmployee, middleware.ActionRead), h.Directory.GetEmployee)
}
