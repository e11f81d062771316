package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "github.com/noah-isme/sigcom-backoffice-api/api/swagger"
	"github.com/noah-isme/sigcom-backoffice-api/internal/dto"
	"github.com/noah-isme/sigcom-backoffice-api/internal/handler"
	"github.com/noah-isme/sigcom-backoffice-api/internal/middleware"
	"github.com/noah-isme/sigcom-backoffice-api/internal/models"
	"github.com/noah-isme/sigcom-backoffice-api/internal/repository"
	"github.com/noah-isme/sigcom-backoffice-api/internal/router"
	"github.com/noah-isme/sigcom-backoffice-api/internal/service"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/cache"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/config"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/database"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/export"
	"github.com/noah-isme/sigcom-backoffice-api/pkg/logger"
)

// @title Signal Establishment Back Office API
// @version 1.0.0
// @description Leave ledger, gate-duty roster and out-duty tracking
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.NewPostgres(ctx, cfg.Database)
	cancel()
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := dto.NewValidator()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.NewRedis(ctx, cfg.Redis)
		cancel()
		if err != nil {
			logr.Warn("redis unavailable, roster cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.GateDuty.RosterCacheTTL, logr, cacheRepo != nil)

	users := repository.NewUserRepository(db)
	employees := repository.NewEmployeeRepository(db)
	holidays := repository.NewHolidayRepository(db)
	leaves := repository.NewLeaveRepository(db)
	balances := repository.NewLeaveBalanceRepository(db)
	gateDuties := repository.NewGateDutyRepository(db)
	replacements := repository.NewReplacementRepository(db)
	outDuties := repository.NewOutDutyRepository(db)

	audit := service.NewAuditService(repository.NewAuditRepository(db), logr)
	defaults := models.BalanceDefaults{
		Casual:      cfg.Leave.CasualDays,
		Permissions: cfg.Leave.PermissionDays,
		Restricted:  cfg.Leave.RestrictedDays,
		ChildCare:   cfg.Leave.ChildCareDays,
		Maternity:   cfg.Leave.MaternityDays,
	}

	authSvc := service.NewAuthService(users, audit, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	employeeSvc := service.NewEmployeeService(employees, validate, logr)
	holidaySvc := service.NewHolidayService(holidays, audit, validate, logr)
	balanceSvc := service.NewLeaveBalanceService(balances, leaves, employees, defaults, audit, validate, logr)
	leaveSvc := service.NewLeaveService(leaves, employees, holidays, audit, metrics, validate, logr, service.LeaveConfig{
		Defaults: defaults,
		Location: cfg.Location(),
	})
	availabilitySvc := service.NewAvailabilityService(leaves, outDuties, employees)
	gateDutySvc := service.NewGateDutyService(gateDuties, replacements, employees, availabilitySvc, service.GateDutyConfig{
		Cache:     cacheSvc,
		Metrics:   metrics,
		Audit:     audit,
		Exporters: []service.RosterExporter{export.NewCSVExporter(), export.NewPDFExporter("Gate duty roster")},
		RosterTTL: cfg.GateDuty.RosterCacheTTL,
	}, validate, logr)
	outDutySvc := service.NewOutDutyService(outDuties, employees, audit, validate, logr, cfg.Location())

	policy, err := middleware.NewPolicy(middleware.DefaultPolicy)
	if err != nil {
		logr.Fatal("failed to load authorization policy", zap.Error(err))
	}

	r := router.NewEngine(logr, cfg.CORS)

	router.Register(r, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Leave:     handler.NewLeaveHandler(leaveSvc, balanceSvc),
		GateDuty:  handler.NewGateDutyHandler(gateDutySvc, availabilitySvc),
		OutDuty:   handler.NewOutDutyHandler(outDutySvc, availabilitySvc),
		Directory: handler.NewDirectoryHandler(holidaySvc, employeeSvc),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	}, router.Options{
		Prefix:       cfg.APIPrefix,
		Tokens:       authSvc,
		Policy:       policy,
		Metrics:      metrics,
		LoginLimiter: middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.LoginPerSecond), cfg.RateLimit.LoginBurst),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
