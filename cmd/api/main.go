package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/microcourses/lms-api/api/swagger"
	"github.com/microcourses/lms-api/internal/handler"
	"github.com/microcourses/lms-api/internal/middleware"
	"github.com/microcourses/lms-api/internal/models"
	"github.com/microcourses/lms-api/internal/repository"
	"github.com/microcourses/lms-api/internal/service"
	"github.com/microcourses/lms-api/pkg/cache"
	"github.com/microcourses/lms-api/pkg/config"
	"github.com/microcourses/lms-api/pkg/database"
	"github.com/microcourses/lms-api/pkg/logger"
	corsmiddleware "github.com/microcourses/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/microcourses/lms-api/pkg/middleware/requestid"
)

// @title MicroCourses API
// @version 1.0.0
// @description Course authoring, enrollment, progress and certificate backend
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var idempotencyStore service.IdempotencyRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		idempotencyStore = repository.NewRedisIdempotencyRepository(client)
	} else {
		idempotencyStore = repository.NewMemoryIdempotencyRepository(cfg.Idempotency.SweepInterval)
		logr.Sugar().Infow("redis disabled, using in-memory idempotency store")
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	metricsSvc := service.NewMetricsService()
	idempotencySvc := service.NewIdempotencyService(idempotencyStore, cfg.Idempotency.TTL, metricsSvc, logr)
	defer idempotencySvc.Close() //nolint:errcheck

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, logr)
	certificateSvc := service.NewCertificateService(certificateRepo, enrollmentRepo, logr)
	userSvc := service.NewUserService(userRepo, courseRepo, logr)

	userSvc.EnsureAdmin(context.Background(), cfg.Admin.Email, cfg.Admin.Password)
	if cfg.SeedDemo {
		userSvc.SeedDemo(context.Background(), cfg.Admin.Email)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	adminHandler := handler.NewAdminHandler(courseSvc, userSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, idempotencySvc,
		authHandler, courseHandler, enrollmentHandler, certificateHandler, adminHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	idempotencySvc *service.IdempotencyService,
	authHandler *handler.AuthHandler,
	courseHandler *handler.CourseHandler,
	enrollmentHandler *handler.EnrollmentHandler,
	certificateHandler *handler.CertificateHandler,
	adminHandler *handler.AdminHandler,
) {
	api := r.Group(cfg.APIPrefix)

	// Every POST under the API prefix goes through the idempotency gate
	// before auth runs, so a missing key is a 400 even on routes that
	// would otherwise reject the caller.
	api.Use(middleware.Idempotency(idempotencySvc))

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	api.GET("/courses", courseHandler.List)
	api.GET("/courses/:id", courseHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	creator := authed.Group("")
	creator.Use(middleware.RequireRoles(models.RoleCreator, models.RoleAdmin), middleware.RequireApprovedCreator())
	creator.POST("/courses", courseHandler.Create)
	creator.PUT("/courses/:id", courseHandler.Update)
	creator.POST("/courses/:id/lessons", courseHandler.AddLesson)
	creator.GET("/creator/courses", courseHandler.MyCourses)

	learner := authed.Group("")
	learner.Use(middleware.RequireRoles(models.RoleLearner))
	learner.POST("/enroll/:courseId", enrollmentHandler.Enroll)
	learner.PUT("/progress/:lessonId", enrollmentHandler.UpdateProgress)
	learner.GET("/progress", enrollmentHandler.ListProgress)

	learner.POST("/certificate/:courseId", certificateHandler.Issue)
	learner.GET("/certificates", certificateHandler.List)
	authed.GET("/certificates/:id/download", certificateHandler.Download)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/courses", adminHandler.ListCourses)
	admin.PUT("/courses/:id/status", adminHandler.SetCourseStatus)
	admin.GET("/creator-applications", adminHandler.ListCreatorApplications)
	admin.PUT("/creator-applications/:id", adminHandler.ApproveCreator)
}
