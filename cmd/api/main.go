package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Anushervon04/university-crm-final/api/swagger"
	"github.com/Anushervon04/university-crm-final/internal/handler"
	"github.com/Anushervon04/university-crm-final/internal/middleware"
	"github.com/Anushervon04/university-crm-final/internal/models"
	"github.com/Anushervon04/university-crm-final/internal/repository"
	"github.com/Anushervon04/university-crm-final/internal/service"
	"github.com/Anushervon04/university-crm-final/pkg/cache"
	"github.com/Anushervon04/university-crm-final/pkg/config"
	"github.com/Anushervon04/university-crm-final/pkg/database"
	"github.com/Anushervon04/university-crm-final/pkg/jobs"
	"github.com/Anushervon04/university-crm-final/pkg/logger"
	corsmiddleware "github.com/Anushervon04/university-crm-final/pkg/middleware/cors"
	reqidmiddleware "github.com/Anushervon04/university-crm-final/pkg/middleware/requestid"
	"github.com/Anushervon04/university-crm-final/pkg/storage"
)

// @title University CRM API
// @version 1.0.0
// @description Role-based academic records service: journal, attendance points, dashboards and reports
// @BasePath /api/v1
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	location, err := time.LoadLocation(cfg.Journal.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid timezone, falling back to UTC", "timezone", cfg.Journal.Timezone)
		location = time.UTC
	}

	exportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "university-crm",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	catalogService := service.NewCatalogService(catalogRepo, groupRepo, validate, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, validate, logr)
	scheduleService := service.NewScheduleService(scheduleRepo, assignmentRepo, validate, logr)
	commentService := service.NewCommentService(commentRepo, studentRepo, validate, logr)
	journalService := service.NewJournalService(journalRepo, assignmentRepo, studentRepo, location, cfg.Journal.LockGrace, validate, logr)
	importService := service.NewImportService(journalService, studentRepo, logr)
	dashboardService := service.NewDashboardService(dashboardRepo, studentRepo, journalRepo, lessonRepo, cacheService, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
		LiveTTL:  cfg.Dashboard.LiveTTL,
		Location: location,
	})

	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportService := service.NewExportService(studentRepo, journalRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	reportWorker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	metricsService.RegisterQueueDepth("reports", reportQueue.Depth)
	reportService := service.NewReportService(reportRepo, assignmentRepo, reportQueue, exportService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: time.Hour,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	studentHandler := handler.NewStudentHandler(studentService, commentService, journalService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, scheduleService)
	journalHandler := handler.NewJournalHandler(journalService, importService, dashboardService, metricsService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	reportHandler := handler.NewReportHandler(reportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportQueue.Start(ctx)
	defer reportQueue.Stop()
	reportService.RecoverPendingJobs(ctx)
	reportService.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerRoutes(api, authService,
		authHandler, userHandler, studentHandler, catalogHandler,
		assignmentHandler, journalHandler, dashboardHandler, reportHandler, metricsHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func registerRoutes(
	api *gin.RouterGroup,
	authService *service.AuthService,
	auth *handler.AuthHandler,
	users *handler.UserHandler,
	students *handler.StudentHandler,
	catalog *handler.CatalogHandler,
	assignments *handler.AssignmentHandler,
	journal *handler.JournalHandler,
	dashboard *handler.DashboardHandler,
	reports *handler.ReportHandler,
	metrics *handler.MetricsHandler,
) {
	staff := []models.UserRole{models.RoleDean, models.RoleAdmin, models.RoleViceDean}
	everyone := []models.UserRole{models.RoleDean, models.RoleAdmin, models.RoleViceDean, models.RoleTeacher}

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.Refresh)

		authed := authGroup.Group("", middleware.JWT(authService))
		authed.POST("/logout", auth.Logout)
		authed.POST("/change-password", auth.ChangePassword)
		authed.GET("/me", auth.Me)
	}

	// Signed token carries its own authorization.
	api.GET("/downloads/:token", reports.Download)

	protected := api.Group("", middleware.JWT(authService))

	usersGroup := protected.Group("/users", middleware.RequireRoles(models.RoleDean))
	{
		usersGroup.GET("", users.List)
		usersGroup.POST("", users.Create)
		usersGroup.GET("/:id", users.Get)
		usersGroup.PUT("/:id", users.Update)
		usersGroup.DELETE("/:id", users.Delete)
	}

	studentsGroup := protected.Group("/students")
	{
		studentsGroup.GET("", middleware.RequireRoles(everyone...), students.List)
		studentsGroup.GET("/:id", middleware.RequireRoles(everyone...), students.Get)
		studentsGroup.GET("/:id/journal", middleware.RequireRoles(everyone...), students.History)
		studentsGroup.GET("/:id/comments", middleware.RequireRoles(staff...), students.ListComments)
		studentsGroup.POST("/:id/comments", middleware.RequireRoles(models.RoleDean, models.RoleViceDean, models.RoleTeacher), students.CreateComment)
		studentsGroup.POST("", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), students.Create)
		studentsGroup.PUT("/:id", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), students.Update)
		studentsGroup.DELETE("/:id", middleware.RequireRoles(models.RoleDean), students.Delete)
	}
	protected.DELETE("/comments/:id", middleware.RequireRoles(staff...), students.DeleteComment)

	catalogWrite := middleware.RequireRoles(models.RoleDean, models.RoleAdmin)
	catalogRead := middleware.RequireRoles(everyone...)
	{
		protected.GET("/courses", catalogRead, catalog.ListCourses)
		protected.POST("/courses", catalogWrite, catalog.CreateCourse)
		protected.PUT("/courses/:id", catalogWrite, catalog.UpdateCourse)
		protected.GET("/groups", catalogRead, catalog.ListGroups)
		protected.POST("/groups", catalogWrite, catalog.CreateGroup)
		protected.PUT("/groups/:id", catalogWrite, catalog.UpdateGroup)
		protected.GET("/subjects", catalogRead, catalog.ListSubjects)
		protected.POST("/subjects", catalogWrite, catalog.CreateSubject)
		protected.PUT("/subjects/:id", catalogWrite, catalog.UpdateSubject)
		protected.GET("/semesters", catalogRead, catalog.ListSemesters)
		protected.GET("/semesters/active", catalogRead, catalog.ActiveSemester)
		protected.POST("/semesters", middleware.RequireRoles(models.RoleDean), catalog.CreateSemester)
		protected.PUT("/semesters/:id", middleware.RequireRoles(models.RoleDean), catalog.UpdateSemester)
	}

	assignmentsGroup := protected.Group("/assignments")
	{
		assignmentsGroup.GET("", middleware.RequireRoles(everyone...), assignments.List)
		assignmentsGroup.GET("/:id", middleware.RequireRoles(everyone...), assignments.Get)
		assignmentsGroup.POST("", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), assignments.Create)
		assignmentsGroup.PUT("/:id", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), assignments.Update)
		assignmentsGroup.PATCH("/:id/can-grade", middleware.RequireRoles(models.RoleDean), assignments.SetCanGrade)
		assignmentsGroup.DELETE("/:id", middleware.RequireRoles(models.RoleDean), assignments.Delete)
	}

	schedulesGroup := protected.Group("/schedules")
	{
		schedulesGroup.GET("", middleware.RequireRoles(everyone...), assignments.ListSchedules)
		schedulesGroup.POST("", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), assignments.CreateSchedule)
		schedulesGroup.PUT("/:id", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), assignments.UpdateSchedule)
		schedulesGroup.DELETE("/:id", middleware.RequireRoles(models.RoleDean, models.RoleAdmin), assignments.DeleteSchedule)
	}

	journalGroup := protected.Group("/journal")
	{
		journalGroup.GET("", middleware.RequireRoles(everyone...), journal.Grid)
		journalGroup.POST("/entries", middleware.RequireRoles(models.RoleDean, models.RoleTeacher), journal.Record)
		journalGroup.POST("/import", middleware.RequireRoles(models.RoleDean, models.RoleTeacher), journal.Import)
	}

	dashboardGroup := protected.Group("/dashboard")
	{
		dashboardGroup.GET("/dean", middleware.RequireRoles(models.RoleDean), dashboard.Dean)
		dashboardGroup.GET("/vice-dean", middleware.RequireRoles(models.RoleDean, models.RoleViceDean), dashboard.ViceDean)
		dashboardGroup.GET("/live", middleware.RequireRoles(staff...), dashboard.Live)
	}

	reportsGroup := protected.Group("/reports")
	{
		reportsGroup.POST("", middleware.RequireRoles(everyone...), reports.Create)
		reportsGroup.GET("", middleware.RequireRoles(everyone...), reports.List)
		reportsGroup.GET("/:id", middleware.RequireRoles(everyone...), reports.Status)
	}

	protected.GET("/system/metrics", middleware.RequireRoles(models.RoleDean), metrics.Snapshot)
}
