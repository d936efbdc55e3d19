package main

import (
	"context"
	"errors"
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

	_ "github.com/nereid-mechmat/nereid-backend/api/swagger"
	"github.com/nereid-mechmat/nereid-backend/internal/handler"
	"github.com/nereid-mechmat/nereid-backend/internal/middleware"
	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/internal/repository"
	"github.com/nereid-mechmat/nereid-backend/internal/service"
	"github.com/nereid-mechmat/nereid-backend/pkg/cache"
	"github.com/nereid-mechmat/nereid-backend/pkg/config"
	"github.com/nereid-mechmat/nereid-backend/pkg/database"
	"github.com/nereid-mechmat/nereid-backend/pkg/jobs"
	"github.com/nereid-mechmat/nereid-backend/pkg/logger"
	"github.com/nereid-mechmat/nereid-backend/pkg/mailer"
	corsmiddleware "github.com/nereid-mechmat/nereid-backend/pkg/middleware/cors"
	reqidmiddleware "github.com/nereid-mechmat/nereid-backend/pkg/middleware/requestid"
	"github.com/nereid-mechmat/nereid-backend/pkg/storage"
)

// @title Nereid API
// @version 1.0.0
// @description Course registration backend: discipline selection, credit accounting and catalog administration.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	selectionRepo := repository.NewSelectionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	mail := mailer.NewSMTP(cfg.Mail)
	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, mail, validate, logr, cfg.JWT, cfg.Auth)
	userSvc := service.NewUserService(userRepo, validate, logr)
	selectionSvc := service.NewSelectionService(studentRepo, selectionRepo, disciplineRepo, cacheRepo, cfg.Selection, cfg.Catalog.CacheTTL, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, disciplineRepo, teacherRepo, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, disciplineRepo, validate, logr)
	reconcileSvc := service.NewReconcileService(selectionRepo, studentRepo, logr)
	window := service.NewSelectionWindow(studentRepo, logr)
	metricsSvc := service.NewMetricsService()
	adminSvc := service.NewAdminService(service.AdminServiceDeps{
		Users:       userRepo,
		Students:    studentRepo,
		Teachers:    teacherRepo,
		Disciplines: disciplineRepo,
		Selections:  selectionSvc,
		Rosters:     selectionRepo,
		Cache:       cacheRepo,
		Mail:        mail,
		BcryptCost:  cfg.Auth.BcryptCost,
		Validator:   validate,
		Logger:      logr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	if err := authSvc.SeedRoles(seedCtx); err != nil {
		cancelSeed()
		logr.Sugar().Fatalw("failed to seed roles", "error", err)
	}
	cancelSeed()

	reconcileQueue := jobs.NewQueue("reconcile", func(ctx context.Context, job jobs.Job) error {
		report, err := reconcileSvc.Run(ctx)
		if err != nil {
			return err
		}
		metricsSvc.ObserveReconcile(report.StudentsRepaired)
		return nil
	}, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Reconcile.WorkerRetries,
		RetryDelay: cfg.Reconcile.RetryDelay,
		Logger:     logr,
	})
	reconcileQueue.Start(ctx)
	defer reconcileQueue.Stop()

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Export.ResultTTL)
	archiveSvc := service.NewExportArchiveService(adminSvc, exportStore, exportSigner, service.ExportArchiveConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Export.ResultTTL,
	}, logr)

	exportQueue := jobs.NewQueue("exports", func(ctx context.Context, job jobs.Job) error {
		return archiveSvc.Process(ctx, job.ID)
	}, jobs.QueueConfig{
		Workers: 1,
		Logger:  logr,
	})
	exportQueue.Start(ctx)
	defer exportQueue.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := archiveSvc.Cleanup(); err != nil {
					logr.Sugar().Warnw("export cleanup failed", "error", err)
				}
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(selectionSvc, studentSvc, metricsSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	adminHandler := handler.NewAdminHandler(adminSvc, window, reconcileQueue)
	exportHandler := handler.NewExportHandler(archiveSvc, exportQueue)

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

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/otp/send", authHandler.SendOTP)
		auth.POST("/otp/verify", authHandler.VerifyOTP)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.GET("/me", userHandler.Me)
		users.PATCH("/me", userHandler.UpdateMe)
	}

	students := api.Group("/students", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	{
		students.GET("/me", studentHandler.Profile)
		students.GET("/me/disciplines", studentHandler.ListAvailable)
		students.GET("/me/disciplines/selected", studentHandler.ListSelected)
		students.POST("/me/disciplines/select", studentHandler.Select)
		students.POST("/me/disciplines/deselect", studentHandler.Deselect)
		students.GET("/me/disciplines/:id", studentHandler.GetDiscipline)
		students.GET("/me/teachers/:id", studentHandler.GetTeacher)
	}

	teachers := api.Group("/teachers", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher))
	{
		teachers.GET("/me", teacherHandler.Profile)
		teachers.POST("/me/fields", teacherHandler.AddProfileField)
		teachers.PUT("/me/fields/:fieldId", teacherHandler.UpdateProfileField)
		teachers.DELETE("/me/fields/:fieldId", teacherHandler.DeleteProfileField)
		teachers.GET("/me/disciplines", teacherHandler.ListDisciplines)
		teachers.POST("/me/disciplines/:id/fields", teacherHandler.AddDisciplineField)
		teachers.PUT("/me/disciplines/:id/fields/:fieldId", teacherHandler.UpdateDisciplineField)
		teachers.DELETE("/me/disciplines/:id/fields/:fieldId", teacherHandler.DeleteDisciplineField)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/students", adminHandler.ListStudents)
		admin.GET("/students/import/template", adminHandler.StudentsTemplate)
		admin.GET("/students/:id", adminHandler.GetStudent)
		admin.POST("/students", middleware.Audit(userRepo, "create", "student"), adminHandler.CreateStudent)
		admin.PATCH("/students/bulk", middleware.Audit(userRepo, "bulk_update", "student"), adminHandler.BulkUpdateStudents)
		admin.PATCH("/students/:id", middleware.Audit(userRepo, "update", "student"), adminHandler.UpdateStudent)
		admin.POST("/students/import", middleware.Audit(userRepo, "import", "student"), adminHandler.ImportStudents)

		admin.GET("/teachers", adminHandler.ListTeachers)
		admin.POST("/teachers", middleware.Audit(userRepo, "create", "teacher"), adminHandler.CreateTeacher)
		admin.PUT("/teachers/:id/active", middleware.Audit(userRepo, "set_active", "teacher"), adminHandler.SetTeacherActive)

		admin.GET("/disciplines", adminHandler.ListDisciplines)
		admin.GET("/disciplines/:id", adminHandler.GetDiscipline)
		admin.POST("/disciplines", middleware.Audit(userRepo, "create", "discipline"), adminHandler.CreateDiscipline)
		admin.PATCH("/disciplines/bulk", middleware.Audit(userRepo, "bulk_update", "discipline"), adminHandler.BulkSetDisciplinesActive)
		admin.PATCH("/disciplines/:id", middleware.Audit(userRepo, "update", "discipline"), adminHandler.UpdateDiscipline)
		admin.DELETE("/disciplines/:id", middleware.Audit(userRepo, "delete", "discipline"), adminHandler.DeleteDiscipline)
		admin.PUT("/disciplines/:id/teachers/:teacherId", middleware.Audit(userRepo, "assign_teacher", "discipline"), adminHandler.AssignTeacher)
		admin.DELETE("/disciplines/:id/teachers/:teacherId", middleware.Audit(userRepo, "unassign_teacher", "discipline"), adminHandler.UnassignTeacher)

		admin.GET("/selection-window", adminHandler.WindowState)
		admin.POST("/selection-window/lock", middleware.Audit(userRepo, "lock", "selection_window"), adminHandler.LockWindow)
		admin.POST("/selection-window/unlock", middleware.Audit(userRepo, "unlock", "selection_window"), adminHandler.UnlockWindow)

		admin.POST("/reconcile", middleware.Audit(userRepo, "trigger", "reconcile"), adminHandler.TriggerReconcile)
		admin.GET("/rosters/export", adminHandler.ExportRosters)
		admin.POST("/rosters/export-jobs", middleware.Audit(userRepo, "export", "rosters"), exportHandler.CreateJob)
		admin.GET("/rosters/export-jobs/:id", exportHandler.GetJob)
	}

	api.GET("/export/:token", exportHandler.Download)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}
