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

	"github.com/go-playground/validator/v10"

	_ "github.com/vuhoang/student-records-api/api/swagger"
	"github.com/vuhoang/student-records-api/internal/handler"
	"github.com/vuhoang/student-records-api/internal/repository"
	"github.com/vuhoang/student-records-api/internal/service"
	"github.com/vuhoang/student-records-api/pkg/cache"
	"github.com/vuhoang/student-records-api/pkg/config"
	"github.com/vuhoang/student-records-api/pkg/database"
	"github.com/vuhoang/student-records-api/pkg/export"
	"github.com/vuhoang/student-records-api/pkg/jobs"
	"github.com/vuhoang/student-records-api/pkg/logger"
	"github.com/vuhoang/student-records-api/pkg/storage"
)

// @title Student Records API
// @version 1.0.0
// @description Student records management with class registration workflow
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	rules, err := service.NewStudentValidators(cfg.Validation)
	if err != nil {
		logr.Sugar().Fatalw("invalid validation config", "error", err)
	}
	validate := validator.New()

	departmentRepo := repository.NewDepartmentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exportSvc *service.ExportService
	archiveQueue := jobs.NewQueue("export-archive", func(ctx context.Context, job jobs.Job) error {
		return exportSvc.HandleArchive(ctx, job)
	}, jobs.QueueConfig{Workers: 2, Logger: logr})
	archiveQueue.Start(ctx)
	defer archiveQueue.Stop()

	exportSvc = service.NewExportService(studentRepo, export.NewCSVExporter(), export.NewXLSXExporter(), archiveQueue, store, logr)
	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportSvc.CleanupArchives(cfg.Exports.Retention)
			}
		}
	}()

	departmentSvc := service.NewDepartmentService(departmentRepo, cacheSvc, validate, logr)
	programSvc := service.NewProgramService(programRepo, cacheSvc, validate, logr)
	statusSvc := service.NewStatusService(statusRepo, cacheSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	staffSvc := service.NewStaffService(staffRepo, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, departmentRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, courseRepo, teacherRepo, semesterRepo, enrollmentRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, departmentRepo, programRepo, statusRepo, rules, validate, logr)
	registrationSvc := service.NewRegistrationService(enrollmentRepo, classRepo, studentRepo, courseRepo, semesterRepo, metrics, validate, logr)
	transcriptSvc := service.NewTranscriptService(studentRepo, enrollmentRepo, export.NewPDFExporter(), logr)
	importSvc := service.NewImportService(studentRepo, departmentRepo, programRepo, statusRepo, rules, logr)

	handlers := handler.Handlers{
		Departments:   handler.NewDepartmentHandler(departmentSvc),
		Programs:      handler.NewProgramHandler(programSvc),
		Statuses:      handler.NewStatusHandler(statusSvc),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Staff:         handler.NewStaffHandler(staffSvc),
		Semesters:     handler.NewSemesterHandler(semesterSvc),
		Courses:       handler.NewCourseHandler(courseSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Registrations: handler.NewRegistrationHandler(registrationSvc),
		Exports:       handler.NewExportHandler(exportSvc, importSvc, cfg.Imports.MaxFileSizeBytes),
		Reports:       handler.NewReportHandler(transcriptSvc),
	}

	router := handler.NewRouter(cfg, logr, metrics, db, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
