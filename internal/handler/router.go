package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/vuhoang/student-records-api/internal/middleware"
	"github.com/vuhoang/student-records-api/internal/service"
	"github.com/vuhoang/student-records-api/pkg/config"
	"github.com/vuhoang/student-records-api/pkg/logger"
	corsmiddleware "github.com/vuhoang/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vuhoang/student-records-api/pkg/middleware/requestid"
)

// Handlers groups every endpoint group wired into the router.
type Handlers struct {
	Departments   *DepartmentHandler
	Programs      *ProgramHandler
	Statuses      *StatusHandler
	Teachers      *TeacherHandler
	Staff         *StaffHandler
	Semesters     *SemesterHandler
	Courses       *CourseHandler
	Classes       *ClassHandler
	Students      *StudentHandler
	Registrations *RegistrationHandler
	Exports       *ExportHandler
	Reports       *ReportHandler
}

// NewRouter assembles the HTTP surface: middleware chain, operational
// endpoints and the versioned API group.
func NewRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, db *sqlx.DB, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.Actor(cfg.Auth))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	departments := api.Group("/departments")
	departments.GET("", h.Departments.List)
	departments.POST("", h.Departments.Create)
	departments.GET("/:id", h.Departments.Get)
	departments.PUT("/:id", h.Departments.Update)
	departments.DELETE("/:id", h.Departments.Delete)

	programs := api.Group("/programs")
	programs.GET("", h.Programs.List)
	programs.POST("", h.Programs.Create)
	programs.GET("/:id", h.Programs.Get)
	programs.PUT("/:id", h.Programs.Update)
	programs.DELETE("/:id", h.Programs.Delete)

	statuses := api.Group("/statuses")
	statuses.GET("", h.Statuses.List)
	statuses.POST("", h.Statuses.Create)
	statuses.GET("/:id", h.Statuses.Get)
	statuses.PUT("/:id", h.Statuses.Update)
	statuses.DELETE("/:id", h.Statuses.Delete)

	teachers := api.Group("/teachers")
	teachers.GET("", h.Teachers.List)
	teachers.POST("", h.Teachers.Create)
	teachers.GET("/:id", h.Teachers.Get)
	teachers.PUT("/:id", h.Teachers.Update)
	teachers.DELETE("/:id", h.Teachers.Delete)

	staff := api.Group("/staff")
	staff.GET("", h.Staff.List)
	staff.POST("", h.Staff.Create)
	staff.GET("/:id", h.Staff.Get)
	staff.PUT("/:id", h.Staff.Update)
	staff.DELETE("/:id", h.Staff.Delete)

	semesters := api.Group("/semesters")
	semesters.GET("", h.Semesters.List)
	semesters.POST("", h.Semesters.Create)
	semesters.GET("/:id", h.Semesters.Get)
	semesters.PUT("/:id", h.Semesters.Update)
	semesters.DELETE("/:id", h.Semesters.Delete)

	courses := api.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.PATCH("/:id/activate", h.Courses.Activate)

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", h.Classes.Update)
	classes.DELETE("/:id", h.Classes.Delete)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/export/csv", h.Exports.ExportCSV)
	students.GET("/export/xlsx", h.Exports.ExportXLSX)
	students.POST("/import", h.Exports.Import)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.GET("/:id/details", h.Students.GetProfile)
	students.PUT("/:id/details", h.Students.SaveProfile)
	students.GET("/:id/documents", h.Students.ListDocuments)
	students.POST("/:id/documents", h.Students.SaveDocument)
	students.DELETE("/:id/documents/:documentId", h.Students.DeleteDocument)
	students.GET("/:id/report", h.Reports.Transcript)
	students.GET("/:id/report/pdf", h.Reports.TranscriptPDF)

	enrollments := api.Group("/enrollments")
	enrollments.POST("", h.Registrations.Register)
	enrollments.DELETE("", h.Registrations.Deregister)
	enrollments.GET("/history", h.Registrations.History)
	enrollments.PUT("/:id/grade", h.Registrations.SetGrade)

	return r
}
