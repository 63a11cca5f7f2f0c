package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ghostreact/markapp/internal/config"
	"github.com/ghostreact/markapp/internal/middleware"
	"github.com/ghostreact/markapp/internal/models"
	"github.com/ghostreact/markapp/internal/repository"
	"github.com/ghostreact/markapp/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	identity *service.IdentityService
	db       *pgxpool.Pool
	cache    *redis.Client

	users       *repository.UserRepository
	sessions    *repository.SessionRepository
	departments *repository.DepartmentRepository
	branches    *repository.BranchRepository
	students    *repository.StudentRepository
	teachers    *repository.TeacherRepository
	attendance  *repository.AttendanceRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	auth := service.NewAuthService(userRepo, sessionRepo, &cfg.Security, log)
	identity := service.NewIdentityService(userRepo, teacherRepo, studentRepo)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		auth:        auth,
		identity:    identity,
		db:          db,
		cache:       cache,
		users:       userRepo,
		sessions:    sessionRepo,
		departments: departmentRepo,
		branches:    branchRepo,
		students:    studentRepo,
		teachers:    teacherRepo,
		attendance:  attendanceRepo,
	}
}

// AuthService exposes the auth service for startup tasks (admin seed).
func (h HandlerSet) AuthService() *service.AuthService {
	return h.auth
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	sec := &h.cfg.Security
	gate := middleware.Auth(sec)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/login",
		middleware.RateLimit(h.cache, sec.LoginRateLimit, sec.LoginRateWindow, h.log),
		h.Login,
	)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)
	// /auth/me answers 401 as {authenticated:false} rather than the
	// gate's generic reject, so it verifies the cookie itself.
	auth.GET("/me", h.Me)

	departments := v1.Group("/departments", gate)
	departments.GET("", h.ListDepartments)
	departments.GET("/:departmentId", h.GetDepartment)
	departmentAdmin := departments.Group("", middleware.RequireRoles(models.RoleAdmin))
	departmentAdmin.POST("", h.CreateDepartment)
	departmentAdmin.PUT("/:departmentId", h.UpdateDepartment)
	departmentAdmin.DELETE("/:departmentId", h.DeleteDepartment)

	branches := v1.Group("/branches", gate)
	branches.GET("", h.ListBranches)
	branches.GET("/:branchId", h.GetBranch)
	branchAdmin := branches.Group("", middleware.RequireRoles(models.RoleAdmin))
	branchAdmin.POST("", h.CreateBranch)
	branchAdmin.PUT("/:branchId", h.UpdateBranch)
	branchAdmin.DELETE("/:branchId", h.DeleteBranch)

	users := v1.Group("/users", gate, middleware.RequireRoles(models.RoleAdmin))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:userId", h.GetUser)
	users.DELETE("/:userId", h.DeleteUser)

	students := v1.Group("/students", gate, middleware.RequireRoles(models.RoleAdmin))
	students.GET("", h.ListStudents)
	students.GET("/:studentId", h.GetStudent)
	students.PUT("/:studentId", h.UpdateStudent)
	students.DELETE("/:studentId", h.DeleteStudent)

	teachers := v1.Group("/teachers", gate)
	teacherAdmin := teachers.Group("", middleware.RequireRoles(models.RoleAdmin))
	teacherAdmin.GET("", h.ListTeachers)
	teacherAdmin.POST("", h.CreateTeacher)
	teacherAdmin.GET("/:teacherId", h.GetTeacher)
	teacherAdmin.PUT("/:teacherId", h.UpdateTeacher)
	teacherAdmin.DELETE("/:teacherId", h.DeleteTeacher)

	// Teacher-scoped roster and attendance: Admin, or the teacher whose
	// id is in the path.
	scoped := teachers.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	scoped.GET("/:teacherId/students", h.ListTeacherStudents)
	scoped.POST("/:teacherId/students", h.CreateTeacherStudent)
	scoped.GET("/:teacherId/attendance", h.ListTeacherAttendance)
	scoped.POST("/:teacherId/attendance", h.RecordAttendance)

	me := v1.Group("/me", gate)
	me.GET("/attendance", middleware.RequireRoles(models.RoleStudent), h.MyAttendance)

	admin := v1.Group("/admin", gate, middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/reports/attendance", h.RequestAttendanceReport)
}
