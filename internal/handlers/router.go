package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/services"
	"github.com/scholaris/school-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	teacherHandler    *TeacherHandler
	studentHandler    *StudentHandler
	examHandler       *ExamHandler
	submissionHandler *SubmissionHandler
	authMiddleware    *JWTAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	jwtSecret string,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		teacherHandler:    NewTeacherHandler(serviceManager.Teacher(), logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), serviceManager.ImportExport(), logger),
		examHandler:       NewExamHandler(serviceManager.Exam(), serviceManager.Eligibility(), logger),
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), serviceManager.Result(), serviceManager.ImportExport(), logger),
		authMiddleware:    NewJWTAuthMiddleware(jwtSecret),
	}
}

// SetupRoutes sets up all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Public auth routes
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/password-reset", hm.authHandler.RequestPasswordReset)
		auth.POST("/password-reset/confirm", hm.authHandler.ConfirmPasswordReset)
	}

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Teacher profile routes - admin manages, teachers can view themselves
		teachers := v1.Group("/teachers")
		{
			teachers.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.teacherHandler.CreateTeacher)
			teachers.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.teacherHandler.ListTeachers)
			teachers.GET("/:id", hm.teacherHandler.GetTeacher)
			teachers.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.teacherHandler.UpdateTeacher)
			teachers.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.teacherHandler.DeleteTeacher)
		}

		// Student profile routes - admin manages, teachers see their own students
		students := v1.Group("/students")
		{
			students.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.studentHandler.CreateStudent)
			students.GET("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.studentHandler.ListStudents)
			students.GET("/:id", hm.studentHandler.GetStudent)
			students.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.studentHandler.UpdateStudent)
			students.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.studentHandler.DeleteStudent)

			// Roster import/export
			students.POST("/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.studentHandler.ImportStudents)
			students.GET("/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.studentHandler.ExportStudents)
		}

		// Exam routes
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.UpdateExam)
			exams.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.DeleteExam)

			// Question management
			exams.GET("/:id/questions", hm.examHandler.GetExamWithQuestions)
			exams.POST("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.AddQuestion)
			exams.PUT("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.UpdateQuestion)
			exams.DELETE("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.DeleteQuestion)

			// Eligibility resolution
			exams.GET("/:id/eligible-students", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin, models.RoleTeacher), hm.examHandler.GetEligibleStudents)
		}

		// Submission routes
		submissions := v1.Group("/submissions")
		{
			submissions.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent), hm.submissionHandler.SubmitExam)
			submissions.GET("/:id", hm.submissionHandler.GetSubmission)
		}

		// Result routes
		results := v1.Group("/results")
		{
			results.GET("/me", hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent), hm.submissionHandler.GetMyResults)
			results.GET("/class", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.submissionHandler.GetClassResults)
			results.GET("/class/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher), hm.submissionHandler.ExportClassResults)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "school-service",
		})
	})
}
