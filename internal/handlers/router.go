package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/grading-service/internal/config"
	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
	"github.com/SAP-F-2025/grading-service/internal/services"
	"github.com/SAP-F-2025/grading-service/internal/utils"
	"github.com/SAP-F-2025/grading-service/internal/validator"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	attemptHandler    *AttemptHandler
	studentHandler    *StudentHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), serviceManager.ImportExport(), validator, logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), serviceManager.Grading(), validator, logger),
		studentHandler:    NewStudentHandler(serviceManager.Student(), serviceManager.Attempt(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Assessment routes
		assessments := v1.Group("/assessments")
		{
			// Catalog management - Teachers and Admins only
			assessments.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.DeleteAssessment)
			assessments.POST("/:id/questions", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.AddQuestion)
			assessments.DELETE("/:id/questions/:question_id", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.RemoveQuestion)
			assessments.POST("/:id/questions/import", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.ImportQuestions)
			assessments.GET("/:id/results/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.assessmentHandler.ExportResults)

			// View assessments - All authenticated users, sanitized per role
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)

			// Manual grading - Teachers and Admins only
			attempts.POST("/:id/questions/:question_id/grade", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.attemptHandler.GradeAnswer)
		}

		// Student routes
		students := v1.Group("/students")
		{
			students.GET("/me/statistics", hm.studentHandler.GetMyStatistics)
			students.GET("/me/attempts", hm.studentHandler.GetMyAttempts)

			// Staff views over any student
			students.GET("/:student_id/statistics", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.studentHandler.GetStudentStatistics)
			students.GET("/:student_id/attempts", hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin), hm.studentHandler.GetStudentAttempts)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{
				"status":  "unhealthy",
				"service": "grading-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "grading-service",
		})
	})
}
