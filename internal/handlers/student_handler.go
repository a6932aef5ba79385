package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/grading-service/internal/services"
	"github.com/SAP-F-2025/grading-service/internal/utils"
)

type StudentHandler struct {
	BaseHandler
	studentService services.StudentService
	attemptService services.AttemptService
}

func NewStudentHandler(
	studentService services.StudentService,
	attemptService services.AttemptService,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler:    NewBaseHandler(logger),
		studentService: studentService,
		attemptService: attemptService,
	}
}

// GetMyStatistics returns the caller's aggregated statistics
// @Summary Get my statistics
// @Description Returns totals, pass counts and average score over closed attempts, broken down by assessment type
// @Tags students
// @Produce json
// @Success 200 {object} services.StudentStatsResponse
// @Failure 401 {object} ErrorResponse
// @Router /students/me/statistics [get]
func (h *StudentHandler) GetMyStatistics(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.studentService.GetStatistics(c.Request.Context(), userID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetStudentStatistics returns a student's statistics for staff
// @Summary Get student statistics
// @Tags students
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.StudentStatsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{student_id}/statistics [get]
func (h *StudentHandler) GetStudentStatistics(c *gin.Context) {
	studentID := c.Param("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id parameter",
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.studentService.GetStatistics(c.Request.Context(), studentID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMyAttempts lists the caller's attempts
// @Summary List my attempts
// @Tags students
// @Produce json
// @Param status query string false "Filter by status (open, closed)"
// @Param assessment_id query int false "Filter by assessment"
// @Success 200 {object} services.AttemptListResponse
// @Failure 401 {object} ErrorResponse
// @Router /students/me/attempts [get]
func (h *StudentHandler) GetMyAttempts(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := parseAttemptFilters(c)
	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), userID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// GetStudentAttempts lists a student's attempts for staff
// @Summary List student attempts
// @Tags students
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} services.AttemptListResponse
// @Failure 403 {object} ErrorResponse
// @Router /students/{student_id}/attempts [get]
func (h *StudentHandler) GetStudentAttempts(c *gin.Context) {
	studentID := c.Param("student_id")
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id parameter",
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := parseAttemptFilters(c)
	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), studentID, filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}
