package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
	"github.com/SAP-F-2025/grading-service/internal/services"
	"github.com/SAP-F-2025/grading-service/internal/utils"
	"github.com/SAP-F-2025/grading-service/internal/validator"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService   services.AssessmentService
	importExportService services.ImportExportService
	validator           *validator.Validator
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	importExportService services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:         NewBaseHandler(logger),
		assessmentService:   assessmentService,
		importExportService: importExportService,
		validator:           validator,
	}
}

// CreateAssessment creates a new assessment
// @Summary Create assessment
// @Description Creates an assessment, optionally with its questions
// @Tags assessments
// @Accept json
// @Produce json
// @Param assessment body services.CreateAssessmentRequest true "Assessment data"
// @Success 201 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	h.LogRequest(c, "Creating assessment")

	var req services.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// UpdateAssessment updates an existing assessment
// @Summary Update assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param assessment body services.UpdateAssessmentRequest true "Fields to update"
// @Success 200 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating assessment", "assessment_id", id)

	var req services.UpdateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// DeleteAssessment removes an assessment
// @Summary Delete assessment
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting assessment", "assessment_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.assessmentService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAssessment returns one assessment with its questions
// @Summary Get assessment
// @Description Returns the assessment; students never see correct answers here
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListAssessments lists assessments with filters and pagination
// @Summary List assessments
// @Tags assessments
// @Produce json
// @Param subject query string false "Filter by subject"
// @Param grade_level query string false "Filter by grade level"
// @Param assessment_type query string false "Filter by assessment type"
// @Param search query string false "Title search"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.AssessmentListResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	filters := parseAssessmentFilters(c)
	result, err := h.assessmentService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddQuestion appends a question to an assessment
// @Summary Add question
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} services.QuestionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/questions [post]
func (h *AssessmentHandler) AddQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Adding question", "assessment_id", id)

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	question, err := h.assessmentService.AddQuestion(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// RemoveQuestion deletes a question from an assessment
// @Summary Remove question
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param question_id path uint true "Question ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/questions/{question_id} [delete]
func (h *AssessmentHandler) RemoveQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Removing question", "assessment_id", id, "question_id", questionID)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.assessmentService.RemoveQuestion(c.Request.Context(), id, questionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportQuestions imports questions from an uploaded xlsx workbook
// @Summary Import questions
// @Description Reads questions from an xlsx file; invalid rows are reported without aborting valid ones
// @Tags assessments
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} services.ImportQuestionsResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assessments/{id}/questions/import [post]
func (h *AssessmentHandler) ImportQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Importing questions", "assessment_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to open uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.importExportService.ImportQuestions(c.Request.Context(), id, file, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportResults streams closed attempt results as an xlsx workbook
// @Summary Export results
// @Tags assessments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Assessment ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/results/export [get]
func (h *AssessmentHandler) ExportResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting results", "assessment_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=assessment_%d_results.xlsx", id))

	if err := h.importExportService.ExportResults(c.Request.Context(), id, c.Writer, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}
}

func parseAssessmentFilters(c *gin.Context) repositories.AssessmentFilters {
	var filters repositories.AssessmentFilters

	if v := c.Query("subject"); v != "" {
		subject := models.Subject(v)
		filters.Subject = &subject
	}
	if v := c.Query("grade_level"); v != "" {
		gradeLevel := models.GradeLevel(v)
		filters.GradeLevel = &gradeLevel
	}
	if v := c.Query("assessment_type"); v != "" {
		assessmentType := models.AssessmentType(v)
		filters.AssessmentType = &assessmentType
	}
	if v := c.Query("difficulty"); v != "" {
		difficulty := models.DifficultyLevel(v)
		filters.Difficulty = &difficulty
	}
	if v := c.Query("search"); v != "" {
		filters.Search = &v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = v
	}
	filters.SortBy = c.DefaultQuery("sort_by", "created_at")
	filters.SortOrder = c.DefaultQuery("sort_order", "desc")

	return filters
}

func parseAttemptFilters(c *gin.Context) repositories.AttemptFilters {
	var filters repositories.AttemptFilters

	if v := c.Query("status"); v != "" {
		status := models.AttemptStatus(v)
		filters.Status = &status
	}
	if v := c.Query("assessment_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			assessmentID := uint(id)
			filters.AssessmentID = &assessmentID
		}
	}
	if v := c.Query("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.DateFrom = &t
		}
	}
	if v := c.Query("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filters.DateTo = &t
		}
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filters.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		filters.Offset = v
	}

	return filters
}
