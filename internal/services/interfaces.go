package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// ===== ASSESSMENT DTOS =====

type CreateAssessmentRequest struct {
	Title          string                  `json:"title" validate:"required,min=1,max=200"`
	Description    *string                 `json:"description" validate:"omitempty,max=2000"`
	Subject        models.Subject          `json:"subject" validate:"required,subject"`
	GradeLevel     models.GradeLevel       `json:"grade_level" validate:"required,grade_level"`
	AssessmentType models.AssessmentType   `json:"assessment_type" validate:"required,assessment_type"`
	Difficulty     models.DifficultyLevel  `json:"difficulty" validate:"required,difficulty_level"`
	TimeLimit      *int                    `json:"time_limit" validate:"omitempty,min=1,max=480"`
	PassingScore   float64                 `json:"passing_score" validate:"passing_score"`
	IsActive       *bool                   `json:"is_active"`
	Questions      []CreateQuestionRequest `json:"questions" validate:"omitempty,dive"`
}

type UpdateAssessmentRequest struct {
	Title        *string                 `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string                 `json:"description" validate:"omitempty,max=2000"`
	Difficulty   *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	TimeLimit    *int                    `json:"time_limit" validate:"omitempty,min=1,max=480"`
	PassingScore *float64                `json:"passing_score" validate:"omitempty,min=0,max=100"`
	IsActive     *bool                   `json:"is_active"`
}

type CreateQuestionRequest struct {
	Text         string                `json:"text" validate:"required,min=1"`
	QuestionType models.QuestionType   `json:"question_type" validate:"required,question_type"`
	Points       int                   `json:"points" validate:"min=1,max=100"`
	Order        int                   `json:"order" validate:"min=0"`
	Explanation  *string               `json:"explanation"`
	Answers      []CreateAnswerRequest `json:"answers" validate:"omitempty,dive"`

	// AcceptedAnswers feeds the short-answer review key.
	AcceptedAnswers []string `json:"accepted_answers"`
}

type CreateAnswerRequest struct {
	Text      string `json:"text" validate:"required,min=1"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"min=0"`
}

// AnswerResponse hides IsCorrect from students until their attempt is
// closed; the pointer stays nil when hidden.
type AnswerResponse struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Order     int    `json:"order"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

type QuestionResponse struct {
	ID           uint                `json:"id"`
	Text         string              `json:"text"`
	QuestionType models.QuestionType `json:"question_type"`
	Points       int                 `json:"points"`
	Order        int                 `json:"order"`
	Explanation  *string             `json:"explanation,omitempty"`
	Answers      []*AnswerResponse   `json:"answers"`
}

type AssessmentResponse struct {
	*models.Assessment
	Questions []*QuestionResponse `json:"questions,omitempty"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

// ===== ATTEMPT DTOS =====

type StartAttemptRequest struct {
	AssessmentID uint `json:"assessment_id" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID       uint   `json:"question_id" validate:"required"`
	SelectedAnswerID *uint  `json:"selected_answer_id"`
	TextAnswer       string `json:"text_answer"`
}

type SubmitAnswerResponse struct {
	QuestionID   uint                `json:"question_id"`
	Result       models.AnswerResult `json:"result"`
	PointsEarned float64             `json:"points_earned"`
	AnsweredAt   time.Time           `json:"answered_at"`
}

type UserAnswerResponse struct {
	QuestionID       uint                `json:"question_id"`
	SelectedAnswerID *uint               `json:"selected_answer_id,omitempty"`
	TextAnswer       string              `json:"text_answer,omitempty"`
	Result           models.AnswerResult `json:"result"`
	PointsEarned     float64             `json:"points_earned"`
	AnsweredAt       time.Time           `json:"answered_at"`
}

type AttemptResponse struct {
	*models.UserAssessment
	Assessment *AssessmentResponse   `json:"assessment,omitempty"`
	Answers    []*UserAnswerResponse `json:"answers,omitempty"`

	// Resumed is true when Start returned an existing open attempt
	// instead of creating one.
	Resumed bool `json:"resumed,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

type CompleteAttemptResponse struct {
	AttemptID      uint      `json:"attempt_id"`
	Score          float64   `json:"score"`
	Passed         bool      `json:"passed"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	PendingReview  int       `json:"pending_review"`
	CompletedAt    time.Time `json:"completed_at"`
}

type ManualGradeRequest struct {
	Correct bool `json:"correct"`
}

// ===== STATISTICS DTOS =====

type TypeStatsResponse struct {
	Completed    int     `json:"total_completed"`
	Passed       int     `json:"total_passed"`
	AverageScore float64 `json:"average_score"`
}

type StudentStatsResponse struct {
	TotalCompleted int                                         `json:"total_completed"`
	TotalPassed    int                                         `json:"total_passed"`
	AverageScore   float64                                     `json:"average_score"`
	ByType         map[models.AssessmentType]TypeStatsResponse `json:"by_type"`
}

// ===== IMPORT / EXPORT DTOS =====

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportQuestionsResult struct {
	Created   int              `json:"created"`
	RowErrors []ImportRowError `json:"row_errors,omitempty"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error)
	List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error)
	AddQuestion(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, userID string) (*QuestionResponse, error)
	RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error
}

type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, userID string) (*SubmitAnswerResponse, error)
	Complete(ctx context.Context, attemptID uint, userID string) (*CompleteAttemptResponse, error)
	GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error)
	ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)
}

type GradingService interface {
	// GradeManually resolves an undetermined short answer and, when the
	// attempt is already closed, recomputes its score.
	GradeManually(ctx context.Context, attemptID, questionID uint, req *ManualGradeRequest, graderID string) (*SubmitAnswerResponse, error)
}

type StudentService interface {
	GetStatistics(ctx context.Context, studentID string, userID string) (*StudentStatsResponse, error)
}

type ImportExportService interface {
	ImportQuestions(ctx context.Context, assessmentID uint, r io.Reader, userID string) (*ImportQuestionsResult, error)
	ExportResults(ctx context.Context, assessmentID uint, w io.Writer, userID string) error
}

// ServiceManager provides access to all services with lifecycle control
type ServiceManager interface {
	Assessment() AssessmentService
	Attempt() AttemptService
	Grading() GradingService
	Student() StudentService
	ImportExport() ImportExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
