package repositories

import (
	"time"

	"github.com/SAP-F-2025/grading-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	Subject        *models.Subject         `json:"subject"`
	GradeLevel     *models.GradeLevel      `json:"grade_level"`
	AssessmentType *models.AssessmentType  `json:"assessment_type"`
	Difficulty     *models.DifficultyLevel `json:"difficulty"`
	ActiveOnly     bool                    `json:"active_only"`
	CreatedBy      *string                 `json:"created_by"`
	Search         *string                 `json:"search"` // matches against title
	Limit          int                     `json:"limit"`
	Offset         int                     `json:"offset"`
	SortBy         string                  `json:"sort_by"`    // "created_at", "title"
	SortOrder      string                  `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status       *models.AttemptStatus `json:"status"`
	AssessmentID *uint                 `json:"assessment_id"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for name or email
	Limit  int    // Page size
	Offset int    // Offset for pagination
}

// ===== SHARED STATISTICS STRUCTS =====

// TypeStats aggregates a student's closed attempts for one assessment type.
type TypeStats struct {
	Completed    int     `json:"completed"`
	Passed       int     `json:"passed"`
	AverageScore float64 `json:"average_score"`
}

// StudentStats aggregates a student's closed attempts. Every assessment
// type is present in ByType, zero-valued when the student has none.
type StudentStats struct {
	TotalCompleted int                                  `json:"total_completed"`
	TotalPassed    int                                  `json:"total_passed"`
	AverageScore   float64                              `json:"average_score"`
	ByType         map[models.AssessmentType]*TypeStats `json:"by_type"`
}

// AssessmentResult is one closed attempt row for result exports.
type AssessmentResult struct {
	AttemptID   uint      `json:"attempt_id"`
	UserID      string    `json:"user_id"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}
