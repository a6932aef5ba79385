package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository interface for attempt lifecycle operations
type AttemptRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error) // Assessment, questions, submitted answers
	Update(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error

	// GetOpen returns the student's open attempt on an assessment, or nil
	// when there is none.
	GetOpen(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.UserAssessment, error)

	// Close transitions an open attempt to closed and records the final
	// score. The transition is a single conditional update guarded on
	// status, so exactly one of two concurrent calls wins; the loser gets
	// closed=false with a nil error.
	Close(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool, completedAt time.Time) (closed bool, err error)

	// UpdateScore rewrites the recorded score of a closed attempt after a
	// manual regrade.
	UpdateScore(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool) error

	// Query operations
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters AttemptFilters) ([]*models.UserAssessment, int64, error)
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters AttemptFilters) ([]*models.UserAssessment, int64, error)

	// Statistics and exports (closed attempts only)
	GetStudentStats(ctx context.Context, tx *gorm.DB, userID string) (*StudentStats, error)
	GetResults(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*AssessmentResult, error)
}

// UserAnswerRepository interface for submitted-answer operations
type UserAnswerRepository interface {
	// Upsert replaces any previous answer for the same (attempt, question)
	// pair; resubmission is last-write-wins.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error

	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.UserAnswer, error)
	ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.UserAnswer, error)
	CountByResult(ctx context.Context, tx *gorm.DB, attemptID uint, result models.AnswerResult) (int64, error)
}
