package repositories

import (
	"context"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for question and answer-option operations
type QuestionRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) // Includes answer options, ordered
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Bulk operations
	CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error

	// Assessment-specific queries
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error)
	CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error)

	// Answer options
	GetAnswerByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error)
	ReplaceAnswers(ctx context.Context, tx *gorm.DB, questionID uint, answers []models.Answer) error
}
