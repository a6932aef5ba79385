package repositories

import (
	"context"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"gorm.io/gorm"
)

// AssessmentRepository interface for catalog assessment operations
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) // Questions + answers, ordered
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters AssessmentFilters) ([]*models.Assessment, int64, error)

	// Validation and checks
	ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}
