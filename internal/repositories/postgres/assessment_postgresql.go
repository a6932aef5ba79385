package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/cache"
	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// AssessmentPostgreSQL implements the AssessmentRepository interface
type AssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

func (r *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("assessment:id:%d", id)
	var assessment models.Assessment

	err := r.cacheManager.Fast.CacheOrExecute(ctx, cacheKey, &assessment, cache.FastCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		if err := db.WithContext(ctx).First(&dbAssessment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, gorm.ErrRecordNotFound
			}
			return nil, fmt.Errorf("failed to get assessment: %w", err)
		}
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}

	return &assessment, nil
}

func (r *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	db := r.getDB(tx)
	var assessment models.Assessment
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.\"order\" ASC, answers.id ASC")
		}).
		First(&assessment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get assessment with questions: %w", err)
	}

	assessment.QuestionCount = len(assessment.Questions)
	for _, q := range assessment.Questions {
		assessment.TotalPoints += q.Points
	}
	return &assessment, nil
}

func (r *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}

	r.cacheManager.Fast.Delete(ctx, fmt.Sprintf("assessment:id:%d", assessment.ID))
	return nil
}

func (r *AssessmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Assessment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	r.cacheManager.Fast.Delete(ctx, fmt.Sprintf("assessment:id:%d", id))
	return nil
}

func (r *AssessmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	db := r.getDB(tx)
	var assessments []*models.Assessment
	var total int64

	query := db.WithContext(ctx).Model(&models.Assessment{})
	query = r.helpers.ApplyAssessmentFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assessments: %w", err)
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assessments: %w", err)
	}

	return assessments, total, nil
}

func (r *AssessmentPostgreSQL) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	filters.CreatedBy = &creatorID
	return r.List(ctx, tx, filters)
}

func (r *AssessmentPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	db := r.getDB(tx)
	cacheKey := fmt.Sprintf("assessment:exists:%d", id)

	exists, err := r.cacheManager.Exists.GetString(ctx, cacheKey)
	if err == nil {
		return exists == "true", nil
	}

	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check assessment existence: %w", err)
	}

	r.cacheManager.Exists.SetString(ctx, cacheKey, fmt.Sprintf("%t", count > 0), cache.ExistsCacheConfig.TTL)
	return count > 0, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *AssessmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
