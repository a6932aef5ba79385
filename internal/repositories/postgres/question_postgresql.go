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

// QuestionPostgreSQL implements the QuestionRepository interface
type QuestionPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *QuestionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	r.invalidateAssessmentQuestions(ctx, question.AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	db := r.getDB(tx)
	var question models.Question
	if err := db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.\"order\" ASC, answers.id ASC")
		}).
		First(&question, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

func (r *QuestionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	r.invalidateAssessmentQuestions(ctx, question.AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)
	question, err := r.GetByID(ctx, tx, id)
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	r.invalidateAssessmentQuestions(ctx, question.AssessmentID)
	return nil
}

func (r *QuestionPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	db := r.getDB(tx)
	if err := db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	assessmentIDs := make(map[uint]bool)
	for _, q := range questions {
		assessmentIDs[q.AssessmentID] = true
	}
	for id := range assessmentIDs {
		r.invalidateAssessmentQuestions(ctx, id)
	}
	return nil
}

func (r *QuestionPostgreSQL) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	db := r.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.\"order\" ASC, answers.id ASC")
		}).
		Order("\"order\" ASC, id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions by assessment: %w", err)
	}
	return questions, nil
}

func (r *QuestionPostgreSQL) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("assessment_id = ?", assessmentID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (r *QuestionPostgreSQL) GetAnswerByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	db := r.getDB(tx)
	var answer models.Answer
	if err := db.WithContext(ctx).First(&answer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get answer option: %w", err)
	}
	return &answer, nil
}

func (r *QuestionPostgreSQL) ReplaceAnswers(ctx context.Context, tx *gorm.DB, questionID uint, answers []models.Answer) error {
	db := r.getDB(tx)
	return db.WithContext(ctx).Transaction(func(txInner *gorm.DB) error {
		if err := txInner.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return fmt.Errorf("failed to clear answer options: %w", err)
		}
		for i := range answers {
			answers[i].ID = 0
			answers[i].QuestionID = questionID
		}
		if len(answers) > 0 {
			if err := txInner.Create(&answers).Error; err != nil {
				return fmt.Errorf("failed to create answer options: %w", err)
			}
		}
		return nil
	})
}

func (r *QuestionPostgreSQL) invalidateAssessmentQuestions(ctx context.Context, assessmentID uint) {
	r.cacheManager.Fast.Delete(ctx,
		fmt.Sprintf("assessment:id:%d", assessmentID),
		fmt.Sprintf("assessment:%d:questions", assessmentID),
	)
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *QuestionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
