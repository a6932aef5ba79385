package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/grading-service/internal/cache"
	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// AttemptPostgreSQL implements the AttemptRepository interface
type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error) {
	db := a.getDB(tx)
	var attempt models.UserAssessment
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error) {
	db := a.getDB(tx)
	var attempt models.UserAssessment
	if err := db.WithContext(ctx).
		Preload("Assessment").
		Preload("Assessment.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.\"order\" ASC, questions.id ASC")
		}).
		Preload("Assessment.Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.\"order\" ASC, answers.id ASC")
		}).
		Preload("Answers").
		First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt with details: %w", err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	a.cacheManager.Fast.Delete(ctx, fmt.Sprintf("attempt:id:%d", attempt.ID))
	return nil
}

func (a *AttemptPostgreSQL) GetOpen(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.UserAssessment, error) {
	db := a.getDB(tx)
	var attempt models.UserAssessment
	err := db.WithContext(ctx).
		Where("user_id = ? AND assessment_id = ? AND status = ?", userID, assessmentID, models.AttemptOpen).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open attempt: %w", err)
	}
	return &attempt, nil
}

// Close performs the one-way open -> closed transition. The WHERE clause
// on status makes the update conditional: with two concurrent callers
// only one sees RowsAffected == 1.
func (a *AttemptPostgreSQL) Close(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool, completedAt time.Time) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.UserAssessment{}).
		Where("id = ? AND status = ?", id, models.AttemptOpen).
		Updates(map[string]interface{}{
			"status":       models.AttemptClosed,
			"score":        score,
			"passed":       passed,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to close attempt: %w", result.Error)
	}

	a.cacheManager.Fast.Delete(ctx, fmt.Sprintf("attempt:id:%d", id))
	if result.RowsAffected == 1 {
		a.invalidateStudentStats(ctx, db, id)
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) UpdateScore(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).
		Model(&models.UserAssessment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":  score,
			"passed": passed,
		}).Error; err != nil {
		return fmt.Errorf("failed to update attempt score: %w", err)
	}

	a.cacheManager.Fast.Delete(ctx, fmt.Sprintf("attempt:id:%d", id))
	a.invalidateStudentStats(ctx, db, id)
	return nil
}

// invalidateStudentStats drops the cached statistics of the attempt
// owner after a score change.
func (a *AttemptPostgreSQL) invalidateStudentStats(ctx context.Context, db *gorm.DB, attemptID uint) {
	var userID string
	if err := db.WithContext(ctx).
		Model(&models.UserAssessment{}).
		Where("id = ?", attemptID).
		Pluck("user_id", &userID).Error; err != nil || userID == "" {
		return
	}
	cache.InvalidateStudentStatsCache(ctx, a.cacheManager, userID)
}

func (a *AttemptPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.UserAssessment, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.UserAssessment
	var total int64

	query := db.WithContext(ctx).Model(&models.UserAssessment{}).Where("user_id = ?", userID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)
	if err := query.Preload("Assessment").Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.UserAssessment, int64, error) {
	filters.AssessmentID = &assessmentID
	db := a.getDB(tx)
	var attempts []*models.UserAssessment
	var total int64

	query := db.WithContext(ctx).Model(&models.UserAssessment{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = a.helpers.ApplyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

// GetStudentStats aggregates closed attempts only. COALESCE keeps the
// averages at 0 when the student has no closed attempts.
func (a *AttemptPostgreSQL) GetStudentStats(ctx context.Context, tx *gorm.DB, userID string) (*repositories.StudentStats, error) {
	// Transactional reads see in-flight changes, so they bypass the cache.
	if tx != nil {
		return a.computeStudentStats(ctx, tx, userID)
	}

	var stats *repositories.StudentStats
	cacheKey := fmt.Sprintf("student:%s:stats", userID)
	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return a.computeStudentStats(ctx, a.db, userID)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (a *AttemptPostgreSQL) computeStudentStats(ctx context.Context, db *gorm.DB, userID string) (*repositories.StudentStats, error) {
	stats := &repositories.StudentStats{
		ByType: make(map[models.AssessmentType]*repositories.TypeStats),
	}

	var overall struct {
		Completed int64
		Passed    int64
		AvgScore  float64
	}
	if err := db.WithContext(ctx).
		Model(&models.UserAssessment{}).
		Where("user_id = ? AND status = ?", userID, models.AttemptClosed).
		Select("COUNT(*) as completed, COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) as passed, COALESCE(AVG(score), 0) as avg_score").
		Scan(&overall).Error; err != nil {
		return nil, fmt.Errorf("failed to get student stats: %w", err)
	}

	stats.TotalCompleted = int(overall.Completed)
	stats.TotalPassed = int(overall.Passed)
	stats.AverageScore = overall.AvgScore

	var rows []struct {
		AssessmentType models.AssessmentType
		Completed      int64
		Passed         int64
		AvgScore       float64
	}
	if err := db.WithContext(ctx).
		Table("user_assessments ua").
		Joins("JOIN assessments a ON a.id = ua.assessment_id").
		Where("ua.user_id = ? AND ua.status = ?", userID, models.AttemptClosed).
		Select("a.assessment_type, COUNT(*) as completed, COALESCE(SUM(CASE WHEN ua.passed THEN 1 ELSE 0 END), 0) as passed, COALESCE(AVG(ua.score), 0) as avg_score").
		Group("a.assessment_type").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get student stats by type: %w", err)
	}

	// Every type gets an entry, zero-valued when unattempted.
	for _, t := range models.AssessmentTypes {
		stats.ByType[t] = &repositories.TypeStats{}
	}
	for _, row := range rows {
		stats.ByType[row.AssessmentType] = &repositories.TypeStats{
			Completed:    int(row.Completed),
			Passed:       int(row.Passed),
			AverageScore: row.AvgScore,
		}
	}

	return stats, nil
}

func (a *AttemptPostgreSQL) GetResults(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*repositories.AssessmentResult, error) {
	db := a.getDB(tx)
	var results []*repositories.AssessmentResult
	if err := db.WithContext(ctx).
		Model(&models.UserAssessment{}).
		Where("assessment_id = ? AND status = ?", assessmentID, models.AttemptClosed).
		Select("id as attempt_id, user_id, score, passed, started_at, completed_at").
		Order("completed_at ASC").
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessment results: %w", err)
	}
	return results, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// ===== USER ANSWER REPOSITORY IMPLEMENTATION =====

// UserAnswerPostgreSQL implements the UserAnswerRepository interface
type UserAnswerPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewUserAnswerPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserAnswerRepository {
	return &UserAnswerPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Upsert writes the answer for a (attempt, question) pair. ON CONFLICT on
// the unique index makes resubmission last-write-wins without a separate
// existence check.
func (ar *UserAnswerPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error {
	db := ar.getDB(tx)
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_assessment_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_answer_id", "text_answer", "result", "points_earned",
				"graded_by", "graded_at", "answered_at", "updated_at",
			}),
		}).
		Create(answer).Error; err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}

	ar.cacheManager.Fast.Delete(ctx,
		fmt.Sprintf("attempt:%d:answers", answer.UserAssessmentID),
		fmt.Sprintf("attempt:%d:question:%d", answer.UserAssessmentID, answer.QuestionID),
	)
	return nil
}

func (ar *UserAnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.UserAnswer, error) {
	db := ar.getDB(tx)
	var answer models.UserAnswer
	if err := db.WithContext(ctx).
		Where("user_assessment_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	return &answer, nil
}

func (ar *UserAnswerPostgreSQL) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.UserAnswer, error) {
	db := ar.getDB(tx)
	var answers []*models.UserAnswer
	if err := db.WithContext(ctx).
		Where("user_assessment_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers by attempt: %w", err)
	}
	return answers, nil
}

func (ar *UserAnswerPostgreSQL) CountByResult(ctx context.Context, tx *gorm.DB, attemptID uint, result models.AnswerResult) (int64, error) {
	db := ar.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.UserAnswer{}).
		Where("user_assessment_id = ? AND result = ?", attemptID, result).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count answers by result: %w", err)
	}
	return count, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (ar *UserAnswerPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return ar.db
}
