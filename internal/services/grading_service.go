package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/events"
	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
	"github.com/SAP-F-2025/grading-service/internal/validator"
)

type gradingService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

func NewGradingService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher) GradingService {
	return &gradingService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// GradeManually resolves a short answer to correct or incorrect. When the
// attempt has already closed, the recorded score and pass flag are
// recomputed from the updated results.
func (s *gradingService) GradeManually(ctx context.Context, attemptID, questionID uint, req *ManualGradeRequest, graderID string) (*SubmitAnswerResponse, error) {
	grader, err := s.repo.User().GetByID(ctx, graderID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve grader: %w", err)
	}
	if grader.Role != models.RoleTeacher && grader.Role != models.RoleAdmin {
		return nil, NewPermissionError(graderID, "answer", "grade", "manual grading requires the teacher or admin role")
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("question", questionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.QuestionType != models.ShortAnswer {
		return nil, NewValidationError("question_id", "only short answer questions are graded manually")
	}

	answer, err := s.repo.UserAnswer().GetByAttemptAndQuestion(ctx, nil, attemptID, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("answer", fmt.Sprintf("attempt %d question %d", attemptID, questionID))
		}
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}

	result := models.ResultIncorrect
	points := 0.0
	if req.Correct {
		result = models.ResultCorrect
		points = float64(question.Points)
	}

	now := time.Now().UTC()
	answer.Result = result
	answer.PointsEarned = points
	answer.GradedBy = &graderID
	answer.GradedAt = &now

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.UserAnswer().Upsert(ctx, nil, answer); err != nil {
			return err
		}
		if attempt.Status == models.AttemptClosed {
			return s.recomputeClosedAttempt(ctx, txRepo, attempt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer graded manually",
		"attempt_id", attemptID,
		"question_id", questionID,
		"grader_id", graderID,
		"result", result)

	if err := s.publisher.PublishAnswerGraded(ctx, &events.AnswerGradedEvent{
		AttemptID:  attemptID,
		QuestionID: questionID,
		UserID:     attempt.UserID,
		GradedBy:   graderID,
		Result:     result,
		GradedAt:   now,
	}); err != nil {
		s.logger.Error("Failed to publish answer graded event",
			"attempt_id", attemptID, "error", err)
	}

	return &SubmitAnswerResponse{
		QuestionID:   questionID,
		Result:       result,
		PointsEarned: points,
		AnsweredAt:   answer.AnsweredAt,
	}, nil
}

func (s *gradingService) recomputeClosedAttempt(ctx context.Context, txRepo repositories.Repository, attempt *models.UserAssessment) error {
	assessment, err := txRepo.Assessment().GetByID(ctx, nil, attempt.AssessmentID)
	if err != nil {
		return fmt.Errorf("failed to get assessment: %w", err)
	}

	totalQuestions, err := txRepo.Question().CountByAssessment(ctx, nil, attempt.AssessmentID)
	if err != nil {
		return err
	}
	correctCount, err := txRepo.UserAnswer().CountByResult(ctx, nil, attempt.ID, models.ResultCorrect)
	if err != nil {
		return err
	}

	score := computeScore(int(correctCount), int(totalQuestions))
	passed := isPassed(score, assessment.PassingScore)
	return txRepo.Attempt().UpdateScore(ctx, nil, attempt.ID, score, passed)
}
