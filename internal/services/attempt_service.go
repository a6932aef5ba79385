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

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher events.Publisher) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== LIFECYCLE OPERATIONS =====

// Start opens an attempt on an active assessment. A student who already
// has an open attempt on the assessment resumes it instead of getting a
// second one.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, userID string) (*AttemptResponse, error) {
	s.logger.Info("Starting attempt", "user_id", userID, "assessment_id", req.AssessmentID)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assessment", req.AssessmentID)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if !assessment.IsActive {
		return nil, NewValidationError("assessment_id", "assessment is not active")
	}

	existing, err := s.repo.Attempt().GetOpen(ctx, nil, userID, req.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open attempt: %w", err)
	}
	if existing != nil {
		existing.Assessment = *assessment
		return s.buildAttemptResponse(ctx, existing, userID, true)
	}

	attempt := &models.UserAssessment{
		UserID:       userID,
		AssessmentID: req.AssessmentID,
		Status:       models.AttemptOpen,
		StartedAt:    time.Now().UTC(),
	}
	if err := s.repo.Attempt().Create(ctx, nil, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	attempt.Assessment = *assessment
	return s.buildAttemptResponse(ctx, attempt, userID, false)
}

// SubmitAnswer grades and records one answer on an open attempt.
// Resubmitting a question replaces the previous answer (last write wins).
func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, userID string) (*SubmitAnswerResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsOpen() {
		return nil, NewInvalidStateError(string(attempt.Status), "submit answer")
	}

	question, err := s.repo.Question().GetByID(ctx, nil, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("question", req.QuestionID)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.AssessmentID != attempt.AssessmentID {
		return nil, NewValidationError("question_id", "question does not belong to the attempt's assessment")
	}

	result, points, err := gradeAnswer(question, req)
	if err != nil {
		return nil, err
	}

	answer := &models.UserAnswer{
		UserAssessmentID: attempt.ID,
		QuestionID:       question.ID,
		SelectedAnswerID: req.SelectedAnswerID,
		TextAnswer:       req.TextAnswer,
		Result:           result,
		PointsEarned:     points,
		AnsweredAt:       time.Now().UTC(),
	}
	if err := s.repo.UserAnswer().Upsert(ctx, nil, answer); err != nil {
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}

	s.logger.Debug("Answer submitted",
		"attempt_id", attempt.ID,
		"question_id", question.ID,
		"result", result)

	return &SubmitAnswerResponse{
		QuestionID:   question.ID,
		Result:       result,
		PointsEarned: points,
		AnsweredAt:   answer.AnsweredAt,
	}, nil
}

// Complete closes the attempt and computes the final score. The close is
// a conditional update on status, so a concurrent duplicate call loses
// and gets an InvalidStateError instead of a second finalization.
func (s *attemptService) Complete(ctx context.Context, attemptID uint, userID string) (*CompleteAttemptResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	if !attempt.IsOpen() {
		return nil, NewInvalidStateError(string(attempt.Status), "complete attempt")
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, attempt.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assessment", attempt.AssessmentID)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	var resp *CompleteAttemptResponse
	completedAt := time.Now().UTC()

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		totalQuestions, err := txRepo.Question().CountByAssessment(ctx, nil, attempt.AssessmentID)
		if err != nil {
			return err
		}
		correctCount, err := txRepo.UserAnswer().CountByResult(ctx, nil, attempt.ID, models.ResultCorrect)
		if err != nil {
			return err
		}
		pendingCount, err := txRepo.UserAnswer().CountByResult(ctx, nil, attempt.ID, models.ResultUndetermined)
		if err != nil {
			return err
		}

		score := computeScore(int(correctCount), int(totalQuestions))
		passed := isPassed(score, assessment.PassingScore)

		closed, err := txRepo.Attempt().Close(ctx, nil, attempt.ID, score, passed, completedAt)
		if err != nil {
			return err
		}
		if !closed {
			return NewInvalidStateError(string(models.AttemptClosed), "complete attempt")
		}

		resp = &CompleteAttemptResponse{
			AttemptID:      attempt.ID,
			Score:          score,
			Passed:         passed,
			CorrectCount:   int(correctCount),
			TotalQuestions: int(totalQuestions),
			PendingReview:  int(pendingCount),
			CompletedAt:    completedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt completed",
		"attempt_id", attempt.ID,
		"user_id", userID,
		"score", resp.Score,
		"passed", resp.Passed)

	if err := s.publisher.PublishAttemptCompleted(ctx, &events.AttemptCompletedEvent{
		AttemptID:      attempt.ID,
		UserID:         userID,
		AssessmentID:   assessment.ID,
		AssessmentType: assessment.AssessmentType,
		Score:          resp.Score,
		Passed:         resp.Passed,
		CompletedAt:    completedAt,
	}); err != nil {
		// Event delivery must not undo a committed completion.
		s.logger.Error("Failed to publish attempt completed event",
			"attempt_id", attempt.ID, "error", err)
	}

	return resp, nil
}

// ===== READ OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		staff, err := s.isStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, NewPermissionError(userID, "attempt", "read", "not the attempt owner")
		}
	}

	return s.buildAttemptResponse(ctx, attempt, userID, false)
}

func (s *attemptService) ListByStudent(ctx context.Context, studentID string, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	if studentID != userID {
		staff, err := s.isStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !staff {
			return nil, NewPermissionError(userID, "attempts", "list", "students may only list their own attempts")
		}
	}

	attempts, total, err := s.repo.Attempt().ListByUser(ctx, nil, studentID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		resp := &AttemptResponse{UserAssessment: attempt}
		// List rows preload the assessment without questions; sanitize
		// anyway so no answer key can ride along.
		if attempt.Assessment.ID != 0 {
			resp.Assessment = buildAssessmentResponse(&attempt.Assessment, false)
		}
		responses = append(responses, resp)
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}
