package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// getOwnedAttempt loads an attempt and enforces that the caller owns it.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, userID string) (*models.UserAssessment, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, nil, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != userID {
		return nil, NewPermissionError(userID, "attempt", "modify", "not the attempt owner")
	}
	return attempt, nil
}

// isStaff reports whether the user carries the teacher or admin role.
func (s *attemptService) isStaff(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve user role: %w", err)
	}
	return user.Role == models.RoleTeacher || user.Role == models.RoleAdmin, nil
}

// buildAttemptResponse assembles the attempt view for one caller.
// Correct answers and explanations stay hidden from the student while the
// attempt is open; staff always see them; after the attempt closes the
// student gets the full review view.
func (s *attemptService) buildAttemptResponse(ctx context.Context, attempt *models.UserAssessment, userID string, resumed bool) (*AttemptResponse, error) {
	showKey := attempt.Status == models.AttemptClosed
	if !showKey && attempt.UserID != userID {
		staff, err := s.isStaff(ctx, userID)
		if err != nil {
			return nil, err
		}
		showKey = staff
	}

	resp := &AttemptResponse{
		UserAssessment: attempt,
		Resumed:        resumed,
	}

	if attempt.Assessment.ID != 0 {
		resp.Assessment = buildAssessmentResponse(&attempt.Assessment, showKey)
	}

	for _, answer := range attempt.Answers {
		resp.Answers = append(resp.Answers, &UserAnswerResponse{
			QuestionID:       answer.QuestionID,
			SelectedAnswerID: answer.SelectedAnswerID,
			TextAnswer:       answer.TextAnswer,
			Result:           answer.Result,
			PointsEarned:     answer.PointsEarned,
			AnsweredAt:       answer.AnsweredAt,
		})
	}

	return resp, nil
}

// buildAssessmentResponse converts a catalog assessment to its response
// form, stripping the answer key unless showKey is set.
func buildAssessmentResponse(assessment *models.Assessment, showKey bool) *AssessmentResponse {
	resp := &AssessmentResponse{Assessment: assessment}
	for i := range assessment.Questions {
		resp.Questions = append(resp.Questions, buildQuestionResponse(&assessment.Questions[i], showKey))
	}
	// The model's own Questions relation would bypass the sanitizer if
	// serialized; the response carries the sanitized copies instead.
	assessment.Questions = nil
	return resp
}

func buildQuestionResponse(question *models.Question, showKey bool) *QuestionResponse {
	resp := &QuestionResponse{
		ID:           question.ID,
		Text:         question.Text,
		QuestionType: question.QuestionType,
		Points:       question.Points,
		Order:        question.Order,
	}
	if showKey {
		resp.Explanation = question.Explanation
	}

	for i := range question.Answers {
		answer := &question.Answers[i]
		ar := &AnswerResponse{
			ID:    answer.ID,
			Text:  answer.Text,
			Order: answer.Order,
		}
		if showKey {
			isCorrect := answer.IsCorrect
			ar.IsCorrect = &isCorrect
		}
		resp.Answers = append(resp.Answers, ar)
	}
	return resp
}
