package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
	"github.com/SAP-F-2025/grading-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.requireStaff(ctx, creatorID, "create"); err != nil {
		return nil, err
	}

	for i := range req.Questions {
		if err := validateQuestionShape(&req.Questions[i]); err != nil {
			return nil, err
		}
	}

	assessment := &models.Assessment{
		Title:          req.Title,
		Description:    req.Description,
		Subject:        req.Subject,
		GradeLevel:     req.GradeLevel,
		AssessmentType: req.AssessmentType,
		Difficulty:     req.Difficulty,
		TimeLimit:      req.TimeLimit,
		PassingScore:   req.PassingScore,
		IsActive:       true,
		CreatedBy:      creatorID,
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Assessment().Create(ctx, nil, assessment); err != nil {
			return fmt.Errorf("failed to create assessment: %w", err)
		}
		if len(req.Questions) == 0 {
			return nil
		}

		questions := make([]*models.Question, 0, len(req.Questions))
		for i := range req.Questions {
			question, err := buildQuestionModel(assessment.ID, &req.Questions[i])
			if err != nil {
				return err
			}
			questions = append(questions, question)
		}
		return txRepo.Question().CreateBatch(ctx, nil, questions)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Assessment created",
		"assessment_id", assessment.ID,
		"creator_id", creatorID,
		"questions", len(req.Questions))

	return s.loadResponse(ctx, assessment.ID, true)
}

func (s *assessmentService) Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	assessment, err := s.getOwnedAssessment(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = req.Description
	}
	if req.Difficulty != nil {
		assessment.Difficulty = *req.Difficulty
	}
	if req.TimeLimit != nil {
		assessment.TimeLimit = req.TimeLimit
	}
	if req.PassingScore != nil {
		assessment.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info("Assessment updated", "assessment_id", id, "user_id", userID)
	return s.loadResponse(ctx, id, true)
}

func (s *assessmentService) Delete(ctx context.Context, id uint, userID string) error {
	if _, err := s.getOwnedAssessment(ctx, id, userID, "delete"); err != nil {
		return err
	}

	if err := s.repo.Assessment().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}

	s.logger.Info("Assessment deleted", "assessment_id", id, "user_id", userID)
	return nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uint, userID string) (*AssessmentResponse, error) {
	staff, err := s.isStaff(ctx, userID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assessment", id)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	// Inactive assessments are invisible to students.
	if !staff && !assessment.IsActive {
		return nil, NewNotFoundError("assessment", id)
	}

	return buildAssessmentResponse(assessment, staff), nil
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters, userID string) (*AssessmentListResponse, error) {
	staff, err := s.isStaff(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !staff {
		filters.ActiveOnly = true
	}
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}

	assessments, total, err := s.repo.Assessment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	resp := &AssessmentListResponse{
		Assessments: make([]*AssessmentResponse, 0, len(assessments)),
		Total:       total,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}
	for _, assessment := range assessments {
		resp.Assessments = append(resp.Assessments, &AssessmentResponse{Assessment: assessment})
	}
	return resp, nil
}

// ===== QUESTION MANAGEMENT =====

func (s *assessmentService) AddQuestion(ctx context.Context, assessmentID uint, req *CreateQuestionRequest, userID string) (*QuestionResponse, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := validateQuestionShape(req); err != nil {
		return nil, err
	}
	if _, err := s.getOwnedAssessment(ctx, assessmentID, userID, "add question to"); err != nil {
		return nil, err
	}

	question, err := buildQuestionModel(assessmentID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question added",
		"assessment_id", assessmentID,
		"question_id", question.ID,
		"user_id", userID)

	return buildQuestionResponse(question, true), nil
}

func (s *assessmentService) RemoveQuestion(ctx context.Context, assessmentID, questionID uint, userID string) error {
	if _, err := s.getOwnedAssessment(ctx, assessmentID, userID, "remove question from"); err != nil {
		return err
	}

	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return NewNotFoundError("question", questionID)
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.AssessmentID != assessmentID {
		return NewValidationError("question_id", "question does not belong to this assessment")
	}

	if err := s.repo.Question().Delete(ctx, nil, questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question removed",
		"assessment_id", assessmentID,
		"question_id", questionID,
		"user_id", userID)
	return nil
}

// ===== HELPERS =====

func (s *assessmentService) isStaff(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve user role: %w", err)
	}
	return user.Role == models.RoleTeacher || user.Role == models.RoleAdmin, nil
}

func (s *assessmentService) requireStaff(ctx context.Context, userID, action string) error {
	staff, err := s.isStaff(ctx, userID)
	if err != nil {
		return err
	}
	if !staff {
		return NewPermissionError(userID, "assessment", action, "requires the teacher or admin role")
	}
	return nil
}

// getOwnedAssessment enforces that the caller created the assessment or
// holds the admin role.
func (s *assessmentService) getOwnedAssessment(ctx context.Context, id uint, userID, action string) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewNotFoundError("assessment", id)
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if assessment.CreatedBy != userID {
		admin, err := s.repo.User().HasRole(ctx, userID, models.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user role: %w", err)
		}
		if !admin {
			return nil, NewPermissionError(userID, "assessment", action, "not the assessment creator")
		}
	}
	return assessment, nil
}

func (s *assessmentService) loadResponse(ctx context.Context, id uint, showKey bool) (*AssessmentResponse, error) {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload assessment: %w", err)
	}
	return buildAssessmentResponse(assessment, showKey), nil
}

// validateQuestionShape checks the structural rules per question type:
// choice questions need at least two options with at least one correct,
// true/false needs exactly two, short answers carry no options.
func validateQuestionShape(req *CreateQuestionRequest) error {
	switch req.QuestionType {
	case models.MultipleChoice:
		if len(req.Answers) < 2 {
			return NewValidationError("answers", "multiple choice questions need at least two options")
		}
	case models.TrueFalse:
		if len(req.Answers) != 2 {
			return NewValidationError("answers", "true/false questions need exactly two options")
		}
	case models.ShortAnswer:
		if len(req.Answers) != 0 {
			return NewValidationError("answers", "short answer questions take no options")
		}
		return nil
	default:
		return NewValidationError("question_type", fmt.Sprintf("unknown question type %q", req.QuestionType))
	}

	correct := 0
	for i := range req.Answers {
		if req.Answers[i].IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		return NewValidationError("answers", "at least one option must be marked correct")
	}
	return nil
}

func buildQuestionModel(assessmentID uint, req *CreateQuestionRequest) (*models.Question, error) {
	points := req.Points
	if points <= 0 {
		points = 1
	}

	question := &models.Question{
		AssessmentID: assessmentID,
		Text:         req.Text,
		QuestionType: req.QuestionType,
		Points:       points,
		Order:        req.Order,
		Explanation:  req.Explanation,
	}

	if req.QuestionType == models.ShortAnswer && len(req.AcceptedAnswers) > 0 {
		key, err := json.Marshal(models.ShortAnswerKey{AcceptedAnswers: req.AcceptedAnswers})
		if err != nil {
			return nil, fmt.Errorf("failed to encode answer key: %w", err)
		}
		question.AnswerKey = key
	}

	for i := range req.Answers {
		question.Answers = append(question.Answers, models.Answer{
			Text:      req.Answers[i].Text,
			IsCorrect: req.Answers[i].IsCorrect,
			Order:     req.Answers[i].Order,
		})
	}
	return question, nil
}
