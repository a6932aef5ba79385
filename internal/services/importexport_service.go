package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// Import sheet layout, one question per row after the header:
//
//	A: question text
//	B: question type (multiple_choice, true_false, short_answer)
//	C: points
//	D: correct answer spec
//	   - choice types: 1-based index of the correct option, or a
//	     comma-separated list of indexes
//	   - short answer: comma-separated accepted answers
//	E..: option texts (choice types only)
const importSheetName = "Questions"

type importExportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewImportExportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ImportExportService {
	return &importExportService{repo: repo, db: db, logger: logger}
}

// ===== QUESTION IMPORT =====

func (s *importExportService) ImportQuestions(ctx context.Context, assessmentID uint, r io.Reader, userID string) (*ImportQuestionsResult, error) {
	assessment, err := s.getOwnedAssessment(ctx, assessmentID, userID, "import questions into")
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewValidationError("file", "not a readable xlsx workbook")
	}
	defer f.Close()

	sheet := importSheetName
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "workbook has no question rows")
	}

	result := &ImportQuestionsResult{}
	questions := make([]*models.Question, 0, len(rows)-1)
	order := 0
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		if rowEmpty(row) {
			continue
		}
		req, err := parseQuestionRow(row)
		if err != nil {
			result.RowErrors = append(result.RowErrors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		req.Order = order
		order++
		question, err := buildQuestionModel(assessmentID, req)
		if err != nil {
			result.RowErrors = append(result.RowErrors, ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		questions = append(questions, question)
	}

	if len(questions) > 0 {
		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			return txRepo.Question().CreateBatch(ctx, nil, questions)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to import questions: %w", err)
		}
	}
	result.Created = len(questions)

	s.logger.Info("Questions imported",
		"assessment_id", assessment.ID,
		"user_id", userID,
		"created", result.Created,
		"row_errors", len(result.RowErrors))
	return result, nil
}

func parseQuestionRow(row []string) (*CreateQuestionRequest, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("expected at least 4 columns, got %d", len(row))
	}

	text := strings.TrimSpace(row[0])
	if text == "" {
		return nil, fmt.Errorf("question text is empty")
	}

	qType := models.QuestionType(strings.ToLower(strings.TrimSpace(row[1])))
	if !qType.IsValid() {
		return nil, fmt.Errorf("unknown question type %q", row[1])
	}

	points := 1
	if v := strings.TrimSpace(row[2]); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			return nil, fmt.Errorf("invalid points value %q", row[2])
		}
		points = p
	}

	req := &CreateQuestionRequest{
		Text:         text,
		QuestionType: qType,
		Points:       points,
	}

	keySpec := strings.TrimSpace(row[3])
	if qType == models.ShortAnswer {
		for _, part := range strings.Split(keySpec, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.AcceptedAnswers = append(req.AcceptedAnswers, part)
			}
		}
		if len(req.AcceptedAnswers) == 0 {
			return nil, fmt.Errorf("short answer row needs at least one accepted answer")
		}
		return req, nil
	}

	options := make([]string, 0, len(row)-4)
	for _, cell := range row[4:] {
		if cell = strings.TrimSpace(cell); cell != "" {
			options = append(options, cell)
		}
	}
	correct, err := parseCorrectIndexes(keySpec, len(options))
	if err != nil {
		return nil, err
	}
	for i, option := range options {
		req.Answers = append(req.Answers, CreateAnswerRequest{
			Text:      option,
			IsCorrect: correct[i+1],
			Order:     i,
		})
	}
	return req, validateQuestionShape(req)
}

func parseCorrectIndexes(spec string, optionCount int) (map[int]bool, error) {
	correct := make(map[int]bool)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid correct answer index %q", part)
		}
		if idx < 1 || idx > optionCount {
			return nil, fmt.Errorf("correct answer index %d out of range 1..%d", idx, optionCount)
		}
		correct[idx] = true
	}
	if len(correct) == 0 {
		return nil, fmt.Errorf("no correct answer index given")
	}
	return correct, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ===== RESULT EXPORT =====

func (s *importExportService) ExportResults(ctx context.Context, assessmentID uint, w io.Writer, userID string) error {
	assessment, err := s.getOwnedAssessment(ctx, assessmentID, userID, "export results of")
	if err != nil {
		return err
	}

	results, err := s.repo.Attempt().GetResults(ctx, nil, assessmentID)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Attempt ID", "Student ID", "Score", "Passed", "Started At", "Completed At"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, result := range results {
		rowNum := i + 2
		values := []any{
			result.AttemptID,
			result.UserID,
			result.Score,
			result.Passed,
			result.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			result.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Results exported",
		"assessment_id", assessment.ID,
		"user_id", userID,
		"rows", len(results))
	return nil
}

// getOwnedAssessment mirrors the assessment service ownership rule:
// creator or admin.
func (s *importExportService) getOwnedAssessment(ctx context.Context, id uint, userID, action string) (*models.Assessment, error) {
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
