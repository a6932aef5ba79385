package services

import (
	"testing"

	"github.com/SAP-F-2025/grading-service/internal/models"
)

func choiceQuestion(id uint, points int, correctID uint, optionIDs ...uint) *models.Question {
	q := &models.Question{
		ID:           id,
		AssessmentID: 1,
		QuestionType: models.MultipleChoice,
		Points:       points,
	}
	for _, optionID := range optionIDs {
		q.Answers = append(q.Answers, models.Answer{
			ID:        optionID,
			IsCorrect: optionID == correctID,
		})
	}
	return q
}

func uintPtr(v uint) *uint { return &v }

func TestGradeAnswer_Choice(t *testing.T) {
	question := choiceQuestion(10, 5, 101, 101, 102, 103)

	tests := []struct {
		name       string
		req        *SubmitAnswerRequest
		wantResult models.AnswerResult
		wantPoints float64
		wantErr    bool
	}{
		{
			name:       "correct option gives full points",
			req:        &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(101)},
			wantResult: models.ResultCorrect,
			wantPoints: 5,
		},
		{
			name:       "wrong option gives zero points",
			req:        &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(102)},
			wantResult: models.ResultIncorrect,
			wantPoints: 0,
		},
		{
			name:    "missing selection is rejected",
			req:     &SubmitAnswerRequest{QuestionID: 10},
			wantErr: true,
		},
		{
			name:    "option from another question is rejected",
			req:     &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(999)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, points, err := gradeAnswer(question, tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsValidationError(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.wantResult {
				t.Errorf("result = %v, want %v", result, tt.wantResult)
			}
			if points != tt.wantPoints {
				t.Errorf("points = %v, want %v", points, tt.wantPoints)
			}
		})
	}
}

func TestGradeAnswer_TrueFalse(t *testing.T) {
	question := &models.Question{
		ID:           20,
		QuestionType: models.TrueFalse,
		Points:       2,
		Answers: []models.Answer{
			{ID: 201, Text: "True", IsCorrect: true},
			{ID: 202, Text: "False", IsCorrect: false},
		},
	}

	result, points, err := gradeAnswer(question, &SubmitAnswerRequest{SelectedAnswerID: uintPtr(201)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != models.ResultCorrect || points != 2 {
		t.Errorf("got (%v, %v), want (correct, 2)", result, points)
	}
}

func TestGradeAnswer_ShortAnswerIsUndetermined(t *testing.T) {
	question := &models.Question{
		ID:           30,
		QuestionType: models.ShortAnswer,
		Points:       4,
	}

	result, points, err := gradeAnswer(question, &SubmitAnswerRequest{TextAnswer: "photosynthesis"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != models.ResultUndetermined {
		t.Errorf("result = %v, want undetermined", result)
	}
	if points != 0 {
		t.Errorf("points = %v, want 0 before review", points)
	}
}

func TestGradeAnswer_UnknownTypeRejected(t *testing.T) {
	question := &models.Question{QuestionType: "essay"}

	_, _, err := gradeAnswer(question, &SubmitAnswerRequest{})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    float64
	}{
		{"empty assessment scores zero", 0, 0, 0},
		{"all correct", 4, 4, 100},
		{"three of four", 3, 4, 75},
		{"half answered counts rest as wrong", 2, 4, 50},
		{"none correct", 0, 5, 0},
		{"one of three", 1, 3, 100.0 / 3.0},
		{"two of three", 2, 3, 2.0 / 3.0 * 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeScore(tt.correct, tt.total); got != tt.want {
				t.Errorf("computeScore(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
			}
		})
	}
}

func TestComputeScore_Monotonic(t *testing.T) {
	// More correct answers on the same assessment never lowers the score.
	const total = 10
	prev := -1.0
	for correct := 0; correct <= total; correct++ {
		score := computeScore(correct, total)
		if score < prev {
			t.Fatalf("score dropped from %v to %v at correct=%d", prev, score, correct)
		}
		prev = score
	}
}

func TestIsPassed(t *testing.T) {
	tests := []struct {
		name         string
		score        float64
		passingScore float64
		want         bool
	}{
		{"above threshold", 80, 70, true},
		{"exactly at threshold passes", 70, 70, true},
		{"below threshold", 69.9, 70, false},
		{"zero threshold always passes", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPassed(tt.score, tt.passingScore); got != tt.want {
				t.Errorf("isPassed(%v, %v) = %v, want %v", tt.score, tt.passingScore, got, tt.want)
			}
		})
	}
}
