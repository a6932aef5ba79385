package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/grading-service/internal/models"
)

func TestParseQuestionRow(t *testing.T) {
	tests := []struct {
		name    string
		row     []string
		wantErr bool
		check   func(t *testing.T, req *CreateQuestionRequest)
	}{
		{
			name: "multiple choice",
			row:  []string{"1/2 + 1/2 = ?", "multiple_choice", "2", "1", "1", "2", "1/4"},
			check: func(t *testing.T, req *CreateQuestionRequest) {
				if req.QuestionType != models.MultipleChoice || req.Points != 2 {
					t.Errorf("got %v/%d, want multiple_choice/2", req.QuestionType, req.Points)
				}
				if len(req.Answers) != 3 {
					t.Fatalf("answers = %d, want 3", len(req.Answers))
				}
				if !req.Answers[0].IsCorrect || req.Answers[1].IsCorrect {
					t.Error("correct marker not applied to option 1 only")
				}
			},
		},
		{
			name: "multiple correct indexes",
			row:  []string{"Pick the even numbers", "multiple_choice", "1", "1,3", "2", "5", "8"},
			check: func(t *testing.T, req *CreateQuestionRequest) {
				if !req.Answers[0].IsCorrect || req.Answers[1].IsCorrect || !req.Answers[2].IsCorrect {
					t.Error("correct markers not applied to options 1 and 3")
				}
			},
		},
		{
			name: "true false",
			row:  []string{"Water boils at 100C.", "true_false", "1", "1", "True", "False"},
			check: func(t *testing.T, req *CreateQuestionRequest) {
				if req.QuestionType != models.TrueFalse || len(req.Answers) != 2 {
					t.Errorf("got %v with %d answers, want true_false with 2", req.QuestionType, len(req.Answers))
				}
			},
		},
		{
			name: "short answer with accepted answers",
			row:  []string{"Name the largest planet.", "short_answer", "2", "Jupiter, jupiter"},
			check: func(t *testing.T, req *CreateQuestionRequest) {
				if len(req.AcceptedAnswers) != 2 {
					t.Fatalf("accepted answers = %v, want two entries", req.AcceptedAnswers)
				}
				if len(req.Answers) != 0 {
					t.Error("short answer row produced options")
				}
			},
		},
		{
			name: "defaults points to one when blank",
			row:  []string{"True or false?", "true_false", "", "2", "True", "False"},
			check: func(t *testing.T, req *CreateQuestionRequest) {
				if req.Points != 1 {
					t.Errorf("points = %d, want default 1", req.Points)
				}
			},
		},
		{name: "too few columns", row: []string{"Text", "true_false"}, wantErr: true},
		{name: "empty text", row: []string{"  ", "true_false", "1", "1", "True", "False"}, wantErr: true},
		{name: "unknown type", row: []string{"Q", "essay", "1", "1", "A", "B"}, wantErr: true},
		{name: "negative points", row: []string{"Q", "true_false", "-1", "1", "True", "False"}, wantErr: true},
		{name: "correct index out of range", row: []string{"Q", "true_false", "1", "3", "True", "False"}, wantErr: true},
		{name: "non-numeric correct index", row: []string{"Q", "true_false", "1", "first", "True", "False"}, wantErr: true},
		{name: "short answer without accepted answers", row: []string{"Q", "short_answer", "1", " "}, wantErr: true},
		{name: "choice with one option", row: []string{"Q", "multiple_choice", "1", "1", "Only"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseQuestionRow(tt.row)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQuestionRow failed: %v", err)
			}
			if tt.check != nil {
				tt.check(t, req)
			}
		})
	}
}

func TestImportQuestions(t *testing.T) {
	ctx := context.Background()

	buildWorkbook := func(t *testing.T, rows [][]any) *bytes.Buffer {
		t.Helper()
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)
		for r, row := range rows {
			for c, value := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellValue(sheet, cell, value); err != nil {
					t.Fatalf("SetCellValue failed: %v", err)
				}
			}
		}
		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			t.Fatalf("workbook write failed: %v", err)
		}
		return &buf
	}

	header := []any{"Text", "Type", "Points", "Correct", "Option 1", "Option 2"}

	t.Run("creates valid rows and reports bad ones", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := NewImportExportService(repo, nil, testLogger())

		buf := buildWorkbook(t, [][]any{
			header,
			{"3/4 of 8 = ?", "multiple_choice", 2, "1", "6", "4"},
			{"A half is 50%.", "true_false", 1, "1", "True", "False"},
			{"Q without a type", "", 1, "1", "A", "B"},
			{"Name any prime.", "short_answer", 1, "2, 3, 5, 7"},
		})

		result, err := svc.ImportQuestions(ctx, 1, buf, "teacher-1")
		if err != nil {
			t.Fatalf("ImportQuestions failed: %v", err)
		}
		if result.Created != 3 {
			t.Errorf("created = %d, want 3", result.Created)
		}
		if len(result.RowErrors) != 1 {
			t.Fatalf("row errors = %+v, want exactly one", result.RowErrors)
		}
		if result.RowErrors[0].Row != 4 {
			t.Errorf("bad row reported as %d, want 4", result.RowErrors[0].Row)
		}

		var imported int
		for _, q := range repo.questions {
			if q.AssessmentID == 1 && q.ID >= 13 {
				imported++
			}
		}
		if imported != 3 {
			t.Errorf("stored imported questions = %d, want 3", imported)
		}
	})

	t.Run("rejects a workbook with no question rows", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := NewImportExportService(repo, nil, testLogger())

		buf := buildWorkbook(t, [][]any{header})
		if _, err := svc.ImportQuestions(ctx, 1, buf, "teacher-1"); !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects garbage that is not a workbook", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := NewImportExportService(repo, nil, testLogger())

		if _, err := svc.ImportQuestions(ctx, 1, bytes.NewBufferString("not an xlsx"), "teacher-1"); !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("only the creator or an admin may import", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := NewImportExportService(repo, nil, testLogger())

		buf := buildWorkbook(t, [][]any{header, {"Q", "true_false", 1, "1", "True", "False"}})
		if _, err := svc.ImportQuestions(ctx, 1, buf, "student-1"); !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})
}

func TestExportResults(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	seedMathQuiz(repo)
	attemptSvc := newTestAttemptService(repo, &recordingPublisher{})

	started, _ := attemptSvc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
	attemptSvc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(101)}, "student-1")
	attemptSvc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 11, SelectedAnswerID: uintPtr(111)}, "student-1")
	if _, err := attemptSvc.Complete(ctx, started.ID, "student-1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	// A still-open attempt that must not appear in the export.
	if _, err := attemptSvc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-2"); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	svc := NewImportExportService(repo, nil, testLogger())

	var buf bytes.Buffer
	if err := svc.ExportResults(ctx, 1, &buf, "teacher-1"); err != nil {
		t.Fatalf("ExportResults failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("exported workbook is unreadable: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("Results sheet missing: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("exported rows = %d, want header plus one closed attempt", len(rows))
	}
	if rows[0][0] != "Attempt ID" || rows[0][1] != "Student ID" {
		t.Errorf("unexpected header row %v", rows[0])
	}
	if rows[1][1] != "student-1" {
		t.Errorf("exported student = %q, want student-1", rows[1][1])
	}

	t.Run("students cannot export", func(t *testing.T) {
		var out bytes.Buffer
		if err := svc.ExportResults(ctx, 1, &out, "student-1"); !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})
}
