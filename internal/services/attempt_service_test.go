package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
	"github.com/SAP-F-2025/grading-service/internal/validator"
)

func newTestAttemptService(repo *fakeRepository, publisher *recordingPublisher) AttemptService {
	return NewAttemptService(repo, nil, testLogger(), validator.New(), publisher)
}

func TestAttemptService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an open attempt", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})

		resp, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.Status != models.AttemptOpen {
			t.Errorf("status = %v, want open", resp.Status)
		}
		if resp.Resumed {
			t.Error("fresh attempt reported as resumed")
		}
		if resp.Assessment == nil || len(resp.Assessment.Questions) != 3 {
			t.Fatalf("expected assessment with 3 questions in response")
		}
	})

	t.Run("resumes the existing open attempt", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})

		first, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if err != nil {
			t.Fatalf("first Start failed: %v", err)
		}
		second, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if err != nil {
			t.Fatalf("second Start failed: %v", err)
		}
		if !second.Resumed {
			t.Error("second Start did not resume")
		}
		if second.ID != first.ID {
			t.Errorf("resumed attempt ID = %d, want %d", second.ID, first.ID)
		}
		if len(repo.attempts) != 1 {
			t.Errorf("attempt count = %d, want 1", len(repo.attempts))
		}
	})

	t.Run("rejects inactive assessments", func(t *testing.T) {
		repo := newFakeRepository()
		assessment := seedMathQuiz(repo)
		assessment.IsActive = false
		svc := newTestAttemptService(repo, &recordingPublisher{})

		_, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown assessment is not found", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})

		_, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 99}, "student-1")
		if !IsNotFoundError(err) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestAttemptService_SubmitAnswer(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeRepository, AttemptService, uint) {
		t.Helper()
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})
		resp, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		return repo, svc, resp.ID
	}

	t.Run("grades a choice answer immediately", func(t *testing.T) {
		_, svc, attemptID := setup(t)

		resp, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID:       10,
			SelectedAnswerID: uintPtr(101),
		}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if resp.Result != models.ResultCorrect {
			t.Errorf("result = %v, want correct", resp.Result)
		}
		if resp.PointsEarned != 2 {
			t.Errorf("points = %v, want 2", resp.PointsEarned)
		}
	})

	t.Run("short answer stays undetermined", func(t *testing.T) {
		_, svc, attemptID := setup(t)

		resp, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 12,
			TextAnswer: "the bottom number of a fraction",
		}, "student-1")
		if err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
		if resp.Result != models.ResultUndetermined {
			t.Errorf("result = %v, want undetermined", resp.Result)
		}
	})

	t.Run("resubmission replaces the previous answer", func(t *testing.T) {
		repo, svc, attemptID := setup(t)

		if _, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 10, SelectedAnswerID: uintPtr(102),
		}, "student-1"); err != nil {
			t.Fatalf("first submit failed: %v", err)
		}
		resp, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 10, SelectedAnswerID: uintPtr(101),
		}, "student-1")
		if err != nil {
			t.Fatalf("resubmit failed: %v", err)
		}
		if resp.Result != models.ResultCorrect {
			t.Errorf("resubmitted result = %v, want correct", resp.Result)
		}

		stored, err := repo.UserAnswer().GetByAttemptAndQuestion(ctx, nil, attemptID, 10)
		if err != nil {
			t.Fatalf("stored answer not found: %v", err)
		}
		if stored.Result != models.ResultCorrect || *stored.SelectedAnswerID != 101 {
			t.Errorf("stored answer not replaced: result=%v selected=%v", stored.Result, *stored.SelectedAnswerID)
		}
		if len(repo.answers) != 1 {
			t.Errorf("answer rows = %d, want 1 after resubmission", len(repo.answers))
		}
	})

	t.Run("rejects questions from another assessment", func(t *testing.T) {
		repo, svc, attemptID := setup(t)
		repo.questions[50] = &models.Question{
			ID: 50, AssessmentID: 2, QuestionType: models.TrueFalse, Points: 1,
			Answers: []models.Answer{{ID: 501, IsCorrect: true}, {ID: 502}},
		}

		_, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 50, SelectedAnswerID: uintPtr(501),
		}, "student-1")
		if !IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects submission to a closed attempt", func(t *testing.T) {
		_, svc, attemptID := setup(t)
		if _, err := svc.Complete(ctx, attemptID, "student-1"); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}

		_, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 10, SelectedAnswerID: uintPtr(101),
		}, "student-1")
		if !IsInvalidStateError(err) {
			t.Fatalf("expected invalid state error, got %v", err)
		}
	})

	t.Run("rejects another student's attempt", func(t *testing.T) {
		_, svc, attemptID := setup(t)

		_, err := svc.SubmitAnswer(ctx, attemptID, &SubmitAnswerRequest{
			QuestionID: 10, SelectedAnswerID: uintPtr(101),
		}, "student-2")
		if !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})
}

func TestAttemptService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("scores by correct count over total questions", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		publisher := &recordingPublisher{}
		svc := newTestAttemptService(repo, publisher)

		started, _ := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		// 2 of 3 correct; the short answer is never submitted.
		svc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(101)}, "student-1")
		svc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 11, SelectedAnswerID: uintPtr(111)}, "student-1")

		resp, err := svc.Complete(ctx, started.ID, "student-1")
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		want := 2.0 / 3.0 * 100
		if resp.Score != want {
			t.Errorf("score = %v, want %v", resp.Score, want)
		}
		if resp.CorrectCount != 2 || resp.TotalQuestions != 3 {
			t.Errorf("counts = %d/%d, want 2/3", resp.CorrectCount, resp.TotalQuestions)
		}
		if resp.Passed {
			t.Error("66.7 should not pass a 70 threshold")
		}

		if len(publisher.completed) != 1 {
			t.Fatalf("published events = %d, want 1", len(publisher.completed))
		}
		if publisher.completed[0].Score != want {
			t.Errorf("event score = %v, want %v", publisher.completed[0].Score, want)
		}
	})

	t.Run("undetermined answers count as not correct", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})

		started, _ := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		svc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 10, SelectedAnswerID: uintPtr(101)}, "student-1")
		svc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 11, SelectedAnswerID: uintPtr(111)}, "student-1")
		svc.SubmitAnswer(ctx, started.ID, &SubmitAnswerRequest{QuestionID: 12, TextAnswer: "bottom number"}, "student-1")

		resp, err := svc.Complete(ctx, started.ID, "student-1")
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if resp.CorrectCount != 2 {
			t.Errorf("correct count = %d, want 2 with review pending", resp.CorrectCount)
		}
		if resp.PendingReview != 1 {
			t.Errorf("pending review = %d, want 1", resp.PendingReview)
		}
	})

	t.Run("completing twice is an invalid state", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		svc := newTestAttemptService(repo, &recordingPublisher{})

		started, _ := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
		if _, err := svc.Complete(ctx, started.ID, "student-1"); err != nil {
			t.Fatalf("first Complete failed: %v", err)
		}
		_, err := svc.Complete(ctx, started.ID, "student-1")
		if !IsInvalidStateError(err) {
			t.Fatalf("expected invalid state error, got %v", err)
		}
	})

	t.Run("empty assessment scores zero without error", func(t *testing.T) {
		repo := newFakeRepository()
		seedMathQuiz(repo)
		repo.assessments[2] = &models.Assessment{
			ID: 2, Title: "Empty", Subject: models.SubjectScience,
			GradeLevel: models.GradeElementary, AssessmentType: models.TypePractice,
			Difficulty: models.DifficultyBeginner, PassingScore: 70,
			IsActive: true, CreatedBy: "teacher-1",
		}
		svc := newTestAttemptService(repo, &recordingPublisher{})

		started, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 2}, "student-1")
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		resp, err := svc.Complete(ctx, started.ID, "student-1")
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if resp.Score != 0 {
			t.Errorf("score = %v, want 0 for empty assessment", resp.Score)
		}
		if resp.Passed {
			t.Error("empty assessment must not pass a 70 threshold")
		}
	})
}

func TestAttemptService_ListByStudent(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	seedMathQuiz(repo)
	svc := newTestAttemptService(repo, &recordingPublisher{})

	started, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Run("entries carry the assessment summary", func(t *testing.T) {
		resp, err := svc.ListByStudent(ctx, "student-1", repositories.AttemptFilters{}, "student-1")
		if err != nil {
			t.Fatalf("ListByStudent failed: %v", err)
		}
		if len(resp.Attempts) != 1 {
			t.Fatalf("attempts = %d, want 1", len(resp.Attempts))
		}
		entry := resp.Attempts[0]
		if entry.ID != started.ID {
			t.Errorf("entry ID = %d, want %d", entry.ID, started.ID)
		}
		if entry.Assessment == nil {
			t.Fatal("list entry has no assessment summary")
		}
		if entry.Assessment.Title != "Fractions Quiz" {
			t.Errorf("assessment title = %q, want Fractions Quiz", entry.Assessment.Title)
		}
		if len(entry.Assessment.Questions) != 0 {
			t.Error("list entries must not carry the question set")
		}
	})

	t.Run("students cannot list another student's attempts", func(t *testing.T) {
		_, err := svc.ListByStudent(ctx, "student-1", repositories.AttemptFilters{}, "student-2")
		if !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})

	t.Run("staff can list any student's attempts", func(t *testing.T) {
		resp, err := svc.ListByStudent(ctx, "student-1", repositories.AttemptFilters{}, "teacher-1")
		if err != nil {
			t.Fatalf("ListByStudent failed: %v", err)
		}
		if len(resp.Attempts) != 1 {
			t.Errorf("attempts = %d, want 1", len(resp.Attempts))
		}
	})
}

func TestAttemptService_AnswerVisibility(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	seedMathQuiz(repo)
	svc := newTestAttemptService(repo, &recordingPublisher{})

	started, err := svc.Start(ctx, &StartAttemptRequest{AssessmentID: 1}, "student-1")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Run("correct answers hidden from the student while open", func(t *testing.T) {
		resp, err := svc.GetByID(ctx, started.ID, "student-1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		for _, q := range resp.Assessment.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect != nil {
					t.Fatalf("question %d leaks is_correct while attempt open", q.ID)
				}
			}
			if q.Explanation != nil {
				t.Fatalf("question %d leaks explanation while attempt open", q.ID)
			}
		}
	})

	t.Run("staff see the answer key on an open attempt", func(t *testing.T) {
		resp, err := svc.GetByID(ctx, started.ID, "teacher-1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		var sawKey bool
		for _, q := range resp.Assessment.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect != nil {
					sawKey = true
				}
			}
		}
		if !sawKey {
			t.Error("teacher view has no is_correct markers")
		}
	})

	t.Run("another student cannot read the attempt", func(t *testing.T) {
		_, err := svc.GetByID(ctx, started.ID, "student-2")
		if !IsPermissionError(err) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})

	t.Run("student sees the key after completion", func(t *testing.T) {
		if _, err := svc.Complete(ctx, started.ID, "student-1"); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		resp, err := svc.GetByID(ctx, started.ID, "student-1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		var sawKey bool
		for _, q := range resp.Assessment.Questions {
			for _, a := range q.Answers {
				if a.IsCorrect != nil {
					sawKey = true
				}
			}
		}
		if !sawKey {
			t.Error("closed attempt review hides the answer key")
		}
	})
}
