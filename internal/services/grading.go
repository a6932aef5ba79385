package services

import (
	"github.com/SAP-F-2025/grading-service/internal/models"
)

// gradeAnswer grades one submitted answer against its question. Choice
// questions are graded immediately: full points when the selected option
// is the correct one, zero otherwise, never partial credit. Short answers
// come back undetermined with zero points until a teacher reviews them.
func gradeAnswer(question *models.Question, req *SubmitAnswerRequest) (models.AnswerResult, float64, error) {
	switch question.QuestionType {
	case models.MultipleChoice, models.TrueFalse:
		return gradeChoice(question, req)
	case models.ShortAnswer:
		return models.ResultUndetermined, 0, nil
	default:
		return "", 0, NewValidationError("question_type", "unknown question type: "+string(question.QuestionType))
	}
}

func gradeChoice(question *models.Question, req *SubmitAnswerRequest) (models.AnswerResult, float64, error) {
	if req.SelectedAnswerID == nil {
		return "", 0, NewValidationError("selected_answer_id", "choice questions require a selected answer")
	}

	var selected *models.Answer
	for i := range question.Answers {
		if question.Answers[i].ID == *req.SelectedAnswerID {
			selected = &question.Answers[i]
			break
		}
	}
	if selected == nil {
		return "", 0, NewValidationError("selected_answer_id", "selected answer does not belong to the question")
	}

	if selected.IsCorrect {
		return models.ResultCorrect, float64(question.Points), nil
	}
	return models.ResultIncorrect, 0, nil
}

// computeScore turns a correct-answer count into a percentage of the
// assessment's total question count. Skipped and undetermined answers
// count against the student; an empty assessment scores 0, not NaN.
func computeScore(correctCount, totalQuestions int) float64 {
	if totalQuestions == 0 {
		return 0
	}
	// Multiply before dividing so the result rounds once.
	return float64(correctCount) * 100 / float64(totalQuestions)
}

// isPassed applies the assessment's passing threshold to a final score.
func isPassed(score, passingScore float64) bool {
	return score >= passingScore
}
