package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptOpen   AttemptStatus = "open"
	AttemptClosed AttemptStatus = "closed"
)

func (s AttemptStatus) IsValid() bool {
	return s == AttemptOpen || s == AttemptClosed
}

// AnswerResult is the grading outcome for a single submitted answer.
// Short answers stay undetermined until a teacher reviews them; an
// undetermined answer counts as not-correct when the attempt is scored.
type AnswerResult string

const (
	ResultCorrect      AnswerResult = "correct"
	ResultIncorrect    AnswerResult = "incorrect"
	ResultUndetermined AnswerResult = "undetermined"
)

func (r AnswerResult) IsValid() bool {
	switch r {
	case ResultCorrect, ResultIncorrect, ResultUndetermined:
		return true
	}
	return false
}

// UserAssessment is one student's attempt at an assessment. The status
// machine is one-way: open -> closed, closed by a single conditional
// update so concurrent completions cannot both succeed.
type UserAssessment struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	UserID       string        `json:"user_id" gorm:"not null;index;size:255"`
	AssessmentID uint          `json:"assessment_id" gorm:"not null;index"`
	Status       AttemptStatus `json:"status" gorm:"not null;default:open;index"`

	// Scoring, set at completion. Score is a percentage of questions
	// answered correctly, independent of question point weights.
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment Assessment   `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []UserAnswer `json:"answers,omitempty" gorm:"foreignKey:UserAssessmentID"`
}

func (UserAssessment) TableName() string {
	return "user_assessments"
}

// IsOpen reports whether the attempt still accepts answers.
func (ua *UserAssessment) IsOpen() bool {
	return ua.Status == AttemptOpen
}

// UserAnswer records a single submitted answer and its grading outcome.
// One row per (attempt, question); resubmission replaces the row.
type UserAnswer struct {
	ID               uint `json:"id" gorm:"primaryKey"`
	UserAssessmentID uint `json:"user_assessment_id" gorm:"not null;uniqueIndex:idx_user_answers_attempt_question"`
	QuestionID       uint `json:"question_id" gorm:"not null;uniqueIndex:idx_user_answers_attempt_question"`

	// SelectedAnswerID is set for choice questions, TextAnswer for
	// short-answer questions.
	SelectedAnswerID *uint  `json:"selected_answer_id"`
	TextAnswer       string `json:"text_answer" gorm:"type:text"`

	// Grading
	Result       AnswerResult `json:"result" gorm:"not null;size:20"`
	PointsEarned float64      `json:"points_earned"`
	GradedBy     *string      `json:"graded_by,omitempty" gorm:"size:255"`
	GradedAt     *time.Time   `json:"graded_at,omitempty"`

	AnsweredAt time.Time `json:"answered_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Attempt        UserAssessment `json:"-" gorm:"foreignKey:UserAssessmentID"`
	Question       Question       `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	SelectedAnswer *Answer        `json:"selected_answer,omitempty" gorm:"foreignKey:SelectedAnswerID"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}
