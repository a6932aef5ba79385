package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// AutoGradable reports whether answers of this type are graded on
// submission. Short answers stay undetermined until a teacher reviews them.
func (t QuestionType) AutoGradable() bool {
	return t == MultipleChoice || t == TrueFalse
}

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	AssessmentID uint         `json:"assessment_id" gorm:"not null;index:idx_questions_assessment_order"`
	Text         string       `json:"text" gorm:"type:text;not null" validate:"required,min=1"`
	QuestionType QuestionType `json:"question_type" gorm:"not null;size:30" validate:"required,question_type"`
	Points       int          `json:"points" gorm:"not null;default:1" validate:"min=1,max=100"`
	Order        int          `json:"order" gorm:"not null;default:0;index:idx_questions_assessment_order"`
	Explanation  *string      `json:"explanation,omitempty" gorm:"type:text"`

	// AnswerKey carries per-type grading metadata. Only short-answer
	// questions use it today (accepted answers shown on review screens).
	AnswerKey datatypes.JSON `json:"answer_key,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// ShortAnswerKey is the AnswerKey payload for short-answer questions.
type ShortAnswerKey struct {
	AcceptedAnswers []string `json:"accepted_answers"`
	CaseSensitive   bool     `json:"case_sensitive"`
}

type Answer struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required,min=1"`

	// IsCorrect is stripped from student-facing responses until the
	// student's attempt is closed; see the service sanitizers.
	IsCorrect bool `json:"is_correct"`
	Order     int  `json:"order" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Answer) TableName() string {
	return "answers"
}
