package models

import (
	"time"

	"gorm.io/gorm"
)

type Subject string

const (
	SubjectMathematics     Subject = "mathematics"
	SubjectScience         Subject = "science"
	SubjectLanguage        Subject = "language"
	SubjectHistory         Subject = "history"
	SubjectComputerScience Subject = "computer_science"
)

func (s Subject) IsValid() bool {
	switch s {
	case SubjectMathematics, SubjectScience, SubjectLanguage, SubjectHistory, SubjectComputerScience:
		return true
	}
	return false
}

type GradeLevel string

const (
	GradeElementary   GradeLevel = "elementary"
	GradeMiddleSchool GradeLevel = "middle_school"
	GradeHighSchool   GradeLevel = "high_school"
)

func (g GradeLevel) IsValid() bool {
	switch g {
	case GradeElementary, GradeMiddleSchool, GradeHighSchool:
		return true
	}
	return false
}

type AssessmentType string

const (
	TypePractice AssessmentType = "practice"
	TypeQuiz     AssessmentType = "quiz"
	TypeExam     AssessmentType = "exam"
)

func (t AssessmentType) IsValid() bool {
	switch t {
	case TypePractice, TypeQuiz, TypeExam:
		return true
	}
	return false
}

// AssessmentTypes lists every assessment type in display order. Statistics
// responses include an entry for each one even when the student has no
// attempts of that type.
var AssessmentTypes = []AssessmentType{TypePractice, TypeQuiz, TypeExam}

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

type Assessment struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	Title          string          `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description    *string         `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Subject        Subject         `json:"subject" gorm:"not null;size:50;index" validate:"required,subject"`
	GradeLevel     GradeLevel      `json:"grade_level" gorm:"not null;size:50;index" validate:"required,grade_level"`
	AssessmentType AssessmentType  `json:"assessment_type" gorm:"not null;size:20;index" validate:"required,assessment_type"`
	Difficulty     DifficultyLevel `json:"difficulty" gorm:"not null;size:20" validate:"required,difficulty_level"`

	// TimeLimit is in minutes; nil means untimed.
	TimeLimit    *int    `json:"time_limit" gorm:"comment:Time limit in minutes"`
	PassingScore float64 `json:"passing_score" gorm:"not null;default:70" validate:"passing_score"`
	IsActive     bool    `json:"is_active" gorm:"not null;default:true;index"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question       `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`
	Attempts  []UserAssessment `json:"-" gorm:"foreignKey:AssessmentID"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
	TotalPoints   int `json:"total_points" gorm:"-"`
}

func (Assessment) TableName() string {
	return "assessments"
}
