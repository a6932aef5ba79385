package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/grading-service/internal/models"
)

// registerDomainRules registers custom field validators for the domain
// enums and score ranges.
func (v *Validator) registerDomainRules() {
	v.validate.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
		return models.Subject(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("grade_level", func(fl validator.FieldLevel) bool {
		return models.GradeLevel(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		return models.AssessmentType(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).IsValid()
	})

	// Passing score validation (0-100)
	v.validate.RegisterValidation("passing_score", func(fl validator.FieldLevel) bool {
		score := fl.Field().Float()
		return score >= 0 && score <= 100
	})
}
