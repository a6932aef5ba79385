package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/events"
	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	assessments map[uint]*models.Assessment
	questions   map[uint]*models.Question
	attempts    map[uint]*models.UserAssessment
	answers     map[string]*models.UserAnswer
	users       map[string]*models.User

	nextAttemptID  uint
	nextQuestionID uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		assessments:    make(map[uint]*models.Assessment),
		questions:      make(map[uint]*models.Question),
		attempts:       make(map[uint]*models.UserAssessment),
		answers:        make(map[string]*models.UserAnswer),
		users:          make(map[string]*models.User),
		nextAttemptID:  1,
		nextQuestionID: 1,
	}
}

func answerKey(attemptID, questionID uint) string {
	return fmt.Sprintf("%d:%d", attemptID, questionID)
}

func (f *fakeRepository) Assessment() repositories.AssessmentRepository { return (*fakeAssessments)(f) }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return (*fakeQuestions)(f) }
func (f *fakeRepository) Attempt() repositories.AttemptRepository       { return (*fakeAttempts)(f) }
func (f *fakeRepository) UserAnswer() repositories.UserAnswerRepository { return (*fakeUserAnswers)(f) }
func (f *fakeRepository) User() repositories.UserRepository             { return (*fakeUsers)(f) }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== ASSESSMENTS =====

type fakeAssessments fakeRepository

func (f *fakeAssessments) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if assessment.ID == 0 {
		assessment.ID = uint(len(f.assessments) + 1)
	}
	f.assessments[assessment.ID] = assessment
	return nil
}

func (f *fakeAssessments) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	assessment, ok := f.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *assessment
	cp.Questions = nil
	return &cp, nil
}

func (f *fakeAssessments) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	assessment, ok := f.assessments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *assessment
	cp.Questions = nil
	for _, q := range f.questions {
		if q.AssessmentID == id {
			cp.Questions = append(cp.Questions, *q)
		}
	}
	cp.QuestionCount = len(cp.Questions)
	return &cp, nil
}

func (f *fakeAssessments) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if _, ok := f.assessments[assessment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	f.assessments[assessment.ID] = assessment
	return nil
}

func (f *fakeAssessments) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(f.assessments, id)
	return nil
}

func (f *fakeAssessments) List(ctx context.Context, tx *gorm.DB, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var out []*models.Assessment
	for _, a := range f.assessments {
		if filters.ActiveOnly && !a.IsActive {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssessments) GetByCreator(ctx context.Context, tx *gorm.DB, creatorID string, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var out []*models.Assessment
	for _, a := range f.assessments {
		if a.CreatedBy == creatorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAssessments) ExistsByID(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := f.assessments[id]
	return ok, nil
}

// ===== QUESTIONS =====

type fakeQuestions fakeRepository

func (f *fakeQuestions) Create(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	if question.ID == 0 {
		question.ID = f.nextQuestionID
		f.nextQuestionID++
	}
	f.questions[question.ID] = question
	return nil
}

func (f *fakeQuestions) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error) {
	question, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *question
	return &cp, nil
}

func (f *fakeQuestions) Update(ctx context.Context, tx *gorm.DB, question *models.Question) error {
	f.questions[question.ID] = question
	return nil
}

func (f *fakeQuestions) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	delete(f.questions, id)
	return nil
}

func (f *fakeQuestions) CreateBatch(ctx context.Context, tx *gorm.DB, questions []*models.Question) error {
	for _, q := range questions {
		if err := f.Create(ctx, tx, q); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQuestions) GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range f.questions {
		if q.AssessmentID == assessmentID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuestions) CountByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) (int64, error) {
	var count int64
	for _, q := range f.questions {
		if q.AssessmentID == assessmentID {
			count++
		}
	}
	return count, nil
}

func (f *fakeQuestions) GetAnswerByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Answer, error) {
	for _, q := range f.questions {
		for i := range q.Answers {
			if q.Answers[i].ID == id {
				cp := q.Answers[i]
				return &cp, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeQuestions) ReplaceAnswers(ctx context.Context, tx *gorm.DB, questionID uint, answers []models.Answer) error {
	question, ok := f.questions[questionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	question.Answers = answers
	return nil
}

// ===== ATTEMPTS =====

type fakeAttempts fakeRepository

func (f *fakeAttempts) Create(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error {
	attempt.ID = f.nextAttemptID
	f.nextAttemptID++
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttempts) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error) {
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *attempt
	return &cp, nil
}

func (f *fakeAttempts) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.UserAssessment, error) {
	attempt, err := f.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if assessment, err := (*fakeAssessments)(f).GetByIDWithQuestions(ctx, tx, attempt.AssessmentID); err == nil {
		attempt.Assessment = *assessment
	}
	answers, _ := (*fakeUserAnswers)(f).ListByAttempt(ctx, tx, id)
	for _, a := range answers {
		attempt.Answers = append(attempt.Answers, *a)
	}
	return attempt, nil
}

func (f *fakeAttempts) Update(ctx context.Context, tx *gorm.DB, attempt *models.UserAssessment) error {
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttempts) GetOpen(ctx context.Context, tx *gorm.DB, userID string, assessmentID uint) (*models.UserAssessment, error) {
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID && a.Status == models.AttemptOpen {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAttempts) Close(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool, completedAt time.Time) (bool, error) {
	attempt, ok := f.attempts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if attempt.Status != models.AttemptOpen {
		return false, nil
	}
	attempt.Status = models.AttemptClosed
	attempt.Score = score
	attempt.Passed = passed
	attempt.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeAttempts) UpdateScore(ctx context.Context, tx *gorm.DB, id uint, score float64, passed bool) error {
	attempt, ok := f.attempts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.Score = score
	attempt.Passed = passed
	return nil
}

func (f *fakeAttempts) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.UserAssessment, int64, error) {
	var out []*models.UserAssessment
	for _, a := range f.attempts {
		if a.UserID != userID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		cp := *a
		if assessment, ok := f.assessments[a.AssessmentID]; ok {
			acp := *assessment
			acp.Questions = nil
			cp.Assessment = acp
		}
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttempts) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.AttemptFilters) ([]*models.UserAssessment, int64, error) {
	var out []*models.UserAssessment
	for _, a := range f.attempts {
		if a.AssessmentID == assessmentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttempts) GetStudentStats(ctx context.Context, tx *gorm.DB, userID string) (*repositories.StudentStats, error) {
	stats := &repositories.StudentStats{
		ByType: make(map[models.AssessmentType]*repositories.TypeStats),
	}
	for _, t := range models.AssessmentTypes {
		stats.ByType[t] = &repositories.TypeStats{}
	}

	var scoreSum float64
	for _, a := range f.attempts {
		if a.UserID != userID || a.Status != models.AttemptClosed {
			continue
		}
		stats.TotalCompleted++
		scoreSum += a.Score
		if a.Passed {
			stats.TotalPassed++
		}
		if assessment, ok := f.assessments[a.AssessmentID]; ok {
			ts := stats.ByType[assessment.AssessmentType]
			ts.AverageScore = (ts.AverageScore*float64(ts.Completed) + a.Score) / float64(ts.Completed+1)
			ts.Completed++
			if a.Passed {
				ts.Passed++
			}
		}
	}
	if stats.TotalCompleted > 0 {
		stats.AverageScore = scoreSum / float64(stats.TotalCompleted)
	}
	return stats, nil
}

func (f *fakeAttempts) GetResults(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*repositories.AssessmentResult, error) {
	var out []*repositories.AssessmentResult
	for _, a := range f.attempts {
		if a.AssessmentID != assessmentID || a.Status != models.AttemptClosed {
			continue
		}
		result := &repositories.AssessmentResult{
			AttemptID: a.ID,
			UserID:    a.UserID,
			Score:     a.Score,
			Passed:    a.Passed,
			StartedAt: a.StartedAt,
		}
		if a.CompletedAt != nil {
			result.CompletedAt = *a.CompletedAt
		}
		out = append(out, result)
	}
	return out, nil
}

// ===== USER ANSWERS =====

type fakeUserAnswers fakeRepository

func (f *fakeUserAnswers) Upsert(ctx context.Context, tx *gorm.DB, answer *models.UserAnswer) error {
	cp := *answer
	f.answers[answerKey(answer.UserAssessmentID, answer.QuestionID)] = &cp
	return nil
}

func (f *fakeUserAnswers) GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.UserAnswer, error) {
	answer, ok := f.answers[answerKey(attemptID, questionID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *answer
	return &cp, nil
}

func (f *fakeUserAnswers) ListByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.UserAnswer, error) {
	var out []*models.UserAnswer
	for _, a := range f.answers {
		if a.UserAssessmentID == attemptID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserAnswers) CountByResult(ctx context.Context, tx *gorm.DB, attemptID uint, result models.AnswerResult) (int64, error) {
	var count int64
	for _, a := range f.answers {
		if a.UserAssessmentID == attemptID && a.Result == result {
			count++
		}
	}
	return count, nil
}

// ===== USERS =====

type fakeUsers fakeRepository

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUsers) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := f.users[id]
	return ok, nil
}

func (f *fakeUsers) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, ok := f.users[id]
	if !ok {
		return false, nil
	}
	return user.Role == role, nil
}

// ===== RECORDING PUBLISHER =====

type recordingPublisher struct {
	completed []*events.AttemptCompletedEvent
	graded    []*events.AnswerGradedEvent
}

func (p *recordingPublisher) PublishAttemptCompleted(ctx context.Context, event *events.AttemptCompletedEvent) error {
	p.completed = append(p.completed, event)
	return nil
}

func (p *recordingPublisher) PublishAnswerGraded(ctx context.Context, event *events.AnswerGradedEvent) error {
	p.graded = append(p.graded, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// ===== FIXTURES =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedMathQuiz creates an active quiz with two multiple choice questions
// and one short answer question, plus a student, a teacher and an admin.
func seedMathQuiz(repo *fakeRepository) *models.Assessment {
	assessment := &models.Assessment{
		ID:             1,
		Title:          "Fractions Quiz",
		Subject:        models.SubjectMathematics,
		GradeLevel:     models.GradeElementary,
		AssessmentType: models.TypeQuiz,
		Difficulty:     models.DifficultyBeginner,
		PassingScore:   70,
		IsActive:       true,
		CreatedBy:      "teacher-1",
	}
	repo.assessments[assessment.ID] = assessment

	repo.questions[10] = &models.Question{
		ID: 10, AssessmentID: 1, Text: "1/2 + 1/4 = ?",
		QuestionType: models.MultipleChoice, Points: 2, Order: 0,
		Answers: []models.Answer{
			{ID: 101, QuestionID: 10, Text: "3/4", IsCorrect: true, Order: 0},
			{ID: 102, QuestionID: 10, Text: "2/6", IsCorrect: false, Order: 1},
		},
	}
	repo.questions[11] = &models.Question{
		ID: 11, AssessmentID: 1, Text: "Is 1/2 greater than 1/3?",
		QuestionType: models.TrueFalse, Points: 1, Order: 1,
		Answers: []models.Answer{
			{ID: 111, QuestionID: 11, Text: "True", IsCorrect: true, Order: 0},
			{ID: 112, QuestionID: 11, Text: "False", IsCorrect: false, Order: 1},
		},
	}
	repo.questions[12] = &models.Question{
		ID: 12, AssessmentID: 1, Text: "Explain what a denominator is.",
		QuestionType: models.ShortAnswer, Points: 2, Order: 2,
	}
	repo.nextQuestionID = 13

	repo.users["student-1"] = &models.User{ID: "student-1", FullName: "Student One", Role: models.RoleStudent}
	repo.users["student-2"] = &models.User{ID: "student-2", FullName: "Student Two", Role: models.RoleStudent}
	repo.users["teacher-1"] = &models.User{ID: "teacher-1", FullName: "Teacher One", Role: models.RoleTeacher}
	repo.users["admin-1"] = &models.User{ID: "admin-1", FullName: "Admin One", Role: models.RoleAdmin}

	return assessment
}
