package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/grading-service/internal/models"
	"github.com/SAP-F-2025/grading-service/internal/repositories"
)

type studentService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewStudentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) StudentService {
	return &studentService{repo: repo, db: db, logger: logger}
}

// GetStatistics aggregates a student's closed attempts. Students may only
// read their own statistics; teachers and admins may read anyone's.
func (s *studentService) GetStatistics(ctx context.Context, studentID string, userID string) (*StudentStatsResponse, error) {
	if studentID != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user role: %w", err)
		}
		if user.Role != models.RoleTeacher && user.Role != models.RoleAdmin {
			return nil, NewPermissionError(userID, "statistics", "read", "students may only read their own statistics")
		}
	}

	exists, err := s.repo.User().ExistsByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check student: %w", err)
	}
	if !exists {
		return nil, NewNotFoundError("student", studentID)
	}

	stats, err := s.repo.Attempt().GetStudentStats(ctx, nil, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student statistics: %w", err)
	}

	resp := &StudentStatsResponse{
		TotalCompleted: stats.TotalCompleted,
		TotalPassed:    stats.TotalPassed,
		AverageScore:   stats.AverageScore,
		ByType:         make(map[models.AssessmentType]TypeStatsResponse, len(models.AssessmentTypes)),
	}
	// Every assessment type appears in the response, zero-valued when the
	// student has no closed attempts of that type.
	for _, at := range models.AssessmentTypes {
		if ts, ok := stats.ByType[at]; ok && ts != nil {
			resp.ByType[at] = TypeStatsResponse{
				Completed:    ts.Completed,
				Passed:       ts.Passed,
				AverageScore: ts.AverageScore,
			}
		} else {
			resp.ByType[at] = TypeStatsResponse{}
		}
	}
	return resp, nil
}
