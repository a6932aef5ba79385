package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAssessmentCache invalidates all caches touching one assessment
func InvalidateAssessmentCache(ctx context.Context, cm *CacheManager, assessmentID uint, creatorID string) {
	SafeDelete(ctx, cm.Assessment,
		fmt.Sprintf("id:%d", assessmentID),
		fmt.Sprintf("details:%d", assessmentID))

	SafeInvalidatePattern(ctx, cm.Assessment, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Assessment, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("assessment:%d:*", assessmentID))
}

// InvalidateStudentStatsCache drops a student's cached statistics after an
// attempt closes or is regraded.
func InvalidateStudentStatsCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("student:%s:*", userID))
}
