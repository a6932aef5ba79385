package repositories

import "context"

// Repository aggregates every domain repository behind one interface so
// services depend on a single seam.
type Repository interface {
	// Catalog domain
	Assessment() AssessmentRepository
	Question() QuestionRepository

	// Attempt domain
	Attempt() AttemptRepository
	UserAnswer() UserAnswerRepository

	// User domain (read-only, owned by the identity provider)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}
