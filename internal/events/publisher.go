package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/grading-service/internal/models"
)

// Topics carrying grading lifecycle events.
const (
	TopicAttemptCompleted = "grading.attempt.completed"
	TopicAnswerGraded     = "grading.answer.graded"
)

// AttemptCompletedEvent is published when an attempt closes with its
// final score.
type AttemptCompletedEvent struct {
	AttemptID      uint                  `json:"attempt_id"`
	UserID         string                `json:"user_id"`
	AssessmentID   uint                  `json:"assessment_id"`
	AssessmentType models.AssessmentType `json:"assessment_type"`
	Score          float64               `json:"score"`
	Passed         bool                  `json:"passed"`
	CompletedAt    time.Time             `json:"completed_at"`
}

// AnswerGradedEvent is published when a teacher resolves a short answer.
type AnswerGradedEvent struct {
	AttemptID  uint                `json:"attempt_id"`
	QuestionID uint                `json:"question_id"`
	UserID     string              `json:"user_id"`
	GradedBy   string              `json:"graded_by"`
	Result     models.AnswerResult `json:"result"`
	GradedAt   time.Time           `json:"graded_at"`
}

// Publisher emits grading lifecycle events. Implementations must be safe
// for concurrent use.
type Publisher interface {
	PublishAttemptCompleted(ctx context.Context, event *AttemptCompletedEvent) error
	PublishAnswerGraded(ctx context.Context, event *AnswerGradedEvent) error
	Close() error
}

// kafkaPublisher publishes events to Kafka through watermill.
type kafkaPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewKafkaPublisher connects a watermill Kafka publisher to the given
// brokers.
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (Publisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &kafkaPublisher{publisher: publisher, logger: logger}, nil
}

func (p *kafkaPublisher) PublishAttemptCompleted(ctx context.Context, event *AttemptCompletedEvent) error {
	return p.publish(ctx, TopicAttemptCompleted, event)
}

func (p *kafkaPublisher) PublishAnswerGraded(ctx context.Context, event *AnswerGradedEvent) error {
	return p.publish(ctx, TopicAnswerGraded, event)
}

func (p *kafkaPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher discards events. Used when no brokers are configured and
// in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishAttemptCompleted(context.Context, *AttemptCompletedEvent) error {
	return nil
}

func (NoopPublisher) PublishAnswerGraded(context.Context, *AnswerGradedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
