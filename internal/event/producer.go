package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	pkgkafka "github.com/dfgutierrez/sigr-sales/pkg/kafka"
)

// Kafka topic constants for sale workflow domain events.
const (
	TopicSaleCompleted             = "sigr.sale.completed"
	TopicSaleCompletedWithWarnings = "sigr.sale.completed_with_warnings"
	TopicSaleFailed                = "sigr.sale.failed"
)

// Aggregate type constant.
const AggregateTypeSale = "sale"

// Source identifier for events originating from this service.
const SourceSaleWorkflow = "sale-workflow"

// SaleCompletedData is the payload for completed and
// completed_with_warnings events.
type SaleCompletedData struct {
	SaleID     string                    `json:"sale_id"`
	WorkflowID string                    `json:"workflow_id"`
	LocationID string                    `json:"location_id"`
	VehicleID  string                    `json:"vehicle_id"`
	Total      int64                     `json:"total"`
	Failures   []domain.DeductionFailure `json:"failures,omitempty"`
}

// SaleFailedData is the payload for a sale.failed event.
type SaleFailedData struct {
	WorkflowID    string `json:"workflow_id"`
	LocationID    string `json:"location_id"`
	FailureReason string `json:"failure_reason"`
}

// Producer publishes sale workflow domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the sale workflow service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishSaleCompleted publishes the outcome of a finished submission. Partial
// successes go to the completed_with_warnings topic with the failure list.
func (p *Producer) PublishSaleCompleted(ctx context.Context, w *domain.SaleWorkflow, outcome *domain.SubmissionOutcome) error {
	data := SaleCompletedData{
		SaleID:     outcome.SaleID,
		WorkflowID: w.ID,
		LocationID: w.LocationID,
		Total:      outcome.Total,
		Failures:   outcome.Failures,
	}
	if w.Vehicle != nil {
		data.VehicleID = w.Vehicle.ID
	}

	topic := TopicSaleCompleted
	if !outcome.FullSuccess() {
		topic = TopicSaleCompletedWithWarnings
	}

	event, err := pkgkafka.NewEvent(topic, outcome.SaleID, AggregateTypeSale, SourceSaleWorkflow, data)
	if err != nil {
		return fmt.Errorf("create sale completion event: %w", err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish sale completion event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sale completion event",
		slog.String("topic", topic),
		slog.String("sale_id", outcome.SaleID),
		slog.Int("failures", len(outcome.Failures)),
	)

	return nil
}

// PublishSaleFailed publishes a sale.failed event for a Phase A failure.
func (p *Producer) PublishSaleFailed(ctx context.Context, w *domain.SaleWorkflow, reason string) error {
	data := SaleFailedData{
		WorkflowID:    w.ID,
		LocationID:    w.LocationID,
		FailureReason: reason,
	}

	event, err := pkgkafka.NewEvent(TopicSaleFailed, w.ID, AggregateTypeSale, SourceSaleWorkflow, data)
	if err != nil {
		return fmt.Errorf("create sale.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSaleFailed, event); err != nil {
		return fmt.Errorf("publish sale.failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sale.failed event",
		slog.String("workflow_id", w.ID),
	)

	return nil
}
