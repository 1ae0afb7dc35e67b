package core

import "context"

// Event routing keys.
const (
	EventStageChanged       = "enrollment.stage_changed"
	EventDocumentReviewed   = "document.reviewed"
	EventPaymentReviewed    = "payment.reviewed"
	EventInstallmentUpdated = "installment.updated"
	EventRequestAnswered    = "request.answered"
)

// EventPublisher publishes domain events to an outbound broker.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
	Close() error
}
