package messaging

import (
	"context"

	"go.uber.org/zap"

	"memgraph/domain/events"
)

// LogPublisher writes domain events to the log when no event bus is set
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a logging publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements ports.EventPublisher
func (p *LogPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	for _, event := range domainEvents {
		p.logger.Info("Domain event",
			zap.String("eventType", event.GetEventType()),
			zap.String("workspace", event.GetAggregateID()),
			zap.Time("timestamp", event.GetTimestamp()),
			zap.Any("event", event))
	}
	return nil
}
