package messaging

import (
	"context"
	"errors"

	"memgraph/application/ports"
	"memgraph/domain/events"
)

// FanoutPublisher sends every event to each publisher in turn. A failing
// publisher does not stop the others; their errors are joined.
type FanoutPublisher struct {
	publishers []ports.EventPublisher
}

// NewFanoutPublisher creates a publisher over the given publishers
func NewFanoutPublisher(publishers ...ports.EventPublisher) *FanoutPublisher {
	return &FanoutPublisher{publishers: publishers}
}

// Publish implements ports.EventPublisher
func (p *FanoutPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	var errs []error
	for _, publisher := range p.publishers {
		if err := publisher.Publish(ctx, domainEvents...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
