// Package main implements the Lambda that refreshes the chunk index when
// the engine publishes a save or snapshot event with reindexing requested.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"memgraph/application/commands"
	"memgraph/application/commands/bus"
	"memgraph/domain/events"
	"memgraph/infrastructure/config"
	"memgraph/infrastructure/di"
)

// Dispatcher sends commands to their handlers
type Dispatcher interface {
	Send(ctx context.Context, cmd bus.Command) (interface{}, error)
}

// Global dependencies for Lambda performance optimization
var (
	dispatcher Dispatcher
	logger     *zap.Logger
)

func setup() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	container, _, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependency container: %v", err)
	}

	dispatcher = container.CommandBus
	logger = container.Logger
	logger.Info("Reindex worker initialized")
}

// reindexDetail is the part of a published event the worker reads
type reindexDetail struct {
	AggregateID string `json:"aggregate_id"`
	Reindex     bool   `json:"reindex"`
}

// HandleEvent reindexes for graph.saved and memory.snapshot_published
// events that asked for it. Every other event is ignored.
func HandleEvent(ctx context.Context, d Dispatcher, event awsevents.CloudWatchEvent) (bool, error) {
	switch event.DetailType {
	case events.TypeGraphSaved, events.TypeSnapshotPublished:
	default:
		return false, nil
	}

	var detail reindexDetail
	if err := json.Unmarshal(event.Detail, &detail); err != nil {
		return false, fmt.Errorf("failed to parse %s event: %w", event.DetailType, err)
	}
	if !detail.Reindex {
		return false, nil
	}

	if _, err := d.Send(ctx, commands.ReindexCommand{Trigger: "event"}); err != nil {
		return false, fmt.Errorf("reindex for %s: %w", detail.AggregateID, err)
	}
	return true, nil
}

func handler(ctx context.Context, event awsevents.CloudWatchEvent) error {
	ran, err := HandleEvent(ctx, dispatcher, event)
	if err != nil {
		logger.Error("Reindex failed",
			zap.String("detailType", event.DetailType),
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return err
	}
	logger.Info("Event processed",
		zap.String("detailType", event.DetailType),
		zap.String("eventId", event.ID),
		zap.Bool("reindexed", ran),
	)
	return nil
}

func main() {
	setup()
	lambda.Start(handler)
}
