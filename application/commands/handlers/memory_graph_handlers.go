package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"memgraph/application/commands"
	"memgraph/application/commands/bus"
	"memgraph/application/ports"
	"memgraph/application/services"
	apperrors "memgraph/pkg/errors"
)

// GraphWriter is the part of the memory graph service commands need
type GraphWriter interface {
	Save(ctx context.Context, raw json.RawMessage, reindex bool) (*services.SaveGraphResult, error)
	Publish(ctx context.Context, reindex bool) (*services.PublishResult, error)
}

// SaveGraphHandler handles SaveGraphCommand
type SaveGraphHandler struct {
	graphs GraphWriter
	logger *zap.Logger
}

// NewSaveGraphHandler creates a new handler instance
func NewSaveGraphHandler(graphs GraphWriter, logger *zap.Logger) *SaveGraphHandler {
	return &SaveGraphHandler{graphs: graphs, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *SaveGraphHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	save, ok := cmd.(commands.SaveGraphCommand)
	if !ok {
		return nil, fmt.Errorf("invalid command type %T", cmd)
	}

	result, err := h.graphs.Save(ctx, save.Graph, save.ShouldReindex())
	if err != nil {
		return nil, err
	}

	h.logger.Info("Saved knowledge graph",
		zap.Int("nodes", len(result.Graph.Nodes)),
		zap.Int("edges", len(result.Graph.Edges)),
		zap.Bool("reindexStarted", result.Reindex.Started))
	return result, nil
}

// PublishMemoryHandler handles PublishMemoryCommand
type PublishMemoryHandler struct {
	graphs GraphWriter
	logger *zap.Logger
}

// NewPublishMemoryHandler creates a new handler instance
func NewPublishMemoryHandler(graphs GraphWriter, logger *zap.Logger) *PublishMemoryHandler {
	return &PublishMemoryHandler{graphs: graphs, logger: logger}
}

// Handle implements bus.CommandHandler
func (h *PublishMemoryHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	publish, ok := cmd.(commands.PublishMemoryCommand)
	if !ok {
		return nil, fmt.Errorf("invalid command type %T", cmd)
	}

	result, err := h.graphs.Publish(ctx, publish.ShouldReindex())
	if err != nil {
		return nil, err
	}

	h.logger.Info("Published knowledge graph snapshot", zap.String("path", result.Path))
	return result, nil
}

// ReindexHandler handles ReindexCommand by running the refresh inline.
type ReindexHandler struct {
	reindexer ports.Reindexer
	metrics   ports.Metrics
}

// NewReindexHandler creates a new handler instance
func NewReindexHandler(reindexer ports.Reindexer, metrics ports.Metrics) *ReindexHandler {
	return &ReindexHandler{reindexer: reindexer, metrics: metrics}
}

// Handle implements bus.CommandHandler
func (h *ReindexHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	reindex, ok := cmd.(commands.ReindexCommand)
	if !ok {
		return nil, fmt.Errorf("invalid command type %T", cmd)
	}
	if h.reindexer == nil {
		return services.ReindexOutcome{Requested: true, Reason: "index disabled"}, nil
	}

	err := h.reindexer.Reindex(ctx, reindex.Trigger)
	if h.metrics != nil {
		h.metrics.RecordReindex(reindex.Trigger, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, apperrors.NewTimeoutError("reindex").WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	return services.ReindexOutcome{Requested: true, Started: true}, nil
}

// Register wires the memory graph command handlers into the bus
func Register(b *bus.CommandBus, graphs GraphWriter, reindexer ports.Reindexer, metrics ports.Metrics, logger *zap.Logger) error {
	if err := b.Register(commands.SaveGraphCommand{}, NewSaveGraphHandler(graphs, logger)); err != nil {
		return err
	}
	if err := b.Register(commands.PublishMemoryCommand{}, NewPublishMemoryHandler(graphs, logger)); err != nil {
		return err
	}
	return b.Register(commands.ReindexCommand{}, NewReindexHandler(reindexer, metrics))
}
