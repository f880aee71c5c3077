package handlers

import (
	"context"
	"fmt"

	"memgraph/application/queries"
	"memgraph/application/queries/bus"
	"memgraph/application/services"
)

// GraphReader loads the current graph view
type GraphReader interface {
	Load(ctx context.Context, reset bool) (*services.MemoryGraphView, error)
}

// GetMemoryGraphHandler handles GetMemoryGraphQuery
type GetMemoryGraphHandler struct {
	graphs GraphReader
}

// NewGetMemoryGraphHandler creates a new handler instance
func NewGetMemoryGraphHandler(graphs GraphReader) *GetMemoryGraphHandler {
	return &GetMemoryGraphHandler{graphs: graphs}
}

// Handle implements bus.QueryHandler
func (h *GetMemoryGraphHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetMemoryGraphQuery)
	if !ok {
		return nil, fmt.Errorf("invalid query type %T", query)
	}
	return h.graphs.Load(ctx, q.Reset)
}

// Register wires the memory graph query handler into the bus
func Register(b *bus.QueryBus, graphs GraphReader) error {
	return b.Register(queries.GetMemoryGraphQuery{}, NewGetMemoryGraphHandler(graphs))
}
