package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"memgraph/application/commands"
	"memgraph/application/commands/bus"
	"memgraph/application/queries"
	querybus "memgraph/application/queries/bus"
	"memgraph/pkg/common"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/utils"
)

// Write actions accepted by POST /memory-graph
const (
	ActionSave          = "save"
	ActionPublishMemory = "publish-memory-md"
)

const maxBodyBytes = 8 << 20

// MemoryGraphRequest is the body of a write request
type MemoryGraphRequest struct {
	Action  string          `json:"action" validate:"required,oneof=save publish-memory-md"`
	Graph   json.RawMessage `json:"graph,omitempty"`
	Reindex *bool           `json:"reindex,omitempty"`
}

// MemoryGraphHandler serves the knowledge graph read and write operations
type MemoryGraphHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewMemoryGraphHandler creates a new memory graph handler
func NewMemoryGraphHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *MemoryGraphHandler {
	return &MemoryGraphHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// GetMemoryGraph handles GET /memory-graph. Any truthy reset parameter
// forces a cold rebuild.
func (h *MemoryGraphHandler) GetMemoryGraph(w http.ResponseWriter, r *http.Request) {
	reset, _ := strconv.ParseBool(r.URL.Query().Get("reset"))

	result, err := h.queryBus.Ask(r.Context(), queries.GetMemoryGraphQuery{Reset: reset})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// PostMemoryGraph handles POST /memory-graph
func (h *MemoryGraphHandler) PostMemoryGraph(w http.ResponseWriter, r *http.Request) {
	var req MemoryGraphRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, apperrors.NewInvalidJSONError(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()).
			WithCode(apperrors.CodeUnknownAction).
			WithDetails(map[string]interface{}{"action": req.Action}))
		return
	}

	var cmd bus.Command
	switch req.Action {
	case ActionSave:
		cmd = commands.SaveGraphCommand{Graph: req.Graph, Reindex: req.Reindex}
	case ActionPublishMemory:
		cmd = commands.PublishMemoryCommand{Reindex: req.Reindex}
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, bus.ErrValidationFailed) && apperrors.GetAppError(err) == nil {
			err = apperrors.NewValidationError(err.Error()).WithCode(apperrors.CodeInvalidRequest).WithCause(err)
		}
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Debug("Memory graph write completed", zap.String("action", req.Action))
	common.RespondJSON(w, http.StatusOK, result)
}
