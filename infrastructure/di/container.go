package di

import (
	"go.uber.org/zap"

	"memgraph/application/commands/bus"
	"memgraph/application/ports"
	querybus "memgraph/application/queries/bus"
	"memgraph/application/services"
	"memgraph/infrastructure/config"
	dynamostore "memgraph/infrastructure/persistence/dynamodb"
	"memgraph/infrastructure/workspace"
	"memgraph/interfaces/http/rest"
	"memgraph/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Layout     workspace.Layout
	Collector  *observability.Collector
	Tracer     *observability.Tracer
	Graphs     *services.MemoryGraphService
	Reindexer  ports.Reindexer
	EventLog   *dynamostore.EventStore
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Router     *rest.Router
}
