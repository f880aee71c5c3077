//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"memgraph/application/services"
	"memgraph/infrastructure/config"
	"memgraph/interfaces/http/rest"
)

// WorkspaceSet provides the filesystem-backed adapters
var WorkspaceSet = wire.NewSet(
	ProvideLayout,
	ProvideWorkspaceFS,
	ProvideGraphStore,
	ProvideMemoryDocument,
	ProvideDocumentSource,
	ProvideSessionHistory,
	ProvideChunkIndex,
	ProvideCache,
	ProvideAgentRoster,
)

// EngineSet provides the domain engine and application services
var EngineSet = wire.NewSet(
	ProvideEngineLimits,
	ProvideNormalizer,
	ProvideEngine,
	ProvideReindexer,
	ProvideReindexTrigger,
	ProvideSourceGatherer,
	ProvideTelemetryService,
	services.NewMemoryGraphService,
)

// AWSSet provides the optional AWS-backed adapters
var AWSSet = wire.NewSet(
	ProvideAWSConfig,
	ProvideEventLog,
	ProvideEventPublisher,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideCollector,
	ProvideMetrics,
	ProvideTracer,
	AWSSet,
	WorkspaceSet,
	EngineSet,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideRouterOptions,
	rest.NewRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// closes the index and cache and waits for background reindexes.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
