package di

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/hack-pad/hackpadfs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"memgraph/application/commands/bus"
	commandhandlers "memgraph/application/commands/handlers"
	"memgraph/application/ports"
	querybus "memgraph/application/queries/bus"
	queryhandlers "memgraph/application/queries/handlers"
	"memgraph/application/services"
	domainconfig "memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/services/synthesis"
	"memgraph/infrastructure/cache"
	"memgraph/infrastructure/config"
	"memgraph/infrastructure/history"
	"memgraph/infrastructure/messaging"
	dynamostore "memgraph/infrastructure/persistence/dynamodb"
	"memgraph/infrastructure/persistence/filestore"
	"memgraph/infrastructure/persistence/sqlite"
	"memgraph/infrastructure/roster"
	"memgraph/infrastructure/workspace"
	"memgraph/interfaces/http/rest"
	"memgraph/pkg/auth"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/observability"
)

const (
	serviceName      = "memgraph"
	cacheSweep       = time.Minute
	limiterIdle      = 10 * time.Minute
	defaultRosterDoc = "agents.yaml"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideLayout maps the configured file names onto the workspace
func ProvideLayout(cfg *config.Config) (workspace.Layout, error) {
	root, err := filepath.Abs(cfg.WorkspaceDir)
	if err != nil {
		return workspace.Layout{}, fmt.Errorf("resolve workspace: %w", err)
	}
	return workspace.Layout{
		Root:       root,
		Memory:     cfg.MemoryFile,
		JournalDir: cfg.JournalDir,
		Graph:      cfg.GraphFile,
		Mirror:     cfg.MirrorFile,
		Sessions:   cfg.SessionsDir,
	}.Clean(), nil
}

// ProvideWorkspaceFS opens the workspace directory
func ProvideWorkspaceFS(layout workspace.Layout) (hackpadfs.FS, error) {
	return workspace.OpenOS(layout.Root)
}

// ProvideEngineLimits returns the engine caps, trimmed for local development
func ProvideEngineLimits(cfg *config.Config) *domainconfig.EngineLimits {
	if cfg.IsDevelopment() {
		return domainconfig.DevelopmentEngineLimits()
	}
	return domainconfig.DefaultEngineLimits()
}

// ProvideNormalizer creates the graph normalizer
func ProvideNormalizer(limits *domainconfig.EngineLimits) *aggregates.Normalizer {
	return aggregates.NewNormalizer(limits)
}

// ProvideEngine creates the bootstrap/merge engine
func ProvideEngine(limits *domainconfig.EngineLimits, normalizer *aggregates.Normalizer) *synthesis.Engine {
	return synthesis.NewEngine(limits, normalizer)
}

// ProvideCollector creates the prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideMetrics exposes the collector through the engine's metrics port
func ProvideMetrics(collector *observability.Collector) ports.Metrics {
	return collector
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideAWSConfig loads the shared AWS configuration. It is nil when no
// AWS-backed adapter is configured.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (*aws.Config, error) {
	if !cfg.UsesAWS() {
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &awsCfg, nil
}

// ProvideGraphStore creates the canonical store: a DynamoDB table when
// GRAPH_TABLE is set, the workspace file otherwise. The mirror is always
// written to the workspace.
func ProvideGraphStore(fsys hackpadfs.FS, layout workspace.Layout, awsCfg *aws.Config, cfg *config.Config, logger *zap.Logger) ports.GraphStore {
	files := filestore.NewGraphStore(fsys, layout, logger)
	if cfg.GraphTable == "" || awsCfg == nil {
		return files
	}
	client := awsdynamodb.NewFromConfig(*awsCfg)
	return dynamostore.NewGraphStore(client, cfg.GraphTable, files, logger)
}

// ProvideMemoryDocument creates the long-term memory document adapter
func ProvideMemoryDocument(fsys hackpadfs.FS, layout workspace.Layout) ports.MemoryDocument {
	return filestore.NewMemoryDocument(fsys, layout.Memory)
}

// ProvideDocumentSource creates the journal and reference document source
func ProvideDocumentSource(fsys hackpadfs.FS, layout workspace.Layout) ports.DocumentSource {
	return workspace.NewDocumentSource(fsys, layout)
}

// ProvideSessionHistory creates the transcript reader
func ProvideSessionHistory(fsys hackpadfs.FS, layout workspace.Layout) ports.SessionHistory {
	return history.NewSessionHistory(fsys, layout.Sessions)
}

// ProvideChunkIndex opens the SQLite chunk index. It returns a nil index
// when indexing is disabled.
func ProvideChunkIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.ChunkIndex, func(), error) {
	if !cfg.EnableIndex {
		return nil, func() {}, nil
	}

	dbPath := cfg.Resolve(cfg.IndexPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create index directory: %w", err)
	}

	index, err := sqlite.NewChunkIndex(ctx, dbPath, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := index.Close(); err != nil {
			logger.Warn("Failed to close chunk index", zap.Error(err))
		}
	}
	return index, cleanup, nil
}

// ProvideCache creates the in-memory TTL cache
func ProvideCache() (*cache.InMemoryCache, func()) {
	c := cache.NewInMemoryCache(cacheSweep)
	return c, c.Close
}

// ProvideAgentRoster picks the gateway roster when a gateway URL is set and
// the workspace roster file otherwise. Both are cached.
func ProvideAgentRoster(cfg *config.Config, fsys hackpadfs.FS, c *cache.InMemoryCache, logger *zap.Logger) ports.AgentRoster {
	var inner ports.AgentRoster
	if cfg.GatewayURL != "" {
		client := &http.Client{Timeout: cfg.LookupTimeout}
		inner = roster.NewGatewayRoster(cfg.GatewayURL, client, roster.DefaultBreakerConfig(), logger)
	} else {
		name := cfg.RosterFile
		if name == "" {
			name = defaultRosterDoc
		}
		inner = roster.NewFileRoster(fsys, path.Clean(filepath.ToSlash(name)))
	}
	return roster.NewCachedRoster(inner, c, cfg.RosterCacheTTL)
}

// ProvideEventLog creates the DynamoDB event log, or nil when EVENT_TABLE
// is unset.
func ProvideEventLog(awsCfg *aws.Config, cfg *config.Config, logger *zap.Logger) *dynamostore.EventStore {
	if cfg.EventTable == "" || awsCfg == nil {
		return nil
	}
	client := awsdynamodb.NewFromConfig(*awsCfg)
	return dynamostore.NewEventStore(client, cfg.EventTable, cfg.EventRetention, logger)
}

// ProvideEventPublisher sends domain events to EventBridge and the event
// log when they are configured, and to the application log otherwise.
func ProvideEventPublisher(awsCfg *aws.Config, cfg *config.Config, eventLog *dynamostore.EventStore, logger *zap.Logger) ports.EventPublisher {
	var publishers []ports.EventPublisher
	if cfg.EventBusName != "" && awsCfg != nil {
		client := awseventbridge.NewFromConfig(*awsCfg)
		publishers = append(publishers, messaging.NewEventBridgePublisher(client, cfg.EventBusName, logger))
	}
	if eventLog != nil {
		publishers = append(publishers, eventLog)
	}

	switch len(publishers) {
	case 0:
		return messaging.NewLogPublisher(logger)
	case 1:
		return publishers[0]
	default:
		return messaging.NewFanoutPublisher(publishers...)
	}
}

// ProvideReindexer rebuilds the chunk index from workspace documents. It is
// nil when the index is disabled.
func ProvideReindexer(docs ports.DocumentSource, index ports.ChunkIndex, limits *domainconfig.EngineLimits) ports.Reindexer {
	if index == nil {
		return nil
	}
	return services.NewWorkspaceIndexer(docs, index, limits.MaxBootstrapDocuments)
}

// ProvideReindexTrigger creates the background reindex trigger. Cleanup
// waits for in-flight refreshes.
func ProvideReindexTrigger(reindexer ports.Reindexer, cfg *config.Config, logger *zap.Logger, metrics ports.Metrics) (*services.ReindexTrigger, func()) {
	trigger := services.NewReindexTrigger(reindexer, cfg.ReindexTimeout, logger, metrics)
	return trigger, trigger.Wait
}

// ProvideSourceGatherer creates the bootstrap input gatherer
func ProvideSourceGatherer(
	memory ports.MemoryDocument,
	docs ports.DocumentSource,
	index ports.ChunkIndex,
	agents ports.AgentRoster,
	limits *domainconfig.EngineLimits,
	cfg *config.Config,
	logger *zap.Logger,
	metrics ports.Metrics,
) *services.SourceGatherer {
	return services.NewSourceGatherer(memory, docs, index, agents, limits, cfg.LookupTimeout, logger, metrics)
}

// ProvideTelemetryService creates the evidence assembler
func ProvideTelemetryService(
	docs ports.DocumentSource,
	sessions ports.SessionHistory,
	limits *domainconfig.EngineLimits,
	cfg *config.Config,
	logger *zap.Logger,
	metrics ports.Metrics,
) *services.TelemetryService {
	return services.NewTelemetryService(docs, sessions, limits, cfg.LookupTimeout, logger, metrics)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	graphs *services.MemoryGraphService,
	reindexer ports.Reindexer,
	collector *observability.Collector,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(collector),
	)
	if err := commandhandlers.Register(commandBus, graphs, reindexer, collector, logger); err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(graphs *services.MemoryGraphService, collector *observability.Collector, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.LoggingMiddleware(logger),
		querybus.MetricsMiddleware(collector),
	)
	if err := queryhandlers.Register(queryBus, graphs); err != nil {
		return nil, fmt.Errorf("register query handlers: %w", err)
	}
	return queryBus, nil
}

// ProvideErrorHandler creates the HTTP error translator
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouterOptions builds authentication, rate limiting and readiness
// for the router from configuration.
func ProvideRouterOptions(cfg *config.Config, collector *observability.Collector, fsys hackpadfs.FS) (rest.Options, func(), error) {
	opts := rest.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		EnableCORS:     cfg.EnableCORS,
		RateLimit:      cfg.RateLimitRPS,
		Ready: func(ctx context.Context) error {
			_, err := hackpadfs.Stat(fsys, ".")
			return err
		},
	}
	if cfg.EnableMetrics {
		opts.Metrics = collector
	}

	if cfg.JWTSecret != "" {
		validator, err := auth.NewJWTValidator(auth.JWTConfig{
			SecretKey: cfg.JWTSecret,
			Issuer:    cfg.JWTIssuer,
		})
		if err != nil {
			return rest.Options{}, nil, fmt.Errorf("create JWT validator: %w", err)
		}
		opts.Validator = validator
	}

	cleanup := func() {}
	if cfg.RateLimitRPS > 0 {
		limiter := auth.NewTokenBucketLimiter(float64(cfg.RateLimitRPS), cfg.RateLimitBurst, limiterIdle)
		opts.Limiter = auth.NewIPRateLimiter(limiter)
		cleanup = limiter.Close
	}
	return opts, cleanup, nil
}
