package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/events"
	"memgraph/domain/services/materialize"
	"memgraph/domain/services/synthesis"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/observability"
)

// BootstrapInfo reports which inputs a cold bootstrap used.
type BootstrapInfo struct {
	Source string   `json:"source"`
	Files  []string `json:"files"`
}

// MemoryGraphView is the read operation's response.
type MemoryGraphView struct {
	Graph     *aggregates.KnowledgeGraph `json:"graph"`
	Bootstrap *BootstrapInfo             `json:"bootstrap,omitempty"`
	Telemetry *Telemetry                 `json:"telemetry"`
	Workspace string                     `json:"workspace"`
	Paths     ports.WorkspacePaths       `json:"paths"`
}

// SaveGraphResult is returned by Save.
type SaveGraphResult struct {
	Graph   *aggregates.KnowledgeGraph `json:"graph"`
	Reindex ReindexOutcome             `json:"reindex"`
}

// PublishResult is returned by Publish.
type PublishResult struct {
	Path    string         `json:"path"`
	Reindex ReindexOutcome `json:"reindex"`
}

// MemoryGraphService orchestrates loading, bootstrapping, injecting, saving
// and publishing the knowledge graph. It holds no graph state between
// calls; the canonical store is the only source of truth.
type MemoryGraphService struct {
	store      ports.GraphStore
	memory     ports.MemoryDocument
	gatherer   *SourceGatherer
	telemetry  *TelemetryService
	engine     *synthesis.Engine
	normalizer *aggregates.Normalizer
	reindex    *ReindexTrigger
	publisher  ports.EventPublisher
	metrics    ports.Metrics
	tracer     *observability.Tracer
	limits     *config.EngineLimits
	logger     *zap.Logger
	now        func() time.Time
}

// NewMemoryGraphService creates the orchestrator
func NewMemoryGraphService(
	store ports.GraphStore,
	memory ports.MemoryDocument,
	gatherer *SourceGatherer,
	telemetry *TelemetryService,
	engine *synthesis.Engine,
	normalizer *aggregates.Normalizer,
	reindex *ReindexTrigger,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	tracer *observability.Tracer,
	limits *config.EngineLimits,
	logger *zap.Logger,
) *MemoryGraphService {
	return &MemoryGraphService{
		store:      store,
		memory:     memory,
		gatherer:   gatherer,
		telemetry:  telemetry,
		engine:     engine,
		normalizer: normalizer,
		reindex:    reindex,
		publisher:  publisher,
		metrics:    metrics,
		tracer:     tracer,
		limits:     limits,
		logger:     logger,
		now:        time.Now,
	}
}

// Load returns the current graph, bootstrapping it when no canonical store
// exists or reset is set, together with the telemetry payload. Graph
// resolution and telemetry collection run concurrently.
func (s *MemoryGraphService) Load(ctx context.Context, reset bool) (*MemoryGraphView, error) {
	paths := s.store.Paths()
	view := &MemoryGraphView{Workspace: paths.Workspace, Paths: paths}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.tracer.TraceFunction(egCtx, "resolve-graph", func(ctx context.Context) error {
			graph, info, err := s.resolve(ctx, reset)
			if err != nil {
				return err
			}
			view.Graph, view.Bootstrap = graph, info
			return nil
		})
	})
	eg.Go(func() error {
		view.Telemetry = s.telemetry.Collect(egCtx)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	view.Telemetry.Rank(view.Graph, s.limits.MaxTelemetryDocs)
	return view, nil
}

// resolve implements the per-request state machine: bootstrap when there is
// nothing to load, otherwise load, inject and persist only if injection
// changed the graph.
func (s *MemoryGraphService) resolve(ctx context.Context, reset bool) (*aggregates.KnowledgeGraph, *BootstrapInfo, error) {
	meta := s.store.Paths().Meta()

	var existing *aggregates.KnowledgeGraph
	if !reset {
		raw, err := s.store.Load(ctx)
		switch {
		case err == nil:
			existing = s.normalizer.NormalizeJSON(raw, meta)
		case errors.Is(err, ports.ErrGraphNotFound):
		default:
			return nil, nil, apperrors.NewStorageError("load graph", err).WithCode(apperrors.CodeStoreRead)
		}
	}

	sources := s.gatherer.Gather(ctx)

	if existing == nil {
		input := synthesis.Input{
			Memory:    sources.Memory,
			Documents: sources.Documents,
			Agents:    sources.Agents,
		}
		graph := s.engine.Bootstrap(input, meta)
		if err := s.persist(ctx, graph); err != nil {
			return nil, nil, err
		}

		info := &BootstrapInfo{Source: sources.Provenance, Files: fileNames(s.engine.Documents(input))}
		s.logger.Info("Bootstrapped knowledge graph",
			zap.Bool("reset", reset),
			zap.String("source", info.Source),
			zap.Int("files", len(info.Files)),
			zap.Int("nodes", len(graph.Nodes)),
			zap.Int("edges", len(graph.Edges)))
		s.recordLoad(ctx, observability.LoadBootstrapped)
		s.publish(ctx, events.NewGraphBootstrapped(meta.Workspace, info.Source, info.Files, len(graph.Nodes), len(graph.Edges), s.now()))
		return graph, info, nil
	}

	graph, result := s.engine.Inject(existing, sources.All(), sources.Agents, meta)
	if !result.Changed() {
		s.recordLoad(ctx, observability.LoadUnchanged)
		return graph, nil, nil
	}
	if err := s.persist(ctx, graph); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Injected new documents into knowledge graph",
		zap.Strings("addedNodes", result.AddedNodes),
		zap.Int("addedEdges", len(result.AddedEdges)))
	s.recordLoad(ctx, observability.LoadInjected)
	s.publish(ctx, events.NewDocumentsInjected(meta.Workspace, result.AddedNodes, result.AddedEdges, s.now()))
	return graph, nil, nil
}

// Save normalizes a client-submitted graph and persists it with its mirror.
// Concurrent saves are last-write-wins.
func (s *MemoryGraphService) Save(ctx context.Context, raw json.RawMessage, reindex bool) (*SaveGraphResult, error) {
	meta := s.store.Paths().Meta()
	graph := s.normalizer.NormalizeJSON(raw, meta)

	if err := s.persist(ctx, graph); err != nil {
		return nil, err
	}

	outcome := s.reindex.Fire(reindex, TriggerSave)
	if s.metrics != nil {
		s.metrics.RecordSave()
	}
	s.publish(ctx, events.NewGraphSaved(meta.Workspace, len(graph.Nodes), len(graph.Edges), reindex, s.now()))

	return &SaveGraphResult{Graph: graph, Reindex: outcome}, nil
}

// Publish renders the snapshot section and upserts it into the memory
// document, leaving everything outside the markers untouched.
func (s *MemoryGraphService) Publish(ctx context.Context, reindex bool) (*PublishResult, error) {
	graph, _, err := s.resolve(ctx, false)
	if err != nil {
		return nil, err
	}

	section := materialize.BuildSnapshotSection(graph, s.limits.SnapshotNodes, s.limits.SnapshotEdges)

	current, err := s.memory.Read(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("read memory document", err).WithCode(apperrors.CodeStoreRead)
	}
	if err := s.memory.Write(ctx, materialize.UpsertSnapshotSection(current, section)); err != nil {
		return nil, apperrors.NewStorageError("write memory document", err).WithCode(apperrors.CodeStoreWrite)
	}

	paths := s.store.Paths()
	outcome := s.reindex.Fire(reindex, TriggerPublish)
	if s.metrics != nil {
		s.metrics.RecordPublish()
	}
	s.publish(ctx, events.NewSnapshotPublished(paths.Workspace, paths.Memory, reindex, s.now()))

	return &PublishResult{Path: paths.Memory, Reindex: outcome}, nil
}

func (s *MemoryGraphService) persist(ctx context.Context, graph *aggregates.KnowledgeGraph) error {
	if err := s.store.Save(ctx, graph); err != nil {
		return apperrors.NewStorageError("write graph", err).WithCode(apperrors.CodeStoreWrite)
	}
	if err := s.store.SaveMirror(ctx, materialize.ToMirrorDocument(graph)); err != nil {
		return apperrors.NewStorageError("write mirror document", err).WithCode(apperrors.CodeStoreWrite)
	}
	return nil
}

func (s *MemoryGraphService) publish(ctx context.Context, event events.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish domain event",
			zap.String("eventType", event.GetEventType()),
			zap.Error(err))
	}
}

func (s *MemoryGraphService) recordLoad(ctx context.Context, outcome string) {
	s.tracer.AddAnnotation(ctx, "load_outcome", outcome)
	if s.metrics != nil {
		s.metrics.RecordGraphLoad(outcome)
	}
}

func fileNames(files []synthesis.BootstrapFile) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names
}
