package services

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/services/synthesis"
)

// Degraded source names reported to metrics and logs.
const (
	SourceMemory   = "memory"
	SourceIndex    = "index"
	SourceJournals = "journals"
	SourceRoster   = "roster"
	SourceSessions = "sessions"
	SourceDocs     = "documents"
)

// Sources is everything bootstrap and injection read from the workspace.
type Sources struct {
	Memory     *synthesis.BootstrapFile
	Documents  []synthesis.BootstrapFile
	Provenance string
	Agents     []synthesis.Agent
}

// All returns the memory document followed by the candidate documents.
func (s Sources) All() []synthesis.BootstrapFile {
	docs := make([]synthesis.BootstrapFile, 0, len(s.Documents)+1)
	if s.Memory != nil {
		docs = append(docs, *s.Memory)
	}
	return append(docs, s.Documents...)
}

// SourceGatherer reads the memory document, candidate documents and agent
// roster concurrently. Each lookup has its own timeout and degrades to an
// empty contribution on failure.
type SourceGatherer struct {
	memory  ports.MemoryDocument
	docs    ports.DocumentSource
	index   ports.ChunkIndex
	roster  ports.AgentRoster
	limits  *config.EngineLimits
	timeout time.Duration
	logger  *zap.Logger
	metrics ports.Metrics
}

// NewSourceGatherer creates a gatherer
func NewSourceGatherer(
	memory ports.MemoryDocument,
	docs ports.DocumentSource,
	index ports.ChunkIndex,
	roster ports.AgentRoster,
	limits *config.EngineLimits,
	timeout time.Duration,
	logger *zap.Logger,
	metrics ports.Metrics,
) *SourceGatherer {
	return &SourceGatherer{
		memory:  memory,
		docs:    docs,
		index:   index,
		roster:  roster,
		limits:  limits,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Gather fans out the three lookups and joins them.
func (g *SourceGatherer) Gather(ctx context.Context) Sources {
	var sources Sources

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sources.Memory = g.readMemory(egCtx)
		return nil
	})
	eg.Go(func() error {
		sources.Documents, sources.Provenance = g.candidates(egCtx)
		return nil
	})
	eg.Go(func() error {
		sources.Agents = g.agents(egCtx)
		return nil
	})

	// goroutines never return errors; failures are degraded in place
	_ = eg.Wait()
	return sources
}

func (g *SourceGatherer) readMemory(ctx context.Context) *synthesis.BootstrapFile {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	content, err := g.memory.Read(ctx)
	if err != nil {
		g.degrade(SourceMemory, err)
		return nil
	}
	if content == "" {
		return nil
	}
	return &synthesis.BootstrapFile{
		Name:       g.memory.Name(),
		Content:    content,
		Provenance: aggregates.SourceFilesystem,
	}
}

// candidates prefers indexed content and falls back to recent journals.
func (g *SourceGatherer) candidates(ctx context.Context) ([]synthesis.BootstrapFile, string) {
	if docs := g.indexed(ctx); len(docs) > 0 {
		return docs, aggregates.SourceIndexed
	}
	return g.journals(ctx), aggregates.SourceFilesystem
}

func (g *SourceGatherer) indexed(ctx context.Context) []synthesis.BootstrapFile {
	if g.index == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	files, err := g.index.RecentFiles(ctx, g.limits.MaxBootstrapDocuments)
	if err != nil {
		g.degrade(SourceIndex, err)
		return nil
	}

	memoryName := g.memory.Name()
	docs := make([]synthesis.BootstrapFile, 0, len(files))
	for _, file := range files {
		name := path.Base(file.Path)
		if name == memoryName {
			continue
		}
		docs = append(docs, synthesis.BootstrapFile{
			Name:       name,
			Content:    file.Content,
			Provenance: aggregates.SourceIndexed,
		})
	}
	return docs
}

func (g *SourceGatherer) journals(ctx context.Context) []synthesis.BootstrapFile {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	infos, err := g.docs.Journals(ctx, g.limits.MaxJournalFiles)
	if err != nil {
		g.degrade(SourceJournals, err)
		return nil
	}

	docs := make([]synthesis.BootstrapFile, 0, len(infos))
	for _, info := range infos {
		content, err := g.docs.Read(ctx, info.Path)
		if err != nil {
			g.degrade(SourceJournals, err)
			continue
		}
		docs = append(docs, synthesis.BootstrapFile{
			Name:       info.Name,
			Content:    content,
			Provenance: aggregates.SourceFilesystem,
		})
	}
	return docs
}

func (g *SourceGatherer) agents(ctx context.Context) []synthesis.Agent {
	if g.roster == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	agents, err := g.roster.List(ctx)
	if err != nil {
		g.degrade(SourceRoster, err)
		return nil
	}
	return agents
}

func (g *SourceGatherer) degrade(source string, err error) {
	g.logger.Warn("Source lookup degraded to empty result",
		zap.String("source", source),
		zap.Error(err))
	if g.metrics != nil {
		g.metrics.RecordDegraded(source)
	}
}
