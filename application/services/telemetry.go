package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/services/evidence"
	"memgraph/domain/services/materialize"
)

// Telemetry is the read-only inspection payload returned with the graph.
type Telemetry struct {
	GeneratedAt time.Time                    `json:"generatedAt"`
	Documents   []evidence.SourceDocument    `json:"documents"`
	Messages    []evidence.RecentChatMessage `json:"messages"`
	Degraded    []string                     `json:"degraded,omitempty"`
}

// Rank orders documents by graph hints, then recency, and applies the cap.
func (t *Telemetry) Rank(g *aggregates.KnowledgeGraph, maxDocs int) {
	t.Documents = evidence.RankDocuments(t.Documents, evidence.CollectHints(g))
	if len(t.Documents) > maxDocs {
		t.Documents = t.Documents[:maxDocs]
	}
}

// TelemetryService assembles evidence independently of graph persistence.
type TelemetryService struct {
	docs    ports.DocumentSource
	history ports.SessionHistory
	limits  *config.EngineLimits
	timeout time.Duration
	logger  *zap.Logger
	metrics ports.Metrics
	now     func() time.Time
}

// NewTelemetryService creates a telemetry service
func NewTelemetryService(
	docs ports.DocumentSource,
	history ports.SessionHistory,
	limits *config.EngineLimits,
	timeout time.Duration,
	logger *zap.Logger,
	metrics ports.Metrics,
) *TelemetryService {
	return &TelemetryService{
		docs:    docs,
		history: history,
		limits:  limits,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Collect reads documents and recent messages concurrently. It never fails;
// slices that could not be read are listed in Degraded.
func (s *TelemetryService) Collect(ctx context.Context) *Telemetry {
	telemetry := &Telemetry{
		GeneratedAt: s.now().UTC(),
		Documents:   []evidence.SourceDocument{},
		Messages:    []evidence.RecentChatMessage{},
	}

	var mu sync.Mutex
	degrade := func(source string, err error) {
		mu.Lock()
		telemetry.Degraded = append(telemetry.Degraded, source)
		mu.Unlock()
		s.logger.Warn("Telemetry source degraded",
			zap.String("source", source),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordDegraded(source)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		telemetry.Documents = s.documents(egCtx, degrade)
		return nil
	})
	eg.Go(func() error {
		telemetry.Messages = s.messages(egCtx, degrade)
		return nil
	})
	_ = eg.Wait()

	return telemetry
}

func (s *TelemetryService) documents(ctx context.Context, degrade func(string, error)) []evidence.SourceDocument {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	infos, err := s.docs.References(ctx)
	if err != nil {
		degrade(SourceDocs, err)
		infos = nil
	}
	journals, err := s.docs.Journals(ctx, s.limits.MaxJournalFiles)
	if err != nil {
		degrade(SourceJournals, err)
	} else {
		infos = append(infos, journals...)
	}

	docs := make([]evidence.SourceDocument, 0, len(infos))
	for _, info := range infos {
		content, err := s.docs.Read(ctx, info.Path)
		if err != nil {
			degrade(SourceDocs, err)
			continue
		}
		chunks, facts := evidence.Parse(materialize.StripSnapshot(content), s.limits.MaxChunksPerDocument, s.limits.MaxFactsPerEvidence)
		docs = append(docs, evidence.SourceDocument{
			Name:       info.Name,
			Path:       info.Path,
			Provenance: aggregates.SourceFilesystem,
			ModTime:    info.ModTime,
			Size:       info.Size,
			Chunks:     chunks,
			Facts:      facts,
		})
	}
	return docs
}

// messages reads each session separately so one broken transcript only
// loses its own messages.
func (s *TelemetryService) messages(ctx context.Context, degrade func(string, error)) []evidence.RecentChatMessage {
	if s.history == nil {
		return []evidence.RecentChatMessage{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	keys, err := s.history.Sessions(ctx, s.limits.MaxSessions)
	if err != nil {
		degrade(SourceSessions, err)
		return []evidence.RecentChatMessage{}
	}

	perSession := make([][]evidence.RecentChatMessage, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			msgs, err := s.history.Recent(ctx, key, s.limits.MessagesPerSession)
			if err != nil {
				degrade(SourceSessions+":"+key, err)
				return
			}
			perSession[i] = msgs
		}(i, key)
	}
	wg.Wait()

	return evidence.RankMessages(perSession, s.limits.MessagesPerSession, s.limits.MaxMessages)
}
