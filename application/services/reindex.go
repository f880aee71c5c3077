package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"memgraph/application/ports"
	"memgraph/domain/services/materialize"
)

// Reindex triggers.
const (
	TriggerSave    = "save"
	TriggerPublish = "publish"
	TriggerWatch   = "watch"
	TriggerManual  = "manual"
	TriggerEvent   = "event"
)

// ReindexOutcome is reported synchronously; the refresh itself runs later.
type ReindexOutcome struct {
	Requested bool   `json:"requested"`
	Started   bool   `json:"started"`
	Reason    string `json:"reason,omitempty"`
}

// ReindexTrigger runs index refreshes in the background with their own
// timeout so a slow or failing refresh never affects the caller.
type ReindexTrigger struct {
	reindexer ports.Reindexer
	timeout   time.Duration
	logger    *zap.Logger
	metrics   ports.Metrics
	wg        sync.WaitGroup
}

// NewReindexTrigger creates a trigger. A nil reindexer disables refreshes.
func NewReindexTrigger(reindexer ports.Reindexer, timeout time.Duration, logger *zap.Logger, metrics ports.Metrics) *ReindexTrigger {
	return &ReindexTrigger{
		reindexer: reindexer,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Fire starts a refresh if requested and returns immediately.
func (t *ReindexTrigger) Fire(requested bool, trigger string) ReindexOutcome {
	if !requested {
		return ReindexOutcome{}
	}
	if t.reindexer == nil {
		return ReindexOutcome{Requested: true, Reason: "index disabled"}
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		err := t.reindexer.Reindex(ctx, trigger)
		if t.metrics != nil {
			t.metrics.RecordReindex(trigger, err)
		}
		if err != nil {
			t.logger.Warn("Background reindex failed",
				zap.String("trigger", trigger),
				zap.Error(err))
			return
		}
		t.logger.Debug("Background reindex finished", zap.String("trigger", trigger))
	}()

	return ReindexOutcome{Requested: true, Started: true}
}

// Wait blocks until every started refresh has finished.
func (t *ReindexTrigger) Wait() {
	t.wg.Wait()
}

// WorkspaceIndexer rebuilds the chunk index from the memory document,
// journals and reference documents.
type WorkspaceIndexer struct {
	docs  ports.DocumentSource
	index ports.ChunkIndex
	limit int
}

// NewWorkspaceIndexer creates an indexer over at most limit journals
func NewWorkspaceIndexer(docs ports.DocumentSource, index ports.ChunkIndex, limit int) *WorkspaceIndexer {
	return &WorkspaceIndexer{docs: docs, index: index, limit: limit}
}

// Reindex implements ports.Reindexer
func (w *WorkspaceIndexer) Reindex(ctx context.Context, trigger string) error {
	refs, err := w.docs.References(ctx)
	if err != nil {
		return fmt.Errorf("list reference documents: %w", err)
	}
	journals, err := w.docs.Journals(ctx, w.limit)
	if err != nil {
		return fmt.Errorf("list journals: %w", err)
	}

	files := make([]ports.IndexedFile, 0, len(refs)+len(journals))
	for _, info := range append(refs, journals...) {
		content, err := w.docs.Read(ctx, info.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", info.Path, err)
		}
		files = append(files, ports.IndexedFile{
			Path:      info.Path,
			Content:   materialize.StripSnapshot(content),
			UpdatedAt: info.ModTime,
		})
	}

	if err := w.index.Reindex(ctx, files); err != nil {
		return fmt.Errorf("reindex (%s): %w", trigger, err)
	}
	return nil
}
