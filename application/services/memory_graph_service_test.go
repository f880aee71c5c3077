package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/events"
	"memgraph/domain/services/evidence"
	"memgraph/domain/services/materialize"
	"memgraph/domain/services/synthesis"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/observability"
)

func nodeIDs(g *aggregates.KnowledgeGraph) []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestLoad_EmptyWorkspaceBootstrapsPlaceholders(t *testing.T) {
	h := newHarness()

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)

	require.NotNil(t, view.Bootstrap)
	assert.Equal(t, aggregates.SourceFilesystem, view.Bootstrap.Source)
	assert.Empty(t, view.Bootstrap.Files)

	assert.Len(t, view.Graph.Nodes, 3)
	assert.True(t, view.Graph.HasNode(synthesis.RootNodeID))
	assert.True(t, view.Graph.HasNode("placeholder-getting-started"))
	assert.True(t, view.Graph.HasNode("placeholder-first-memory"))

	assert.Equal(t, "/ws", view.Workspace)
	assert.Equal(t, "/ws/MEMORY.md", view.Paths.Memory)
	assert.Equal(t, 1, h.store.saves)
	assert.Contains(t, h.store.mirror, "## Entities")
	assert.Equal(t, []string{observability.LoadBootstrapped}, h.metrics.loads)
	assert.Equal(t, []string{events.TypeGraphBootstrapped}, h.publisher.eventTypes())
}

func TestLoad_BootstrapThenUnchanged(t *testing.T) {
	h := newHarness()
	h.memory.content = "# Memory\n\n## Preferences\n- Prefers dark mode\n"
	h.docs.addJournal("2026-03-01.md", "## Projects\n- Project setup for the dashboard\n", time.Now())

	first, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, first.Bootstrap)
	assert.Equal(t, []string{"MEMORY.md", "2026-03-01.md"}, first.Bootstrap.Files)
	assert.True(t, first.Graph.HasNode(synthesis.FileNodeID("MEMORY.md")))
	assert.True(t, first.Graph.HasNode(synthesis.FileNodeID("2026-03-01.md")))

	second, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, second.Bootstrap)
	assert.Equal(t, nodeIDs(first.Graph), nodeIDs(second.Graph))
	assert.Equal(t, 1, h.store.saves, "unchanged graph must not be rewritten")
	assert.Equal(t, []string{observability.LoadBootstrapped, observability.LoadUnchanged}, h.metrics.loads)
}

func TestLoad_BootstrapReportsOnlyUsedFiles(t *testing.T) {
	h := newHarness()
	h.memory.content = "# Memory\n- Tone: short\n"
	for i := 0; i < 20; i++ {
		h.index.files = append(h.index.files, ports.IndexedFile{
			Path:    fmt.Sprintf("/ws/memory/2026-01-%02d.md", 20-i),
			Content: "- note\n",
		})
	}

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, view.Bootstrap)

	limit := config.DefaultEngineLimits().MaxBootstrapDocuments
	require.Len(t, view.Bootstrap.Files, limit)
	assert.Equal(t, "MEMORY.md", view.Bootstrap.Files[0])
	for _, name := range view.Bootstrap.Files {
		assert.True(t, view.Graph.HasNode(synthesis.FileNodeID(name)), name)
	}
	assert.False(t, view.Graph.HasNode(synthesis.FileNodeID("2026-01-01.md")))
}

func TestLoad_ResetIgnoresPublishedSnapshot(t *testing.T) {
	h := newHarness()
	h.memory.content = "# Memory\n\n- Prefers dark mode\n"

	first, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = h.service.Publish(context.Background(), false)
		require.NoError(t, err)
		require.Contains(t, h.memory.content, materialize.StartMarker)

		rebuilt, err := h.service.Load(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, nodeIDs(first.Graph), nodeIDs(rebuilt.Graph))
	}
}

func TestLoad_InjectsNewDocumentsAndAgents(t *testing.T) {
	h := newHarness()
	_, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)

	h.docs.addJournal("2026-03-02.md", "- Follow up with the team\n", time.Now())
	h.roster.agents = []synthesis.Agent{{ID: "ops", Name: "Ops Agent"}}

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, view.Bootstrap)
	assert.True(t, view.Graph.HasNode(synthesis.FileNodeID("2026-03-02.md")))
	assert.True(t, view.Graph.HasNode(synthesis.AgentNodeID("ops")))
	assert.Equal(t, 2, h.store.saves)
	assert.Contains(t, h.publisher.eventTypes(), events.TypeDocumentsInjected)

	again, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, again.Graph.Nodes, len(view.Graph.Nodes))
	assert.Equal(t, 2, h.store.saves)
}

func TestLoad_ResetForcesBootstrap(t *testing.T) {
	h := newHarness()
	h.store.raw = []byte(`{"nodes":[{"id":"hand-made","label":"Hand made"}],"edges":[]}`)

	view, err := h.service.Load(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, view.Bootstrap)
	assert.False(t, view.Graph.HasNode("hand-made"))
}

func TestLoad_UndecodableStoreIsRepaired(t *testing.T) {
	h := newHarness()
	h.store.raw = []byte(`{not json`)

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, view.Bootstrap)
	assert.True(t, view.Graph.HasNode(synthesis.RootNodeID))
}

func TestLoad_StoreReadFailureIsStorageError(t *testing.T) {
	h := newHarness()
	h.store.loadErr = errBoom

	_, err := h.service.Load(context.Background(), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
	assert.Equal(t, apperrors.CodeStoreRead, apperrors.GetAppError(err).Code)
}

func TestLoad_DegradedSourcesDoNotFailTheRequest(t *testing.T) {
	h := newHarness()
	h.roster.delay = time.Second
	h.index.err = errBoom
	h.docs.journalErr = errBoom

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, view.Bootstrap)

	degraded := h.metrics.degradedSources()
	assert.Contains(t, degraded, SourceRoster)
	assert.Contains(t, degraded, SourceIndex)
	assert.Contains(t, degraded, SourceJournals)
	assert.Contains(t, view.Telemetry.Degraded, SourceJournals)
}

func TestLoad_PrefersIndexedContent(t *testing.T) {
	h := newHarness()
	h.index.files = []ports.IndexedFile{
		{Path: "memory/2026-03-03.md", Content: "- Indexed fact one\n"},
		{Path: "MEMORY.md", Content: "- skipped, read directly\n"},
	}
	h.docs.addJournal("2026-03-01.md", "- Journal fact\n", time.Now())

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, view.Bootstrap)
	assert.Equal(t, aggregates.SourceIndexed, view.Bootstrap.Source)
	assert.Equal(t, []string{"2026-03-03.md"}, view.Bootstrap.Files)
	assert.False(t, view.Graph.HasNode(synthesis.FileNodeID("2026-03-01.md")))
}

func TestLoad_TelemetryIsolatesBrokenSessions(t *testing.T) {
	h := newHarness()
	now := time.Now()
	h.history.order = []string{"good", "bad"}
	h.history.broken = map[string]bool{"bad": true}
	h.history.sessions = map[string][]evidence.RecentChatMessage{
		"good": {{SessionKey: "good", Role: "user", Timestamp: now, Text: "hello"}},
	}

	view, err := h.service.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, view.Telemetry.Messages, 1)
	assert.Equal(t, "hello", view.Telemetry.Messages[0].Text)
	assert.Contains(t, view.Telemetry.Degraded, SourceSessions+":bad")
}

func TestSave_NormalizesAndMirrors(t *testing.T) {
	h := newHarness()
	payload := json.RawMessage(`{
		"nodes": [{"id": "a", "label": "A"}, {"id": "a", "label": "Also A"}],
		"edges": [{"source": "a", "target": "ghost"}, {"source": "a", "target": "a-2"}]
	}`)

	result, err := h.service.Save(context.Background(), payload, true)
	require.NoError(t, err)
	h.trigger.Wait()

	assert.Equal(t, []string{"a", "a-2"}, nodeIDs(result.Graph))
	require.Len(t, result.Graph.Edges, 1)
	assert.Equal(t, "a-2", result.Graph.Edges[0].Target)
	assert.Equal(t, ReindexOutcome{Requested: true, Started: true}, result.Reindex)

	assert.Equal(t, 1, h.store.saves)
	assert.Contains(t, h.store.mirror, "Also A")
	assert.Equal(t, []string{TriggerSave}, h.reindexer.seen())
	assert.Equal(t, 1, h.metrics.saves)
	assert.Equal(t, []string{events.TypeGraphSaved}, h.publisher.eventTypes())
}

func TestSave_WithoutReindex(t *testing.T) {
	h := newHarness()

	result, err := h.service.Save(context.Background(), json.RawMessage(`{}`), false)
	require.NoError(t, err)
	h.trigger.Wait()

	assert.Equal(t, ReindexOutcome{}, result.Reindex)
	assert.Empty(t, h.reindexer.seen())
	assert.Empty(t, result.Graph.Nodes)
}

func TestSave_WriteFailure(t *testing.T) {
	h := newHarness()
	h.store.saveErr = errBoom

	_, err := h.service.Save(context.Background(), json.RawMessage(`{}`), true)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeStoreWrite, apperrors.GetAppError(err).Code)
	assert.Empty(t, h.reindexer.seen())
}

func TestSave_EventFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.publisher = &mockPublisher{}
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(errBoom)
	h.build()

	_, err := h.service.Save(context.Background(), json.RawMessage(`{"nodes":["x"]}`), false)
	require.NoError(t, err)
	h.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPublish_UpsertsSnapshotIdempotently(t *testing.T) {
	h := newHarness()
	h.memory.content = "# Memory\n\nKeep this line.\n"

	result, err := h.service.Publish(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "/ws/MEMORY.md", result.Path)

	first := h.memory.content
	assert.True(t, strings.HasPrefix(first, "# Memory\n\nKeep this line.\n"))
	assert.Contains(t, first, materialize.StartMarker)
	assert.Contains(t, first, materialize.EndMarker)

	_, err = h.service.Publish(context.Background(), true)
	require.NoError(t, err)
	h.trigger.Wait()

	assert.Equal(t, first, h.memory.content)
	assert.Equal(t, []string{TriggerPublish}, h.reindexer.seen())
	assert.Equal(t, 2, h.metrics.publish)
	assert.Contains(t, h.publisher.eventTypes(), events.TypeSnapshotPublished)
}

func TestPublish_MemoryReadFailure(t *testing.T) {
	h := newHarness()
	h.memory.readErr = errBoom

	_, err := h.service.Publish(context.Background(), false)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStorage))
}
