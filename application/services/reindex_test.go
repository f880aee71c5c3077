package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"memgraph/application/ports"
)

func TestReindexTrigger_Fire(t *testing.T) {
	defer goleak.VerifyNone(t)

	tests := []struct {
		name      string
		reindexer ports.Reindexer
		requested bool
		want      ReindexOutcome
	}{
		{
			name:      "not requested",
			reindexer: &countingReindexer{},
			requested: false,
			want:      ReindexOutcome{},
		},
		{
			name:      "requested",
			reindexer: &countingReindexer{},
			requested: true,
			want:      ReindexOutcome{Requested: true, Started: true},
		},
		{
			name:      "disabled",
			reindexer: nil,
			requested: true,
			want:      ReindexOutcome{Requested: true, Reason: "index disabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := NewReindexTrigger(tt.reindexer, time.Second, zap.NewNop(), nil)
			got := trigger.Fire(tt.requested, TriggerManual)
			trigger.Wait()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReindexTrigger_DoesNotBlockCaller(t *testing.T) {
	defer goleak.VerifyNone(t)

	reindexer := &countingReindexer{block: make(chan struct{})}
	metrics := &recordingMetrics{}
	trigger := NewReindexTrigger(reindexer, time.Second, zap.NewNop(), metrics)

	done := make(chan ReindexOutcome, 1)
	go func() { done <- trigger.Fire(true, TriggerSave) }()

	select {
	case outcome := <-done:
		assert.True(t, outcome.Started)
	case <-time.After(time.Second):
		t.Fatal("Fire blocked on the reindexer")
	}

	close(reindexer.block)
	trigger.Wait()
	assert.Equal(t, []string{TriggerSave}, reindexer.seen())
	assert.Equal(t, []string{TriggerSave}, metrics.reindex)
}

func TestReindexTrigger_TimeoutIsOwn(t *testing.T) {
	defer goleak.VerifyNone(t)

	reindexer := &countingReindexer{block: make(chan struct{})}
	trigger := NewReindexTrigger(reindexer, 20*time.Millisecond, zap.NewNop(), nil)

	outcome := trigger.Fire(true, TriggerPublish)
	trigger.Wait()

	assert.True(t, outcome.Started)
	assert.Empty(t, reindexer.seen(), "timed out refresh records nothing")
}

func TestWorkspaceIndexer_Reindex(t *testing.T) {
	docs := &fakeDocs{contents: map[string]string{}}
	docs.addJournal("2026-03-01.md", "- one\n", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	docs.references = []ports.DocumentInfo{{Name: "MEMORY.md", Path: "MEMORY.md"}}
	docs.contents["MEMORY.md"] = "# Memory\n"
	index := &fakeIndex{}

	err := NewWorkspaceIndexer(docs, index, 8).Reindex(context.Background(), TriggerManual)
	require.NoError(t, err)

	require.Len(t, index.files, 2)
	assert.Equal(t, "MEMORY.md", index.files[0].Path)
	assert.Equal(t, "memory/2026-03-01.md", index.files[1].Path)
	assert.Equal(t, "- one\n", index.files[1].Content)
}

func TestWorkspaceIndexer_ReadFailure(t *testing.T) {
	docs := &fakeDocs{contents: map[string]string{}}
	docs.references = []ports.DocumentInfo{{Name: "gone.md", Path: "gone.md"}}

	err := NewWorkspaceIndexer(docs, &fakeIndex{}, 8).Reindex(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone.md")
}
