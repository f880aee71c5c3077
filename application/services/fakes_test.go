package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"memgraph/application/ports"
	"memgraph/domain/config"
	"memgraph/domain/core/aggregates"
	"memgraph/domain/events"
	"memgraph/domain/services/evidence"
	"memgraph/domain/services/synthesis"
	"memgraph/pkg/observability"
)

var errBoom = errors.New("boom")

type fakeStore struct {
	mu       sync.Mutex
	raw      []byte
	mirror   string
	loadErr  error
	saveErr  error
	saves    int
	mirrored int
}

func (s *fakeStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.raw == nil {
		return nil, ports.ErrGraphNotFound
	}
	return s.raw, nil
}

func (s *fakeStore) Save(ctx context.Context, graph *aggregates.KnowledgeGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := json.Marshal(graph)
	if err != nil {
		return err
	}
	s.raw = data
	s.saves++
	return nil
}

func (s *fakeStore) SaveMirror(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = content
	s.mirrored++
	return nil
}

func (s *fakeStore) Paths() ports.WorkspacePaths {
	return ports.WorkspacePaths{
		Workspace: "/ws",
		Graph:     "/ws/memory/knowledge-graph.json",
		Mirror:    "/ws/memory/knowledge-graph.md",
		Memory:    "/ws/MEMORY.md",
	}
}

type fakeMemory struct {
	mu      sync.Mutex
	content string
	readErr error
}

func (m *fakeMemory) Read(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content, m.readErr
}

func (m *fakeMemory) Write(ctx context.Context, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = content
	return nil
}

func (m *fakeMemory) Name() string { return "MEMORY.md" }

type fakeDocs struct {
	journals   []ports.DocumentInfo
	references []ports.DocumentInfo
	contents   map[string]string
	journalErr error
}

func (d *fakeDocs) Journals(ctx context.Context, limit int) ([]ports.DocumentInfo, error) {
	if d.journalErr != nil {
		return nil, d.journalErr
	}
	if len(d.journals) > limit {
		return d.journals[:limit], nil
	}
	return d.journals, nil
}

func (d *fakeDocs) References(ctx context.Context) ([]ports.DocumentInfo, error) {
	return d.references, nil
}

func (d *fakeDocs) Read(ctx context.Context, path string) (string, error) {
	content, ok := d.contents[path]
	if !ok {
		return "", errBoom
	}
	return content, nil
}

func (d *fakeDocs) addJournal(name, content string, mtime time.Time) {
	if d.contents == nil {
		d.contents = map[string]string{}
	}
	p := "memory/" + name
	d.journals = append(d.journals, ports.DocumentInfo{Name: name, Path: p, ModTime: mtime, Size: int64(len(content))})
	sort.SliceStable(d.journals, func(i, j int) bool { return d.journals[i].ModTime.After(d.journals[j].ModTime) })
	d.contents[p] = content
}

type fakeIndex struct {
	files []ports.IndexedFile
	err   error
}

func (i *fakeIndex) RecentFiles(ctx context.Context, limit int) ([]ports.IndexedFile, error) {
	return i.files, i.err
}

func (i *fakeIndex) Reindex(ctx context.Context, files []ports.IndexedFile) error {
	i.files = files
	return nil
}

type fakeRoster struct {
	agents []synthesis.Agent
	err    error
	delay  time.Duration
}

func (r *fakeRoster) List(ctx context.Context) ([]synthesis.Agent, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.agents, r.err
}

type fakeHistory struct {
	sessions map[string][]evidence.RecentChatMessage
	order    []string
	broken   map[string]bool
}

func (h *fakeHistory) Sessions(ctx context.Context, limit int) ([]string, error) {
	if len(h.order) > limit {
		return h.order[:limit], nil
	}
	return h.order, nil
}

func (h *fakeHistory) Recent(ctx context.Context, key string, limit int) ([]evidence.RecentChatMessage, error) {
	if h.broken[key] {
		return nil, errBoom
	}
	return h.sessions[key], nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

func (m *mockPublisher) eventTypes() []string {
	var types []string
	for _, call := range m.Calls {
		for _, e := range call.Arguments.Get(1).([]events.DomainEvent) {
			types = append(types, e.GetEventType())
		}
	}
	return types
}

type countingReindexer struct {
	mu       sync.Mutex
	triggers []string
	err      error
	block    chan struct{}
}

func (r *countingReindexer) Reindex(ctx context.Context, trigger string) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, trigger)
	return r.err
}

func (r *countingReindexer) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.triggers...)
}

type recordingMetrics struct {
	mu       sync.Mutex
	loads    []string
	saves    int
	publish  int
	degraded []string
	reindex  []string
}

func (m *recordingMetrics) RecordGraphLoad(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, outcome)
}

func (m *recordingMetrics) RecordSave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
}

func (m *recordingMetrics) RecordPublish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish++
}

func (m *recordingMetrics) RecordDegraded(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = append(m.degraded, source)
}

func (m *recordingMetrics) RecordReindex(trigger string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reindex = append(m.reindex, trigger)
}

func (m *recordingMetrics) degradedSources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.degraded...)
}

// harness wires a MemoryGraphService over in-memory fakes.
type harness struct {
	store     *fakeStore
	memory    *fakeMemory
	docs      *fakeDocs
	index     *fakeIndex
	roster    *fakeRoster
	history   *fakeHistory
	publisher *mockPublisher
	reindexer *countingReindexer
	metrics   *recordingMetrics
	trigger   *ReindexTrigger
	service   *MemoryGraphService
}

func newHarness() *harness {
	h := &harness{
		store:     &fakeStore{},
		memory:    &fakeMemory{},
		docs:      &fakeDocs{contents: map[string]string{}},
		index:     &fakeIndex{},
		roster:    &fakeRoster{},
		history:   &fakeHistory{},
		publisher: &mockPublisher{},
		reindexer: &countingReindexer{},
		metrics:   &recordingMetrics{},
	}
	h.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)
	h.build()
	return h
}

func (h *harness) build() {
	limits := config.DefaultEngineLimits()
	logger := zap.NewNop()
	normalizer := aggregates.NewNormalizer(limits).WithClock(func() time.Time {
		return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	})

	gatherer := NewSourceGatherer(h.memory, h.docs, h.index, h.roster, limits, 200*time.Millisecond, logger, h.metrics)
	telemetry := NewTelemetryService(h.docs, h.history, limits, 200*time.Millisecond, logger, h.metrics)
	h.trigger = NewReindexTrigger(h.reindexer, time.Second, logger, h.metrics)

	h.service = NewMemoryGraphService(
		h.store,
		h.memory,
		gatherer,
		telemetry,
		synthesis.NewEngine(limits, normalizer),
		normalizer,
		h.trigger,
		h.publisher,
		h.metrics,
		observability.NewTracer("memgraph-test", false),
		limits,
		logger,
	)
}
