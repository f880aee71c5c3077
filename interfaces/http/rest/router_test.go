package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memgraph/application/commands/bus"
	cmdhandlers "memgraph/application/commands/handlers"
	querybus "memgraph/application/queries/bus"
	queryhandlers "memgraph/application/queries/handlers"
	"memgraph/application/services"
	"memgraph/domain/core/aggregates"
	"memgraph/pkg/auth"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/observability"
)

type stubGraphs struct {
	resets    []bool
	saved     []json.RawMessage
	reindexes []bool
	loadErr   error
}

func (s *stubGraphs) Load(ctx context.Context, reset bool) (*services.MemoryGraphView, error) {
	s.resets = append(s.resets, reset)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return &services.MemoryGraphView{
		Graph:     &aggregates.KnowledgeGraph{Version: 1},
		Workspace: "/ws",
	}, nil
}

func (s *stubGraphs) Save(ctx context.Context, raw json.RawMessage, reindex bool) (*services.SaveGraphResult, error) {
	s.saved = append(s.saved, raw)
	s.reindexes = append(s.reindexes, reindex)
	return &services.SaveGraphResult{
		Graph:   &aggregates.KnowledgeGraph{Version: 1},
		Reindex: services.ReindexOutcome{Requested: reindex, Started: reindex},
	}, nil
}

func (s *stubGraphs) Publish(ctx context.Context, reindex bool) (*services.PublishResult, error) {
	s.reindexes = append(s.reindexes, reindex)
	return &services.PublishResult{Path: "/ws/MEMORY.md"}, nil
}

func newTestRouter(t *testing.T, graphs *stubGraphs, opts Options) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	commandBus := bus.NewCommandBus()
	require.NoError(t, cmdhandlers.Register(commandBus, graphs, nil, nil, logger))
	queryBus := querybus.NewQueryBus()
	require.NoError(t, queryhandlers.Register(queryBus, graphs))
	return NewRouter(commandBus, queryBus, apperrors.NewErrorHandler(logger, false), opts, logger).Setup()
}

func serve(h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetMemoryGraph(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantReset bool
	}{
		{name: "plain read", target: "/api/v2/memory-graph", wantReset: false},
		{name: "reset flag", target: "/api/v2/memory-graph?reset=1", wantReset: true},
		{name: "reset true", target: "/api/v2/memory-graph?reset=true", wantReset: true},
		{name: "reset garbage", target: "/api/v2/memory-graph?reset=maybe", wantReset: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graphs := &stubGraphs{}
			rec := serve(newTestRouter(t, graphs, Options{}), http.MethodGet, tt.target, "", nil)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, []bool{tt.wantReset}, graphs.resets)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "graph")
			assert.Equal(t, "/ws", body["workspace"])
			assert.NotContains(t, body, "bootstrap")
		})
	}
}

func TestGetMemoryGraph_StorageFailure(t *testing.T) {
	graphs := &stubGraphs{loadErr: apperrors.NewStorageError("read graph", errors.New("io")).WithCode(apperrors.CodeStoreRead)}
	rec := serve(newTestRouter(t, graphs, Options{}), http.MethodGet, "/api/v2/memory-graph", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.True(t, body.Error)
	assert.Equal(t, "STORAGE", body.Type)
	assert.Equal(t, apperrors.CodeStoreRead, body.Code)
	assert.NotEmpty(t, body.RequestID)
}

func TestPostMemoryGraph(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantCode    string
		wantReindex []bool
	}{
		{
			name:       "malformed json",
			body:       `{"action":"save",`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidJSON,
		},
		{
			name:       "unknown action",
			body:       `{"action":"delete"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeUnknownAction,
		},
		{
			name:       "missing action",
			body:       `{"graph":{}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeUnknownAction,
		},
		{
			name:        "save defaults reindex",
			body:        `{"action":"save","graph":{"nodes":[]}}`,
			wantStatus:  http.StatusOK,
			wantReindex: []bool{true},
		},
		{
			name:        "save without reindex",
			body:        `{"action":"save","graph":{"nodes":[]},"reindex":false}`,
			wantStatus:  http.StatusOK,
			wantReindex: []bool{false},
		},
		{
			name:        "publish",
			body:        `{"action":"publish-memory-md"}`,
			wantStatus:  http.StatusOK,
			wantReindex: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graphs := &stubGraphs{}
			rec := serve(newTestRouter(t, graphs, Options{}), http.MethodPost, "/api/v2/memory-graph", tt.body, nil)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
				assert.Empty(t, graphs.reindexes)
				return
			}
			assert.Equal(t, tt.wantReindex, graphs.reindexes)
		})
	}
}

func TestPostMemoryGraph_SaveForwardsRawGraph(t *testing.T) {
	graphs := &stubGraphs{}
	rec := serve(newTestRouter(t, graphs, Options{}), http.MethodPost, "/api/v2/memory-graph",
		`{"action":"save","graph":{"nodes":[{"id":"a"}]}}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, graphs.saved, 1)
	assert.JSONEq(t, `{"nodes":[{"id":"a"}]}`, string(graphs.saved[0]))

	var body services.SaveGraphResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Reindex.Requested)
}

func TestLegacyPrefixRedirects(t *testing.T) {
	rec := serve(newTestRouter(t, &stubGraphs{}, Options{}), http.MethodGet, "/api/v1/memory-graph?reset=1", "", nil)

	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/api/v2/memory-graph?reset=1", rec.Header().Get("Location"))
	assert.Equal(t, "true", rec.Header().Get("X-API-Deprecated"))
}

func TestUnknownRouteReturnsJSONNotFound(t *testing.T) {
	h := newTestRouter(t, &stubGraphs{}, Options{})

	for _, target := range []string{"/nope", "/api/v2/nope"} {
		rec := serve(h, http.MethodGet, target, "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code, target)
		body := decodeError(t, rec)
		assert.Equal(t, string(apperrors.ErrorTypeNotFound), body.Type)
		assert.Contains(t, body.Message, target)
	}
}

func TestAuthentication(t *testing.T) {
	cfg := auth.JWTConfig{SecretKey: "test-secret", Issuer: "memgraph", Audience: []string{"memgraph-api"}}
	validator, err := auth.NewJWTValidator(cfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	token, err := generator.GenerateToken("user-1", "user@example.com", nil)
	require.NoError(t, err)

	router := newTestRouter(t, &stubGraphs{}, Options{Validator: validator})

	rec := serve(router, http.MethodGet, "/api/v2/memory-graph", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Type)

	rec = serve(router, http.MethodGet, "/api/v2/memory-graph", "", http.Header{"Authorization": {"Bearer not-a-token"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodGet, "/api/v2/memory-graph", "", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := auth.NewTokenBucketLimiter(0, 1, 0)
	defer limiter.Close()
	router := newTestRouter(t, &stubGraphs{}, Options{Limiter: auth.NewIPRateLimiter(limiter), RateLimit: 1})

	first := serve(router, http.MethodGet, "/api/v2/memory-graph", "", nil)
	second := serve(router, http.MethodGet, "/api/v2/memory-graph", "", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMIT", decodeError(t, second).Type)
}

func TestReadiness(t *testing.T) {
	ready := newTestRouter(t, &stubGraphs{}, Options{Ready: func(ctx context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, serve(ready, http.MethodGet, "/ready", "", nil).Code)

	broken := newTestRouter(t, &stubGraphs{}, Options{Ready: func(ctx context.Context) error { return errors.New("no workspace") }})
	rec := serve(broken, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", decodeError(t, rec).Type)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := observability.NewCollector("memgraph")
	router := newTestRouter(t, &stubGraphs{}, Options{Metrics: collector})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "", nil).Code)
	rec := serve(router, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `memgraph_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
