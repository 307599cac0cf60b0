package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportlens/supportlens/internal/config"
	"github.com/supportlens/supportlens/internal/grounding"
	"github.com/supportlens/supportlens/internal/interpreter"
	"github.com/supportlens/supportlens/internal/llm"
	"github.com/supportlens/supportlens/internal/query"
	"github.com/supportlens/supportlens/internal/snapshot"
	"github.com/supportlens/supportlens/internal/store"
	"github.com/supportlens/supportlens/pkg/models"
)

// stubExtractor fails unless a result is set, mirroring a dead AI path.
type stubExtractor struct {
	result *models.InterpretationResult
}

func (s *stubExtractor) ExtractIntent(_ context.Context, _ string) (*models.InterpretationResult, error) {
	if s.result == nil {
		return nil, &llm.ModelError{Op: "extract", Err: context.DeadlineExceeded}
	}
	return s.result.Clone(), nil
}

// newTestService assembles a service on a temp-dir file tier with no vendor
// fetcher and a stubbed AI path.
func newTestService(t *testing.T, llmBaseURL string) *Service {
	t.Helper()

	fileTier, err := store.NewFileTier(t.TempDir())
	require.NoError(t, err)
	tiered := store.New(fileTier)

	snapshots := snapshot.NewCache(tiered, nil)
	builder := grounding.NewBuilder(snapshots)

	classifier, err := query.NewClassifier()
	require.NoError(t, err)
	interp, err := interpreter.New(classifier, &stubExtractor{}, 16)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.LLMBaseURL = llmBaseURL
	cfg.LLMAPIKey = "test-key"

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := &Service{
		version:     "test",
		config:      cfg,
		store:       tiered,
		snapshots:   snapshots,
		builder:     builder,
		interpreter: interp,
		llmClient:   llm.NewClient(cfg),
		router:      chi.NewRouter(),
		startTime:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
	svc.setupMiddleware()
	svc.setupRoutes()
	return svc
}

// seedSnapshot saves a snapshot through the store and hydrates the cache.
func seedSnapshot(t *testing.T, svc *Service) {
	t.Helper()

	snap := &models.Snapshot{
		LastUpdated: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Items: []models.Item{
			{ID: 1, Kind: models.KindTicket, Title: "Login broken", State: "open", Priority: models.PriorityHigh},
			{ID: 2, Kind: models.KindTicket, Title: "Slow search", State: "solved", Priority: models.PriorityLow},
		},
	}
	snap.Recompute(snap.LastUpdated)
	require.True(t, svc.store.Save(context.Background(), snapshot.StorageKey, snap))
	require.True(t, svc.snapshots.Load(context.Background()))
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestInterpretPatternMatch(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	rec := postJSON(t, svc.Router(), "/api/interpret", `{"query": "How many tickets are open?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.InterpretationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.IntentCountTickets, result.Intent)
	assert.Equal(t, models.MethodPattern, result.Method)
	assert.Equal(t, "open", result.Filters[models.FilterStatus])
}

func TestInterpretRejectsMalformedBody(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	rec := postJSON(t, svc.Router(), "/api/interpret", `{"query": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterpretRejectsSuspiciousQuery(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	rec := postJSON(t, svc.Router(), "/api/interpret", `{"query": "open tickets; drop table"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskWithoutSnapshot(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	rec := postJSON(t, svc.Router(), "/api/ask", `{"query": "How many tickets are open?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAskGroundedAnswer(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		msgs := req["messages"].([]interface{})
		user := msgs[1].(map[string]interface{})["content"].(string)
		// The grounding context rides along with the question.
		assert.Contains(t, user, "Login broken")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"content": "1 ticket is open."}}]}`))
	}))
	defer model.Close()

	svc := newTestService(t, model.URL)
	seedSnapshot(t, svc)

	rec := postJSON(t, svc.Router(), "/api/ask", `{"query": "How many tickets are open?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1 ticket is open.", resp.Answer)
	require.NotNil(t, resp.Interpretation)
	assert.Equal(t, models.IntentCountTickets, resp.Interpretation.Intent)
}

func TestAskModelUnavailable(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	seedSnapshot(t, svc)

	rec := postJSON(t, svc.Router(), "/api/ask", `{"query": "How many tickets are open?"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestContextStatusLifecycle(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	seedSnapshot(t, svc)

	rec := getPath(t, svc.Router(), "/api/context/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Context models.ContextStatus `json:"context"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Context.Cached)

	// Building the context flips the status.
	_, err := svc.builder.Context(context.Background())
	require.NoError(t, err)

	rec = getPath(t, svc.Router(), "/api/context/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Context.Cached)
	assert.Equal(t, 2, resp.Context.ItemsInContext)
}

func TestContextRefreshWithoutFetcher(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")
	seedSnapshot(t, svc)

	_, err := svc.builder.Context(context.Background())
	require.NoError(t, err)

	rec := postJSON(t, svc.Router(), "/api/context/refresh", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["invalidated"])
	assert.Equal(t, false, resp["refreshed"])

	// The cache really was busted.
	assert.False(t, svc.builder.Status().Cached)
}

func TestStats(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	postJSON(t, svc.Router(), "/api/interpret", `{"query": "How many tickets are open?"}`)
	postJSON(t, svc.Router(), "/api/interpret", `{"query": "How many tickets are open?"}`)

	rec := getPath(t, svc.Router(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Interpreter   interpreter.Stats `json:"interpreter"`
		CachedQueries int               `json:"cached_queries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Interpreter.Requests)
	assert.Equal(t, int64(1), resp.Interpreter.CacheHits)
	assert.Equal(t, 1, resp.CachedQueries)
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	rec := getPath(t, svc.Router(), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "test", resp["version"])
	assert.Equal(t, false, resp["snapshot_loaded"])
}
