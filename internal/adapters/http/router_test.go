package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

type agentFake struct {
	lastQuery    string
	lastThreadID string
	result       *domain.RunResult
	err          error
}

func (a *agentFake) RunQuery(_ context.Context, query, threadID string) (*domain.RunResult, error) {
	a.lastQuery = query
	a.lastThreadID = threadID
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type regDocReaderFake struct {
	docs        []domain.RegDoc
	doc         *domain.RegDoc
	count       int64
	err         error
	embeddedID  int64
	lastCode    string
	lastQuery   string
	lastOffset  int
	lastLimit   int
	lastLang    string
	lastQueryID int64
}

func (r *regDocReaderFake) List(_ context.Context, offset, limit int) ([]domain.RegDoc, error) {
	r.lastOffset = offset
	r.lastLimit = limit
	return r.docs, r.err
}

func (r *regDocReaderFake) Count(_ context.Context) (int64, error) {
	return r.count, r.err
}

func (r *regDocReaderFake) GetByID(_ context.Context, id int64) (*domain.RegDoc, error) {
	r.lastQueryID = id
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

func (r *regDocReaderFake) GetByCode(_ context.Context, code, language string) (*domain.RegDoc, error) {
	r.lastCode = code
	r.lastLang = language
	if r.err != nil {
		return nil, r.err
	}
	return r.doc, nil
}

func (r *regDocReaderFake) Search(_ context.Context, query, language string, limit int) ([]domain.RegDoc, error) {
	r.lastQuery = query
	r.lastLang = language
	r.lastLimit = limit
	return r.docs, r.err
}

func (r *regDocReaderFake) RequestEmbedding(_ context.Context, id int64) error {
	r.embeddedID = id
	return r.err
}

func newTestRouter(agent *agentFake, regDocs *regDocReaderFake) http.Handler {
	return NewRouter(agent, regDocs, Config{
		Service: "api-test",
		Health: HealthInfo{
			LLMModel:             "google/gemini-2.0-flash-exp:free",
			EmbeddingModel:       "qwen/qwen3-embedding-8b",
			OpenRouterConfigured: true,
		},
	}).Handler()
}

func TestChatRunsAgentAndReturnsResult(t *testing.T) {
	agent := &agentFake{result: &domain.RunResult{
		Answer:                "Section 5.1 requires advisor approval.",
		Citations:             []domain.Citation{{RegCode: "5.1", ChunkID: 12, Excerpt: "advisor approval"}},
		Confidence:            0.8,
		HasSufficientEvidence: true,
		QueryHistory:          []string{"what does section 5.1 say"},
		SearchIterations:      1,
	}}
	handler := newTestRouter(agent, &regDocReaderFake{})

	body := `{"query": "what does section 5.1 say", "thread_id": "t-1"}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if agent.lastQuery != "what does section 5.1 say" || agent.lastThreadID != "t-1" {
		t.Fatalf("agent received query %q thread %q", agent.lastQuery, agent.lastThreadID)
	}

	var result domain.RunResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Answer != agent.result.Answer || len(result.Citations) != 1 {
		t.Fatalf("unexpected response payload: %+v", result)
	}
	if recorder.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id header")
	}
}

func TestChatAcceptsEmptyQuery(t *testing.T) {
	agent := &agentFake{result: &domain.RunResult{Answer: "sample answer", Citations: []domain.Citation{}}}
	handler := newTestRouter(agent, &regDocReaderFake{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"query": ""}`)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty query, got %d", recorder.Code)
	}
}

func TestChatRejectsOversizedQuery(t *testing.T) {
	agent := &agentFake{}
	handler := newTestRouter(agent, &regDocReaderFake{})

	body := `{"query": "` + strings.Repeat("a", maxQueryLength+1) + `"}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
	if agent.lastQuery != "" {
		t.Fatal("agent must not run for rejected input")
	}
}

func TestChatHealthReportsConfiguredModels(t *testing.T) {
	handler := newTestRouter(&agentFake{}, &regDocReaderFake{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/chat/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["agent"] != "ready" {
		t.Fatalf("expected ready agent, got %v", status["agent"])
	}
	if status["llm_model"] != "google/gemini-2.0-flash-exp:free" {
		t.Fatalf("unexpected llm model: %v", status["llm_model"])
	}
	if _, ok := status["warning"]; ok {
		t.Fatal("no warning expected when the API key is configured")
	}
}

func TestChatHealthWarnsWhenKeyMissing(t *testing.T) {
	handler := NewRouter(&agentFake{}, &regDocReaderFake{}, Config{
		Service: "api-test",
		Health:  HealthInfo{LLMModel: "m", EmbeddingModel: "e"},
	}).Handler()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/chat/health", nil))

	var status map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["warning"] == nil {
		t.Fatal("expected missing-key warning")
	}
}

func TestListRegDocsPassesPagination(t *testing.T) {
	regDocs := &regDocReaderFake{docs: []domain.RegDoc{{ID: 1, Code: "5.1"}}}
	handler := newTestRouter(&agentFake{}, regDocs)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs?skip=20&limit=10", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if regDocs.lastOffset != 20 || regDocs.lastLimit != 10 {
		t.Fatalf("pagination not forwarded: offset=%d limit=%d", regDocs.lastOffset, regDocs.lastLimit)
	}
}

func TestCountRegDocs(t *testing.T) {
	handler := newTestRouter(&agentFake{}, &regDocReaderFake{count: 341})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs/count", nil))

	var payload map[string]int64
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["count"] != 341 {
		t.Fatalf("expected 341, got %d", payload["count"])
	}
}

func TestSearchRegDocsForwardsParams(t *testing.T) {
	regDocs := &regDocReaderFake{}
	handler := newTestRouter(&agentFake{}, regDocs)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs/search?q=exam&language=tr&limit=5", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if regDocs.lastQuery != "exam" || regDocs.lastLang != "tr" || regDocs.lastLimit != 5 {
		t.Fatalf("search params not forwarded: %+v", regDocs)
	}
}

func TestGetRegDocByCode(t *testing.T) {
	regDocs := &regDocReaderFake{doc: &domain.RegDoc{ID: 7, Code: "5.1.2"}}
	handler := newTestRouter(&agentFake{}, regDocs)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs/code/5.1.2?language=en", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if regDocs.lastCode != "5.1.2" || regDocs.lastLang != "en" {
		t.Fatalf("code lookup not forwarded: code=%q lang=%q", regDocs.lastCode, regDocs.lastLang)
	}
}

func TestGetRegDocByIDMapsNotFound(t *testing.T) {
	regDocs := &regDocReaderFake{err: fmt.Errorf("reg doc 99: %w", domain.ErrRegDocNotFound)}
	handler := newTestRouter(&agentFake{}, regDocs)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs/99", nil))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	if regDocs.lastQueryID != 99 {
		t.Fatalf("expected lookup of id 99, got %d", regDocs.lastQueryID)
	}
}

func TestGetRegDocByIDRejectsNonNumeric(t *testing.T) {
	handler := newTestRouter(&agentFake{}, &regDocReaderFake{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/reg-docs/abc", nil))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestRequestEmbeddingReturnsAccepted(t *testing.T) {
	regDocs := &regDocReaderFake{}
	handler := newTestRouter(&agentFake{}, regDocs)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/reg-docs/42/embed", nil))

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if regDocs.embeddedID != 42 {
		t.Fatalf("expected embedding request for 42, got %d", regDocs.embeddedID)
	}
}

func TestChatMapsTemporaryErrorTo503(t *testing.T) {
	agent := &agentFake{err: fmt.Errorf("openrouter completion: %w", domain.ErrTemporary)}
	handler := newTestRouter(agent, &regDocReaderFake{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"query": "q"}`)))

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", recorder.Code)
	}
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(&agentFake{}, &regDocReaderFake{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
}
