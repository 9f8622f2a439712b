package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
	"github.com/Vitaee/EmuMevzuatAgent/internal/observability/metrics"
)

const maxQueryLength = 2000

// HealthInfo is what the agent health endpoint reports about the configured
// model backend.
type HealthInfo struct {
	LLMModel             string
	EmbeddingModel       string
	OpenRouterConfigured bool
}

type Config struct {
	Service        string
	Metrics        *metrics.HTTPServerMetrics
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	Health         HealthInfo
}

type Router struct {
	agent   ports.QueryAgent
	regDocs ports.RegDocReader
	cfg     Config
}

func NewRouter(agent ports.QueryAgent, regDocs ports.RegDocReader, cfg Config) *Router {
	return &Router{
		agent:   agent,
		regDocs: regDocs,
		cfg:     cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/chat/health", rt.chatHealth)
	mux.HandleFunc("/v1/reg-docs", rt.listRegDocs)
	mux.HandleFunc("/v1/reg-docs/", rt.regDocSubtree)
	if rt.cfg.Metrics != nil {
		mux.Handle("/metrics", rt.cfg.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.cfg.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 50*time.Millisecond)
	}
	if rt.cfg.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	}
	if rt.cfg.Metrics != nil {
		handler = rt.cfg.Metrics.Middleware(rt.cfg.Service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query    string `json:"query"`
		ThreadID string `json:"thread_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	// An empty query is allowed and answered from the corpus sample; the
	// only rejected input is an oversized one.
	if utf8.RuneCountInString(req.Query) > maxQueryLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query exceeds 2000 characters"})
		return
	}

	result, err := rt.agent.RunQuery(r.Context(), req.Query, req.ThreadID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) chatHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status := map[string]any{
		"agent":                 "ready",
		"llm_model":             rt.cfg.Health.LLMModel,
		"embedding_model":       rt.cfg.Health.EmbeddingModel,
		"openrouter_configured": rt.cfg.Health.OpenRouterConfigured,
	}
	if !rt.cfg.Health.OpenRouterConfigured {
		status["warning"] = "OpenRouter API key not configured"
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) listRegDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	offset := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)
	docs, err := rt.regDocs.List(r.Context(), offset, limit)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// regDocSubtree dispatches /v1/reg-docs/{count,search,code/{code},{id},{id}/embed}.
func (rt *Router) regDocSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/reg-docs/")

	switch {
	case rest == "count":
		rt.countRegDocs(w, r)
	case rest == "search":
		rt.searchRegDocs(w, r)
	case strings.HasPrefix(rest, "code/"):
		rt.getRegDocByCode(w, r, strings.TrimPrefix(rest, "code/"))
	case strings.HasSuffix(rest, "/embed"):
		rt.requestEmbedding(w, r, strings.TrimSuffix(rest, "/embed"))
	default:
		rt.getRegDocByID(w, r, rest)
	}
}

func (rt *Router) countRegDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	count, err := rt.regDocs.Count(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (rt *Router) searchRegDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	docs, err := rt.regDocs.Search(
		r.Context(),
		r.URL.Query().Get("q"),
		r.URL.Query().Get("language"),
		queryInt(r, "limit", 0),
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) getRegDocByCode(w http.ResponseWriter, r *http.Request, code string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.regDocs.GetByCode(r.Context(), code, r.URL.Query().Get("language"))
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getRegDocByID(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id must be an integer"})
		return
	}

	doc, err := rt.regDocs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) requestEmbedding(w http.ResponseWriter, r *http.Request, raw string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id must be an integer"})
		return
	}

	if err := rt.regDocs.RequestEmbedding(r.Context(), id); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"reg_doc_id": id, "status": "queued"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
