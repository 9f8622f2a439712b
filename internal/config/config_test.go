package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K_VECTOR", "")
	t.Setenv("RETRIEVAL_TOP_K_FTS", "")
	t.Setenv("RETRIEVAL_TOP_K_FINAL", "")
	t.Setenv("RETRIEVAL_RRF_K", "")
	t.Setenv("EMBED_BATCH_SIZE", "")

	cfg := Load()
	if cfg.RetrievalTopKVector != 20 {
		t.Fatalf("expected default vector top k 20, got %d", cfg.RetrievalTopKVector)
	}
	if cfg.RetrievalTopKFTS != 20 {
		t.Fatalf("expected default fts top k 20, got %d", cfg.RetrievalTopKFTS)
	}
	if cfg.RetrievalTopKFinal != 12 {
		t.Fatalf("expected default final top k 12, got %d", cfg.RetrievalTopKFinal)
	}
	if cfg.RetrievalRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.RetrievalRRFK)
	}
	if cfg.EmbedBatchSize != 10 {
		t.Fatalf("expected default embed batch size 10, got %d", cfg.EmbedBatchSize)
	}
}

func TestLoadParsesRetrievalOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K_VECTOR", "30")
	t.Setenv("RETRIEVAL_TOP_K_FINAL", "8")
	t.Setenv("RETRIEVAL_RRF_K", "75")
	t.Setenv("EMBEDDING_DIM", "1024")

	cfg := Load()
	if cfg.RetrievalTopKVector != 30 {
		t.Fatalf("expected vector top k 30, got %d", cfg.RetrievalTopKVector)
	}
	if cfg.RetrievalTopKFinal != 8 {
		t.Fatalf("expected final top k 8, got %d", cfg.RetrievalTopKFinal)
	}
	if cfg.RetrievalRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.RetrievalRRFK)
	}
	if cfg.EmbeddingDim != 1024 {
		t.Fatalf("expected embedding dim 1024, got %d", cfg.EmbeddingDim)
	}
}

func TestLoadParsesTrafficControl(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_RATE_LIMIT_BURST", "5")
	t.Setenv("API_MAX_IN_FLIGHT", "16")

	cfg := Load()
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIRateLimitBurst != 5 {
		t.Fatalf("expected burst 5, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.APIMaxInFlight != 16 {
		t.Fatalf("expected max in flight 16, got %d", cfg.APIMaxInFlight)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("RETRIEVAL_RRF_K", "not-a-number")
	t.Setenv("API_RATE_LIMIT_RPS", "nope")

	cfg := Load()
	if cfg.RetrievalRRFK != 60 {
		t.Fatalf("expected fallback rrf k 60, got %d", cfg.RetrievalRRFK)
	}
	if cfg.APIRateLimitRPS != 10 {
		t.Fatalf("expected fallback rate limit 10, got %v", cfg.APIRateLimitRPS)
	}
}
