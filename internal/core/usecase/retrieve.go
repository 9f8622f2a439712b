package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
)

const (
	defaultTopKVector = 20
	defaultTopKFTS    = 20
	defaultTopKFinal  = 12
	defaultRRFK       = 60
)

// RetrievalConfig tunes the search fan-out. Zero values fall back to the
// defaults above.
type RetrievalConfig struct {
	TopKVector int
	TopKFTS    int
	TopKFinal  int
	RRFK       int
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	if c.TopKVector <= 0 {
		c.TopKVector = defaultTopKVector
	}
	if c.TopKFTS <= 0 {
		c.TopKFTS = defaultTopKFTS
	}
	if c.TopKFinal <= 0 {
		c.TopKFinal = defaultTopKFinal
	}
	if c.RRFK <= 0 {
		c.RRFK = defaultRRFK
	}
	return c
}

// Retriever executes the search strategy picked by the router against the
// document store. It never fails the run: embedding or search errors narrow
// the strategy through the fallback chain hybrid → text-only → sample-all,
// so a non-empty corpus always yields a non-empty result.
type Retriever struct {
	store    ports.DocumentStore
	embedder ports.Embedder
	cfg      RetrievalConfig
	logger   *slog.Logger
}

func NewRetriever(store ports.DocumentStore, embedder ports.Embedder, cfg RetrievalConfig, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		cfg:      cfg.normalize(),
		logger:   logger,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, decision domain.RoutingDecision) []domain.RetrievedChunk {
	if decision.QueryType == domain.QueryTypeCode && decision.ExtractedCode != "" {
		if chunks := r.searchByCode(ctx, decision.ExtractedCode); len(chunks) > 0 {
			return chunks
		}
		return r.sampleAll(ctx)
	}

	// An empty query carries no retrievable signal and skips straight to the
	// sample-all fallback.
	if strings.TrimSpace(query) != "" {
		if chunks := r.searchHybrid(ctx, query); len(chunks) > 0 {
			return chunks
		}
		r.logger.Warn("hybrid search yielded nothing, falling back to text search", "query", query)
		if chunks := r.searchText(ctx, query); len(chunks) > 0 {
			return chunks
		}
	}

	return r.sampleAll(ctx)
}

// searchByCode is a precise structural match: every hit gets maximal
// confidence on all three score channels.
func (r *Retriever) searchByCode(ctx context.Context, code string) []domain.RetrievedChunk {
	rows, err := r.store.LookupByCode(ctx, code, r.cfg.TopKFinal)
	if err != nil {
		r.logger.Warn("code lookup failed", "code", code, "error", err)
		return nil
	}

	chunks := make([]domain.RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, domain.RetrievedChunk{
			ChunkRow:    row,
			ScoreVec:    1.0,
			ScoreFTS:    1.0,
			ScoreFusion: 1.0,
		})
	}
	return chunks
}

// searchHybrid embeds the query, runs vector and text search concurrently,
// and fuses the two ranked lists with RRF. Rank is taken from each list's
// own order, so fusion stays deterministic regardless of timing.
func (r *Retriever) searchHybrid(ctx context.Context, query string) []domain.RetrievedChunk {
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", "error", err)
		return nil
	}

	var (
		wg      sync.WaitGroup
		vector  []domain.RetrievedChunk
		lexical []domain.RetrievedChunk
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		vector = r.searchVector(ctx, embedding)
	}()
	go func() {
		defer wg.Done()
		lexical = r.searchText(ctx, query)
	}()
	wg.Wait()

	return fuseReciprocalRank(vector, lexical, r.cfg.RRFK, r.cfg.TopKFinal)
}

func (r *Retriever) searchVector(ctx context.Context, embedding []float32) []domain.RetrievedChunk {
	hits, err := r.store.VectorSearch(ctx, embedding, r.cfg.TopKVector)
	if err != nil {
		r.logger.Warn("vector search failed", "error", err)
		return nil
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for rank, hit := range hits {
		chunks = append(chunks, domain.RetrievedChunk{
			ChunkRow:    hit.ChunkRow,
			ScoreVec:    1.0 / (1.0 + hit.Distance),
			ScoreFusion: 1.0 / float64(r.cfg.RRFK+rank+1),
		})
	}
	return chunks
}

func (r *Retriever) searchText(ctx context.Context, query string) []domain.RetrievedChunk {
	hits, err := r.store.TextSearch(ctx, query, r.cfg.TopKFTS)
	if err != nil {
		r.logger.Warn("text search failed", "error", err)
		return nil
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		score := hit.Rank
		if score == 0 {
			score = 0.5
		}
		chunks = append(chunks, domain.RetrievedChunk{
			ChunkRow:    hit.ChunkRow,
			ScoreFTS:    score,
			ScoreFusion: score,
		})
	}
	return chunks
}

func (r *Retriever) sampleAll(ctx context.Context) []domain.RetrievedChunk {
	rows, err := r.store.SampleAll(ctx, r.cfg.TopKFinal)
	if err != nil {
		r.logger.Error("sample-all fallback failed", "error", err)
		return nil
	}

	chunks := make([]domain.RetrievedChunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, domain.RetrievedChunk{
			ChunkRow:    row,
			ScoreFusion: 0.5,
		})
	}
	return chunks
}
