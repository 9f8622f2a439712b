package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type retrieveStoreFake struct {
	codeRows []domain.ChunkRow
	codeErr  error
	lastCode string

	vectorHits []domain.VectorHit
	vectorErr  error

	textHits []domain.TextHit
	textErr  error

	sampleRows []domain.ChunkRow
	sampleErr  error

	codeCalls   int
	vectorCalls int
	textCalls   int
	sampleCalls int
}

func (f *retrieveStoreFake) LookupByCode(_ context.Context, code string, _ int) ([]domain.ChunkRow, error) {
	f.codeCalls++
	f.lastCode = code
	return f.codeRows, f.codeErr
}

func (f *retrieveStoreFake) VectorSearch(context.Context, []float32, int) ([]domain.VectorHit, error) {
	f.vectorCalls++
	return f.vectorHits, f.vectorErr
}

func (f *retrieveStoreFake) TextSearch(context.Context, string, int) ([]domain.TextHit, error) {
	f.textCalls++
	return f.textHits, f.textErr
}

func (f *retrieveStoreFake) SampleAll(context.Context, int) ([]domain.ChunkRow, error) {
	f.sampleCalls++
	return f.sampleRows, f.sampleErr
}

type retrieveEmbedderFake struct {
	calls int
	err   error
}

func (f *retrieveEmbedderFake) Embed(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

func (f *retrieveEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func row(id int64, code string) domain.ChunkRow {
	return domain.ChunkRow{ChunkID: id, RegDocID: id, RegCode: code, Content: "content"}
}

func TestRetrieveCodeLookup(t *testing.T) {
	store := &retrieveStoreFake{codeRows: []domain.ChunkRow{row(1, "5.1.2"), row(2, "5.1.2.1")}}
	r := NewRetriever(store, &retrieveEmbedderFake{}, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "section 5.1.2", domain.RoutingDecision{
		QueryType:     domain.QueryTypeCode,
		ExtractedCode: "5.1.2",
	})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if store.lastCode != "5.1.2" {
		t.Fatalf("expected lookup by 5.1.2, got %q", store.lastCode)
	}
	for _, chunk := range chunks {
		if chunk.ScoreVec != 1.0 || chunk.ScoreFTS != 1.0 || chunk.ScoreFusion != 1.0 {
			t.Fatalf("expected maximal scores on code lookup, got %+v", chunk)
		}
	}
	if store.vectorCalls != 0 || store.textCalls != 0 {
		t.Fatalf("expected no hybrid search on code path")
	}
}

func TestRetrieveCodeLookupFallsBackToSample(t *testing.T) {
	store := &retrieveStoreFake{sampleRows: []domain.ChunkRow{row(9, "1.1")}}
	r := NewRetriever(store, &retrieveEmbedderFake{}, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "section 99.99", domain.RoutingDecision{
		QueryType:     domain.QueryTypeCode,
		ExtractedCode: "99.99",
	})
	if len(chunks) != 1 {
		t.Fatalf("expected sample fallback chunk, got %d", len(chunks))
	}
	if chunks[0].ScoreFusion != 0.5 {
		t.Fatalf("expected sample score 0.5, got %v", chunks[0].ScoreFusion)
	}
	if store.sampleCalls != 1 {
		t.Fatalf("expected one sample call, got %d", store.sampleCalls)
	}
}

func TestRetrieveHybridFusesVectorAndText(t *testing.T) {
	store := &retrieveStoreFake{
		vectorHits: []domain.VectorHit{
			{ChunkRow: row(1, "5.1"), Distance: 0.25},
			{ChunkRow: row(2, "5.2"), Distance: 0.5},
		},
		textHits: []domain.TextHit{
			{ChunkRow: row(2, "5.2"), Rank: 0.9},
		},
	}
	r := NewRetriever(store, &retrieveEmbedderFake{}, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "graduation requirements", domain.RoutingDecision{
		QueryType: domain.QueryTypeVector,
	})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 fused chunks, got %d", len(chunks))
	}
	if chunks[0].ChunkID != 2 {
		t.Fatalf("expected dual-strategy chunk first, got %d", chunks[0].ChunkID)
	}
	if chunks[0].ScoreVec != 1.0/1.5 {
		t.Fatalf("expected vector score 1/(1+0.5), got %v", chunks[0].ScoreVec)
	}
	if chunks[0].ScoreFTS != 0.9 {
		t.Fatalf("expected text score carried through fusion, got %v", chunks[0].ScoreFTS)
	}
	if store.sampleCalls != 0 {
		t.Fatalf("expected no sample fallback on hybrid success")
	}
}

func TestRetrieveEmbedFailureFallsBackToText(t *testing.T) {
	store := &retrieveStoreFake{
		textHits: []domain.TextHit{{ChunkRow: row(3, "6.1"), Rank: 0}},
	}
	embedder := &retrieveEmbedderFake{err: errors.New("embedding service down")}
	r := NewRetriever(store, embedder, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "late registration", domain.RoutingDecision{
		QueryType: domain.QueryTypeVector,
	})
	if len(chunks) != 1 {
		t.Fatalf("expected text fallback chunk, got %d", len(chunks))
	}
	if chunks[0].ScoreFTS != 0.5 {
		t.Fatalf("expected default text score 0.5 for zero rank, got %v", chunks[0].ScoreFTS)
	}
	if store.vectorCalls != 0 {
		t.Fatalf("expected no vector search without an embedding")
	}
}

func TestRetrieveTextFailureFallsBackToSample(t *testing.T) {
	store := &retrieveStoreFake{
		textErr:    errors.New("fts broken"),
		sampleRows: []domain.ChunkRow{row(4, "1.1")},
	}
	embedder := &retrieveEmbedderFake{err: errors.New("embedding service down")}
	r := NewRetriever(store, embedder, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "anything", domain.RoutingDecision{QueryType: domain.QueryTypeVector})
	if len(chunks) != 1 {
		t.Fatalf("expected sample fallback chunk, got %d", len(chunks))
	}
	if store.sampleCalls != 1 {
		t.Fatalf("expected one sample call, got %d", store.sampleCalls)
	}
}

func TestRetrieveEmptyQuerySkipsSearch(t *testing.T) {
	store := &retrieveStoreFake{sampleRows: []domain.ChunkRow{row(5, "2.1")}}
	embedder := &retrieveEmbedderFake{}
	r := NewRetriever(store, embedder, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "   ", domain.RoutingDecision{QueryType: domain.QueryTypeVector})
	if len(chunks) != 1 {
		t.Fatalf("expected sample chunk for empty query, got %d", len(chunks))
	}
	if embedder.calls != 0 || store.textCalls != 0 {
		t.Fatalf("expected no search calls for empty query")
	}
}

func TestRetrieveNeverErrors(t *testing.T) {
	store := &retrieveStoreFake{
		textErr:   errors.New("fts broken"),
		sampleErr: errors.New("db down"),
	}
	embedder := &retrieveEmbedderFake{err: errors.New("embedding down")}
	r := NewRetriever(store, embedder, RetrievalConfig{}, testLogger())

	chunks := r.Retrieve(context.Background(), "anything", domain.RoutingDecision{QueryType: domain.QueryTypeVector})
	if len(chunks) != 0 {
		t.Fatalf("expected empty result when everything fails, got %d", len(chunks))
	}
}
