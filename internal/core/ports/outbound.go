package ports

import (
	"context"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

// DocumentStore executes the four query shapes the retrieval engine needs
// against the chunked regulation corpus.
type DocumentStore interface {
	// LookupByCode returns chunks whose document code matches exactly or by
	// dotted prefix ("5.1.2" also matches "5.1.2.*"), in natural document
	// order.
	LookupByCode(ctx context.Context, code string, limit int) ([]domain.ChunkRow, error)
	// VectorSearch returns the nearest chunks by embedding distance.
	VectorSearch(ctx context.Context, embedding []float32, limit int) ([]domain.VectorHit, error)
	// TextSearch runs a ranked lexical query against the full-text index.
	TextSearch(ctx context.Context, query string, limit int) ([]domain.TextHit, error)
	// SampleAll returns an unfiltered corpus sample ordered by code then
	// chunk position.
	SampleAll(ctx context.Context, limit int) ([]domain.ChunkRow, error)
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CompletionService is the opaque one-shot text completion endpoint.
type CompletionService interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RegDocRepository is the read model for regulation document metadata.
type RegDocRepository interface {
	List(ctx context.Context, offset, limit int) ([]domain.RegDoc, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.RegDoc, error)
	GetByCode(ctx context.Context, code, language string) (*domain.RegDoc, error)
	SearchByTitle(ctx context.Context, query, language string, limit int) ([]domain.RegDoc, error)
}

// ChunkEmbeddingStore reads and writes chunk embeddings for the backfill
// worker.
type ChunkEmbeddingStore interface {
	ListUnembedded(ctx context.Context, regDocID int64, limit int) ([]domain.ChunkRow, error)
	SaveEmbedding(ctx context.Context, chunkID int64, embedding []float32) error
}

// EmbedQueue carries embed-pending document events between API and worker.
type EmbedQueue interface {
	PublishEmbedPending(ctx context.Context, regDocID int64) error
	SubscribeEmbedPending(ctx context.Context, handler func(context.Context, int64) error) error
}
