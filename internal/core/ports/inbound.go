package ports

import (
	"context"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

// QueryAgent is the inbound contract for one question-answering run.
type QueryAgent interface {
	RunQuery(ctx context.Context, query, threadID string) (*domain.RunResult, error)
}

// RegDocReader is the inbound read surface for regulation documents.
type RegDocReader interface {
	List(ctx context.Context, offset, limit int) ([]domain.RegDoc, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.RegDoc, error)
	GetByCode(ctx context.Context, code, language string) (*domain.RegDoc, error)
	Search(ctx context.Context, query, language string, limit int) ([]domain.RegDoc, error)
	RequestEmbedding(ctx context.Context, id int64) error
}

// EmbeddingProcessor is the inbound contract for asynchronous embedding
// backfill of a document's chunks.
type EmbeddingProcessor interface {
	ProcessDocument(ctx context.Context, regDocID int64) error
}
