package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
)

const (
	defaultEmbedBatchSize = 10
	defaultEmbedMaxChunks = 2000
)

// EmbedBackfillUseCase generates embeddings for chunks that do not have one
// yet. A failed batch is logged and skipped rather than aborting the
// document: text search keeps working for unembedded chunks.
type EmbedBackfillUseCase struct {
	store     ports.ChunkEmbeddingStore
	embedder  ports.Embedder
	batchSize int
	maxChunks int
	logger    *slog.Logger
}

func NewEmbedBackfillUseCase(store ports.ChunkEmbeddingStore, embedder ports.Embedder, batchSize int, logger *slog.Logger) *EmbedBackfillUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbedBackfillUseCase{
		store:     store,
		embedder:  embedder,
		batchSize: batchSize,
		maxChunks: defaultEmbedMaxChunks,
		logger:    logger,
	}
}

func (uc *EmbedBackfillUseCase) ProcessDocument(ctx context.Context, regDocID int64) error {
	chunks, err := uc.store.ListUnembedded(ctx, regDocID, uc.maxChunks)
	if err != nil {
		return fmt.Errorf("list unembedded chunks: %w", err)
	}
	if len(chunks) == 0 {
		uc.logger.Info("no chunks pending embedding", "reg_doc_id", regDocID)
		return nil
	}

	embedded := 0
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Content)
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			uc.logger.Warn("embedding batch failed, skipping", "reg_doc_id", regDocID, "batch_start", start, "error", err)
			continue
		}
		if len(vectors) != len(batch) {
			uc.logger.Warn("embedding batch size mismatch, skipping", "reg_doc_id", regDocID, "want", len(batch), "got", len(vectors))
			continue
		}

		for i, chunk := range batch {
			if err := uc.store.SaveEmbedding(ctx, chunk.ChunkID, vectors[i]); err != nil {
				uc.logger.Warn("save embedding failed", "chunk_id", chunk.ChunkID, "error", err)
				continue
			}
			embedded++
		}
	}

	uc.logger.Info("embedding backfill complete", "reg_doc_id", regDocID, "embedded", embedded, "pending", len(chunks))
	return nil
}
