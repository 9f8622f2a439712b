package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultFindLimit = 10
)

// RegDocUseCase is the read surface over the regulation corpus plus the
// embedding-backfill trigger, which publishes an embed-pending event for the
// worker instead of embedding inline.
type RegDocUseCase struct {
	repo  ports.RegDocRepository
	queue ports.EmbedQueue
}

func NewRegDocUseCase(repo ports.RegDocRepository, queue ports.EmbedQueue) *RegDocUseCase {
	return &RegDocUseCase{repo: repo, queue: queue}
}

func (uc *RegDocUseCase) List(ctx context.Context, offset, limit int) ([]domain.RegDoc, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	docs, err := uc.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list regulation documents: %w", err)
	}
	return docs, nil
}

func (uc *RegDocUseCase) Count(ctx context.Context) (int64, error) {
	count, err := uc.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count regulation documents: %w", err)
	}
	return count, nil
}

func (uc *RegDocUseCase) GetByID(ctx context.Context, id int64) (*domain.RegDoc, error) {
	if id <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get regulation document", fmt.Errorf("id must be positive"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *RegDocUseCase) GetByCode(ctx context.Context, code, language string) (*domain.RegDoc, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get regulation document", fmt.Errorf("code is required"))
	}
	if language == "" {
		language = "en"
	}
	return uc.repo.GetByCode(ctx, code, language)
}

func (uc *RegDocUseCase) Search(ctx context.Context, query, language string, limit int) ([]domain.RegDoc, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search regulation documents", fmt.Errorf("query is required"))
	}
	if language == "" {
		language = "en"
	}
	if limit <= 0 {
		limit = defaultFindLimit
	}

	docs, err := uc.repo.SearchByTitle(ctx, query, language, limit)
	if err != nil {
		return nil, fmt.Errorf("search regulation documents: %w", err)
	}
	return docs, nil
}

// RequestEmbedding verifies the document exists and enqueues it for the
// embedding backfill worker.
func (uc *RegDocUseCase) RequestEmbedding(ctx context.Context, id int64) error {
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := uc.queue.PublishEmbedPending(ctx, id); err != nil {
		return fmt.Errorf("publish embed-pending event: %w", err)
	}
	return nil
}
