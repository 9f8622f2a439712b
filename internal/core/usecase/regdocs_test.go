package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

type regDocRepoFake struct {
	docs []domain.RegDoc
	doc  *domain.RegDoc
	err  error

	offset, limit int
	lastCode      string
	lastLanguage  string
	lastQuery     string
}

func (f *regDocRepoFake) List(_ context.Context, offset, limit int) ([]domain.RegDoc, error) {
	f.offset, f.limit = offset, limit
	return f.docs, f.err
}

func (f *regDocRepoFake) Count(context.Context) (int64, error) {
	return int64(len(f.docs)), f.err
}

func (f *regDocRepoFake) GetByID(context.Context, int64) (*domain.RegDoc, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *regDocRepoFake) GetByCode(_ context.Context, code, language string) (*domain.RegDoc, error) {
	f.lastCode, f.lastLanguage = code, language
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *regDocRepoFake) SearchByTitle(_ context.Context, query, language string, limit int) ([]domain.RegDoc, error) {
	f.lastQuery, f.lastLanguage, f.limit = query, language, limit
	return f.docs, f.err
}

type embedQueueFake struct {
	published []int64
	err       error
}

func (f *embedQueueFake) PublishEmbedPending(_ context.Context, regDocID int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, regDocID)
	return nil
}

func (f *embedQueueFake) SubscribeEmbedPending(context.Context, func(context.Context, int64) error) error {
	return nil
}

func TestRegDocListClampsPagination(t *testing.T) {
	repo := &regDocRepoFake{}
	uc := NewRegDocUseCase(repo, &embedQueueFake{})

	if _, err := uc.List(context.Background(), -5, 0); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.offset != 0 || repo.limit != 100 {
		t.Fatalf("expected offset=0 limit=100, got %d/%d", repo.offset, repo.limit)
	}

	if _, err := uc.List(context.Background(), 10, 5000); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.limit != 1000 {
		t.Fatalf("expected limit capped at 1000, got %d", repo.limit)
	}
}

func TestRegDocGetByIDValidatesID(t *testing.T) {
	uc := NewRegDocUseCase(&regDocRepoFake{}, &embedQueueFake{})
	_, err := uc.GetByID(context.Background(), 0)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRegDocGetByCodeDefaultsLanguage(t *testing.T) {
	repo := &regDocRepoFake{doc: &domain.RegDoc{ID: 1, Code: "5.1"}}
	uc := NewRegDocUseCase(repo, &embedQueueFake{})

	doc, err := uc.GetByCode(context.Background(), " 5.1 ", "")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if doc.Code != "5.1" {
		t.Fatalf("expected doc 5.1, got %+v", doc)
	}
	if repo.lastCode != "5.1" || repo.lastLanguage != "en" {
		t.Fatalf("expected trimmed code and default language, got %q/%q", repo.lastCode, repo.lastLanguage)
	}
}

func TestRegDocGetByCodeRequiresCode(t *testing.T) {
	uc := NewRegDocUseCase(&regDocRepoFake{}, &embedQueueFake{})
	if _, err := uc.GetByCode(context.Background(), "  ", "en"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRegDocSearchDefaults(t *testing.T) {
	repo := &regDocRepoFake{}
	uc := NewRegDocUseCase(repo, &embedQueueFake{})

	if _, err := uc.Search(context.Background(), "exam", "", 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if repo.lastQuery != "exam" || repo.lastLanguage != "en" || repo.limit != 10 {
		t.Fatalf("expected defaults applied, got %q/%q/%d", repo.lastQuery, repo.lastLanguage, repo.limit)
	}

	if _, err := uc.Search(context.Background(), "  ", "en", 5); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank query")
	}
}

func TestRequestEmbeddingPublishesAfterLookup(t *testing.T) {
	queue := &embedQueueFake{}
	uc := NewRegDocUseCase(&regDocRepoFake{doc: &domain.RegDoc{ID: 42}}, queue)

	if err := uc.RequestEmbedding(context.Background(), 42); err != nil {
		t.Fatalf("RequestEmbedding() error = %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != 42 {
		t.Fatalf("expected publish for doc 42, got %v", queue.published)
	}
}

func TestRequestEmbeddingUnknownDoc(t *testing.T) {
	queue := &embedQueueFake{}
	uc := NewRegDocUseCase(&regDocRepoFake{err: domain.ErrRegDocNotFound}, queue)

	err := uc.RequestEmbedding(context.Background(), 99)
	if !errors.Is(err, domain.ErrRegDocNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected no publish for unknown doc")
	}
}
