package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

const regDocColumns = `id, code, title, url, parent_code, depth, sort_key, language, page_title, content_sha256, scraped_at`

// RegDocRepository is the read model over the scraped regulation corpus.
type RegDocRepository struct {
	db *sql.DB
}

func NewRegDocRepository(db *sql.DB) *RegDocRepository {
	return &RegDocRepository{db: db}
}

func (r *RegDocRepository) List(ctx context.Context, offset, limit int) ([]domain.RegDoc, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+regDocColumns+`
FROM reg_doc
ORDER BY sort_key, code
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list reg docs: %w", err)
	}
	defer rows.Close()

	return scanRegDocs(rows)
}

func (r *RegDocRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reg_doc`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reg docs: %w", err)
	}
	return count, nil
}

func (r *RegDocRepository) GetByID(ctx context.Context, id int64) (*domain.RegDoc, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+regDocColumns+`
FROM reg_doc
WHERE id = $1
`, id)

	doc, err := scanRegDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRegDocNotFound, "get reg doc", fmt.Errorf("id %d", id))
		}
		return nil, fmt.Errorf("get reg doc: %w", err)
	}
	return doc, nil
}

func (r *RegDocRepository) GetByCode(ctx context.Context, code, language string) (*domain.RegDoc, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+regDocColumns+`
FROM reg_doc
WHERE code = $1 AND language = $2
`, code, language)

	doc, err := scanRegDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRegDocNotFound, "get reg doc by code", fmt.Errorf("code %s", code))
		}
		return nil, fmt.Errorf("get reg doc by code: %w", err)
	}
	return doc, nil
}

func (r *RegDocRepository) SearchByTitle(ctx context.Context, query, language string, limit int) ([]domain.RegDoc, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+regDocColumns+`
FROM reg_doc
WHERE language = $2 AND (title ILIKE $1 OR page_title ILIKE $1)
ORDER BY sort_key, code
LIMIT $3
`, "%"+query+"%", language, limit)
	if err != nil {
		return nil, fmt.Errorf("search reg docs: %w", err)
	}
	defer rows.Close()

	return scanRegDocs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegDoc(row rowScanner) (*domain.RegDoc, error) {
	var doc domain.RegDoc
	var url, parentCode, pageTitle, contentSHA sql.NullString
	err := row.Scan(
		&doc.ID, &doc.Code, &doc.Title, &url, &parentCode,
		&doc.Depth, &doc.SortKey, &doc.Language, &pageTitle, &contentSHA, &doc.ScrapedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.URL, doc.ParentCode, doc.PageTitle = url.String, parentCode.String, pageTitle.String
	doc.ContentSHA256 = contentSHA.String
	return &doc, nil
}

func scanRegDocs(rows *sql.Rows) ([]domain.RegDoc, error) {
	var docs []domain.RegDoc
	for rows.Next() {
		doc, err := scanRegDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reg doc: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}
