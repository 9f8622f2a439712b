package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

const defaultEmbeddingDim = 4096

// ChunkStore runs the retrieval queries against the chunked corpus and
// manages chunk embeddings for the backfill worker.
type ChunkStore struct {
	db           *sql.DB
	embeddingDim int
}

func NewChunkStore(db *sql.DB, embeddingDim int) *ChunkStore {
	if embeddingDim <= 0 {
		embeddingDim = defaultEmbeddingDim
	}
	return &ChunkStore{db: db, embeddingDim: embeddingDim}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS reg_doc (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(50) NOT NULL,
	title TEXT NOT NULL,
	url TEXT,
	parent_code VARCHAR(50),
	depth INTEGER NOT NULL DEFAULT 1,
	sort_key INTEGER NOT NULL DEFAULT 0,
	language VARCHAR(10) NOT NULL DEFAULT 'en',
	page_title TEXT,
	text_content TEXT,
	content_sha256 VARCHAR(64),
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS ix_reg_doc_language_code ON reg_doc(language, code);
CREATE INDEX IF NOT EXISTS ix_reg_doc_parent_code ON reg_doc(parent_code);

CREATE TABLE IF NOT EXISTS reg_doc_chunk (
	id BIGSERIAL PRIMARY KEY,
	reg_doc_id BIGINT NOT NULL REFERENCES reg_doc(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL DEFAULT 0,
	heading TEXT,
	content TEXT NOT NULL,
	token_count INTEGER,
	content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	embedding VECTOR(%d)
);

CREATE UNIQUE INDEX IF NOT EXISTS ix_reg_doc_chunk_doc_ordinal ON reg_doc_chunk(reg_doc_id, ordinal);
CREATE INDEX IF NOT EXISTS ix_reg_doc_chunk_content_tsv ON reg_doc_chunk USING gin(content_tsv);
`, s.embeddingDim)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *ChunkStore) LookupByCode(ctx context.Context, code string, limit int) ([]domain.ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.reg_doc_id, d.code, d.url, c.heading, c.content
FROM reg_doc_chunk c
JOIN reg_doc d ON c.reg_doc_id = d.id
WHERE d.code = $1 OR d.code LIKE $2
ORDER BY c.ordinal
LIMIT $3
`, code, code+".%", limit)
	if err != nil {
		return nil, fmt.Errorf("lookup by code: %w", err)
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

func (s *ChunkStore) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]domain.VectorHit, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.reg_doc_id, d.code, d.url, c.heading, c.content,
	c.embedding <=> $1 AS vec_distance
FROM reg_doc_chunk c
JOIN reg_doc d ON c.reg_doc_id = d.id
WHERE c.embedding IS NOT NULL
ORDER BY c.embedding <=> $1
LIMIT $2
`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		var hit domain.VectorHit
		var url, heading sql.NullString
		if err := rows.Scan(&hit.ChunkID, &hit.RegDocID, &hit.RegCode, &url, &heading, &hit.Content, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hit.URL, hit.Heading = url.String, heading.String
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *ChunkStore) TextSearch(ctx context.Context, query string, limit int) ([]domain.TextHit, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.reg_doc_id, d.code, d.url, c.heading, c.content,
	ts_rank(c.content_tsv, plainto_tsquery('english', $1)) AS fts_score
FROM reg_doc_chunk c
JOIN reg_doc d ON c.reg_doc_id = d.id
WHERE c.content_tsv @@ plainto_tsquery('english', $1)
ORDER BY fts_score DESC
LIMIT $2
`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer rows.Close()

	var hits []domain.TextHit
	for rows.Next() {
		var hit domain.TextHit
		var url, heading sql.NullString
		if err := rows.Scan(&hit.ChunkID, &hit.RegDocID, &hit.RegCode, &url, &heading, &hit.Content, &hit.Rank); err != nil {
			return nil, fmt.Errorf("scan text hit: %w", err)
		}
		hit.URL, hit.Heading = url.String, heading.String
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *ChunkStore) SampleAll(ctx context.Context, limit int) ([]domain.ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.reg_doc_id, d.code, d.url, c.heading, c.content
FROM reg_doc_chunk c
JOIN reg_doc d ON c.reg_doc_id = d.id
ORDER BY d.code, c.ordinal
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("sample chunks: %w", err)
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

func (s *ChunkStore) ListUnembedded(ctx context.Context, regDocID int64, limit int) ([]domain.ChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.reg_doc_id, d.code, d.url, c.heading, c.content
FROM reg_doc_chunk c
JOIN reg_doc d ON c.reg_doc_id = d.id
WHERE c.reg_doc_id = $1 AND c.embedding IS NULL
ORDER BY c.ordinal
LIMIT $2
`, regDocID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unembedded chunks: %w", err)
	}
	defer rows.Close()

	return scanChunkRows(rows)
}

func (s *ChunkStore) SaveEmbedding(ctx context.Context, chunkID int64, embedding []float32) error {
	result, err := s.db.ExecContext(ctx, `
UPDATE reg_doc_chunk SET embedding = $2 WHERE id = $1
`, chunkID, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save embedding rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrChunkNotFound, "save embedding", fmt.Errorf("chunk %d", chunkID))
	}
	return nil
}

func scanChunkRows(rows *sql.Rows) ([]domain.ChunkRow, error) {
	var out []domain.ChunkRow
	for rows.Next() {
		var row domain.ChunkRow
		var url, heading sql.NullString
		if err := rows.Scan(&row.ChunkID, &row.RegDocID, &row.RegCode, &url, &heading, &row.Content); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		row.URL, row.Heading = url.String, heading.String
		out = append(out, row)
	}
	return out, rows.Err()
}
