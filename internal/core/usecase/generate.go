package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
)

const (
	maxContextChunks = 8
	maxChunkChars    = 2000
	maxExcerptChars  = 200
)

// Answerer assembles the bounded context window, delegates to the completion
// service, and extracts citations. It owns the insufficient-evidence
// decision: an empty evidence set produces an explicit non-answer, never an
// error.
type Answerer struct {
	llm    ports.CompletionService
	logger *slog.Logger
}

func NewAnswerer(llm ports.CompletionService, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{llm: llm, logger: logger}
}

// Synthesize prefers the graded-relevant chunks and falls back to the raw
// retrieval set, so the generator still gets context when grading rejected
// everything. It records completion failures on the run state but always
// returns a well-formed answer.
func (a *Answerer) Synthesize(ctx context.Context, state *domain.RunState) domain.AnswerResult {
	chunks := state.Relevant
	if len(chunks) == 0 {
		chunks = state.Retrieved
	}
	if len(chunks) == 0 {
		return buildInsufficientAnswer(state)
	}
	if len(chunks) > maxContextChunks {
		chunks = chunks[:maxContextChunks]
	}

	answer, err := a.llm.Complete(ctx, generatorSystemPrompt, buildGeneratorPrompt(state.Query, chunks))
	if err != nil {
		a.logger.Error("answer generation failed", "error", err)
		state.Err = err.Error()
		return domain.AnswerResult{
			Answer:                fmt.Sprintf("I encountered an error generating the response: %v", err),
			Citations:             []domain.Citation{},
			Confidence:            0.0,
			HasSufficientEvidence: false,
		}
	}

	citations := make([]domain.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		citations = append(citations, domain.Citation{
			RegCode: chunk.RegCode,
			URL:     chunk.URL,
			ChunkID: chunk.ChunkID,
			Excerpt: excerpt(chunk.Content),
		})
	}

	confidence := 0.6
	if len(chunks) >= 3 {
		confidence = 0.8
	}

	return domain.AnswerResult{
		Answer:                answer,
		Citations:             citations,
		Confidence:            confidence,
		HasSufficientEvidence: true,
	}
}

// buildInsufficientAnswer renders the fixed non-answer template: query type,
// up to the first 3 queries tried, up to 5 distinct codes seen among the
// retrieved chunks, and a findings line separating "nothing retrieved" from
// "retrieved but nothing relevant".
func buildInsufficientAnswer(state *domain.RunState) domain.AnswerResult {
	codes := distinctCodes(state.Retrieved, 5)
	codesLine := "None"
	if len(codes) > 0 {
		codesLine = strings.Join(codes, ", ")
	}

	queries := state.QueryHistory
	if len(queries) > 3 {
		queries = queries[:3]
	}
	quoted := make([]string, 0, len(queries))
	for _, q := range queries {
		quoted = append(quoted, fmt.Sprintf("%q", q))
	}

	findings := "No matching documents were found in the database."
	if len(state.Retrieved) > 0 {
		findings = fmt.Sprintf("Found %d document chunks, but none were relevant to your specific question.", len(state.Retrieved))
	}

	return domain.AnswerResult{
		Answer: fmt.Sprintf(insufficientEvidenceTemplate,
			state.QueryType, strings.Join(quoted, ", "), codesLine, findings),
		Citations:             []domain.Citation{},
		Confidence:            0.0,
		HasSufficientEvidence: false,
	}
}

func distinctCodes(chunks []domain.RetrievedChunk, limit int) []string {
	seen := make(map[string]struct{}, len(chunks))
	codes := make([]string, 0, limit)
	for _, chunk := range chunks {
		if _, ok := seen[chunk.RegCode]; ok {
			continue
		}
		seen[chunk.RegCode] = struct{}{}
		codes = append(codes, chunk.RegCode)
		if len(codes) == limit {
			break
		}
	}
	return codes
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= maxExcerptChars {
		return content
	}
	return string(runes[:maxExcerptChars]) + "..."
}
