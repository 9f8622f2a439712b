package usecase

import (
	"fmt"
	"strings"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

const generatorSystemPrompt = `You are a legal regulations assistant for EMU University.
Answer questions based ONLY on the provided regulation documents.

CRITICAL RULES:
1. Every substantive claim MUST cite a source with (reg_code, chunk_id)
2. If the documents don't contain enough information, say so explicitly
3. Quote relevant excerpts when making claims
4. Be precise and avoid speculation
5. If asked about something not in the regulations, clearly state that

Format citations as: [Source: code, chunk_id]`

const insufficientEvidenceTemplate = `I searched the EMU regulations database but could not find sufficient information to answer your question.

**Search attempted:**
- Query type: %s
- Queries tried: %s
- Regulation codes considered: %s

**What I found:**
%s

Please try rephrasing your question or ask about a specific regulation section if you know the code (e.g., "What does section 5.1.2 say?").`

func buildGeneratorPrompt(query string, chunks []domain.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		heading := chunk.Heading
		if heading == "" {
			heading = "N/A"
		}
		parts = append(parts, fmt.Sprintf(
			"[Document %d] Code: %s, Chunk ID: %d\nHeading: %s\nContent: %s\n",
			i+1, chunk.RegCode, chunk.ChunkID, heading, truncateRunes(chunk.Content, maxChunkChars),
		))
	}

	return fmt.Sprintf(`Question: %s

Relevant Regulation Documents:
%s

Answer the question based ONLY on the documents above.
For each claim, cite the source like this: [Source: reg_code, chunk_id]
If the documents don't fully answer the question, say so.`, query, strings.Join(parts, "\n---\n"))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
