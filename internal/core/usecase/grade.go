package usecase

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

const (
	minContentLength = 50
	keywordWeight    = 0.6
	retrievalWeight  = 0.4
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "what": {}, "how": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "for": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "with": {}, "and": {}, "or": {},
}

// Grader scores a retrieved passage against the query using lexical overlap
// and the retrieval confidence already attached to the chunk. Pure function,
// no I/O, no model call.
type Grader struct{}

func NewGrader() Grader {
	return Grader{}
}

func (Grader) Grade(query string, chunk domain.RetrievedChunk) domain.GradeResult {
	if utf8.RuneCountInString(chunk.Content) < minContentLength {
		return domain.GradeResult{
			IsRelevant: false,
			Reason:     "content too short",
			Confidence: 0.9,
		}
	}

	keywordScore := keywordMatchScore(query, chunk.Content)
	retrievalScore := math.Max(chunk.ScoreVec, math.Max(chunk.ScoreFTS, chunk.ScoreFusion))
	combined := keywordWeight*keywordScore + retrievalWeight*retrievalScore

	// Deliberately lenient: any of the three signals is enough.
	relevant := combined > 0.1 || keywordScore > 0.2 || retrievalScore > 0.3

	// A chunk that came out of vector or text search is trusted outright,
	// even when the keyword heuristic would have rejected it.
	if chunk.ScoreVec > 0 || chunk.ScoreFTS > 0 {
		relevant = true
	}

	return domain.GradeResult{
		IsRelevant: relevant,
		Reason:     fmt.Sprintf("keyword: %.2f, retrieval: %.2f", keywordScore, retrievalScore),
		Confidence: math.Min(combined+0.3, 1.0),
	}
}

// keywordMatchScore is the fraction of meaningful query tokens appearing as
// substrings of the content. Queries without meaningful tokens score 0.5.
func keywordMatchScore(query, content string) float64 {
	if query == "" || content == "" {
		return 0
	}

	contentLower := strings.ToLower(content)
	tokens := meaningfulTokens(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0.5
	}

	matches := 0
	for _, token := range tokens {
		if strings.Contains(contentLower, token) {
			matches++
		}
	}
	return float64(matches) / float64(len(tokens))
}

func meaningfulTokens(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, word := range fields {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}
