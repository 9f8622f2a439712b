package usecase

import (
	"sort"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

type fusedCandidate struct {
	chunk domain.RetrievedChunk
	score float64
}

// fuseReciprocalRank combines the vector and lexical result lists with
// Reciprocal Rank Fusion: each chunk accumulates 1/(k+rank+1) per list it
// appears in, rank being its 0-based position in that list. Candidates keep
// first-seen insertion order, so equal scores sort stably. The combined
// score becomes ScoreFusion on every output chunk.
func fuseReciprocalRank(vector, lexical []domain.RetrievedChunk, rrfK, limit int) []domain.RetrievedChunk {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	index := make(map[int64]int, len(vector)+len(lexical))
	candidates := make([]fusedCandidate, 0, len(vector)+len(lexical))

	addList := func(chunks []domain.RetrievedChunk) {
		for rank, chunk := range chunks {
			contribution := 1.0 / float64(rrfK+rank+1)
			pos, seen := index[chunk.ChunkID]
			if !seen {
				index[chunk.ChunkID] = len(candidates)
				candidates = append(candidates, fusedCandidate{chunk: chunk, score: contribution})
				continue
			}
			candidates[pos].score += contribution
			candidates[pos].chunk = mergeStrategyScores(candidates[pos].chunk, chunk)
		}
	}

	addList(vector)
	addList(lexical)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]domain.RetrievedChunk, 0, len(candidates))
	for _, c := range candidates {
		chunk := c.chunk
		chunk.ScoreFusion = c.score
		out = append(out, chunk)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// mergeStrategyScores keeps both per-strategy confidences when the same
// chunk surfaced from vector and text search.
func mergeStrategyScores(current, candidate domain.RetrievedChunk) domain.RetrievedChunk {
	if candidate.ScoreVec > current.ScoreVec {
		current.ScoreVec = candidate.ScoreVec
	}
	if candidate.ScoreFTS > current.ScoreFTS {
		current.ScoreFTS = candidate.ScoreFTS
	}
	return current
}
