package domain

// QueryType is the search strategy detected by the query router.
type QueryType string

const (
	QueryTypeCode     QueryType = "code"     // direct regulation code lookup (e.g. "5.1.2")
	QueryTypeMetadata QueryType = "metadata" // gazette/decision/appendix/date references
	QueryTypeVector   QueryType = "vector"   // natural language, semantic search
)

// RoutingDecision is produced once per run by the router and never mutated.
type RoutingDecision struct {
	QueryType         QueryType `json:"query_type"`
	ExtractedCode     string    `json:"extracted_code,omitempty"`
	ExtractedMetadata string    `json:"extracted_metadata,omitempty"`
	Reasoning         string    `json:"reasoning"`
}

// ChunkRow is a raw passage row as the document store returns it, with
// provenance back to its regulation document.
type ChunkRow struct {
	ChunkID  int64  `json:"chunk_id"`
	RegDocID int64  `json:"reg_doc_id"`
	RegCode  string `json:"reg_code"`
	URL      string `json:"url,omitempty"`
	Heading  string `json:"heading,omitempty"`
	Content  string `json:"content"`
}

// VectorHit is a nearest-neighbor result with its raw cosine distance.
type VectorHit struct {
	ChunkRow
	Distance float64
}

// TextHit is a full-text search result with the store's rank statistic.
type TextHit struct {
	ChunkRow
	Rank float64
}

// RetrievedChunk is a passage with per-strategy confidence attached by the
// retrieval engine. Identity within a result set is ChunkID.
type RetrievedChunk struct {
	ChunkRow
	ScoreVec    float64 `json:"score_vec"`
	ScoreFTS    float64 `json:"score_fts"`
	ScoreFusion float64 `json:"score_fusion"`
}

// GradeResult is the heuristic relevance verdict for one (query, chunk) pair.
type GradeResult struct {
	IsRelevant bool    `json:"is_relevant"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// GradedChunk pairs a retrieved chunk with its grade.
type GradedChunk struct {
	Chunk RetrievedChunk `json:"chunk"`
	Grade GradeResult    `json:"grade"`
}

// Citation points a claim in the final answer back to a chunk.
type Citation struct {
	RegCode string `json:"reg_code"`
	URL     string `json:"url,omitempty"`
	ChunkID int64  `json:"chunk_id"`
	Excerpt string `json:"excerpt"`
}

// AnswerResult is the terminal artifact of a run. When HasSufficientEvidence
// is false, Citations is empty and Confidence is 0.
type AnswerResult struct {
	Answer                string     `json:"answer"`
	Citations             []Citation `json:"citations"`
	Confidence            float64    `json:"confidence"`
	HasSufficientEvidence bool       `json:"has_sufficient_evidence"`
}

// RunState is the mutable aggregate threaded through the pipeline stages.
// Each stage only adds or replaces the fields it owns; Relevant is always a
// subset of Retrieved. The state lives for exactly one run.
type RunState struct {
	Query    string
	ThreadID string

	QueryType QueryType
	Routing   *RoutingDecision

	Retrieved []RetrievedChunk
	Graded    []GradedChunk
	Relevant  []RetrievedChunk

	QueryHistory     []string
	SearchIterations int
	MaxIterations    int

	Answer *AnswerResult
	Err    string
}

// NewRunState seeds the state for a single pipeline run. The original query
// opens the history; MaxIterations is reserved for a future retry cycle and
// is fixed at 1 in the active wiring.
func NewRunState(query, threadID string) *RunState {
	return &RunState{
		Query:         query,
		ThreadID:      threadID,
		QueryType:     QueryTypeVector,
		QueryHistory:  []string{query},
		MaxIterations: 1,
	}
}

// RunResult is the contract the orchestrator exposes to its caller.
type RunResult struct {
	Answer                string     `json:"answer"`
	Citations             []Citation `json:"citations"`
	Confidence            float64    `json:"confidence"`
	HasSufficientEvidence bool       `json:"has_sufficient_evidence"`
	QueryHistory          []string   `json:"query_history"`
	SearchIterations      int        `json:"search_iterations"`
}
