package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vitaee/EmuMevzuatAgent/internal/core/domain"
)

// Stage identifies a node in the agent workflow graph.
type Stage string

const (
	StageRoute    Stage = "route"
	StageRetrieve Stage = "retrieve"
	StageGrade    Stage = "grade"
	StageGenerate Stage = "generate"
	StageDone     Stage = "done"

	// StageRewrite is enumerated but not wired into the active graph. The
	// data model (query history, max iterations) already supports a
	// grade → rewrite → retrieve retry cycle; reinstating it is an edit to
	// the transition table, not a rewrite of the stages.
	StageRewrite Stage = "rewrite"
)

// PipelineObserver receives one telemetry record per completed run.
type PipelineObserver interface {
	ObservePipelineRun(queryType string, retrieved, relevant int, sufficient, generationFailed bool, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObservePipelineRun(string, int, int, bool, bool, time.Duration) {}

// Pipeline sequences the agent stages as an explicit directed graph with
// enumerated transitions. The active wiring is linear:
// route → retrieve → grade → generate. Grading never short-circuits the run;
// the generate stage owns the insufficient-evidence decision.
type Pipeline struct {
	router      Router
	retriever   *Retriever
	grader      Grader
	answerer    *Answerer
	transitions map[Stage]Stage
	observer    PipelineObserver
	logger      *slog.Logger
}

func NewPipeline(router Router, retriever *Retriever, grader Grader, answerer *Answerer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		router:      router,
		retriever:   retriever,
		grader:      grader,
		answerer:    answerer,
		transitions: defaultTransitions(),
		observer:    noopObserver{},
		logger:      logger,
	}
}

// WithObserver attaches a telemetry sink; nil restores the no-op sink.
func (p *Pipeline) WithObserver(observer PipelineObserver) *Pipeline {
	if observer == nil {
		observer = noopObserver{}
	}
	p.observer = observer
	return p
}

func defaultTransitions() map[Stage]Stage {
	return map[Stage]Stage{
		StageRoute:    StageRetrieve,
		StageRetrieve: StageGrade,
		StageGrade:    StageGenerate,
		StageGenerate: StageDone,
	}
}

// RunQuery executes one full pipeline run. Retrieval degradation and
// generation failures are absorbed into the answer; the returned error is
// reserved for context cancellation and broken wiring.
func (p *Pipeline) RunQuery(ctx context.Context, query, threadID string) (*domain.RunResult, error) {
	state := domain.NewRunState(query, threadID)
	start := time.Now()

	for stage := StageRoute; stage != StageDone; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, ok := p.transitions[stage]
		if !ok {
			return nil, fmt.Errorf("pipeline: no transition from stage %q", stage)
		}
		p.runStage(ctx, stage, state)
		stage = next
	}

	if state.Answer == nil {
		return nil, fmt.Errorf("pipeline: run produced no answer")
	}

	answer := *state.Answer
	p.observer.ObservePipelineRun(
		string(state.QueryType),
		len(state.Retrieved),
		len(state.Relevant),
		answer.HasSufficientEvidence,
		state.Err != "",
		time.Since(start),
	)
	p.logger.Info("pipeline run complete",
		"thread_id", state.ThreadID,
		"query_type", state.QueryType,
		"retrieved", len(state.Retrieved),
		"relevant", len(state.Relevant),
		"sufficient_evidence", answer.HasSufficientEvidence,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	return &domain.RunResult{
		Answer:                answer.Answer,
		Citations:             answer.Citations,
		Confidence:            answer.Confidence,
		HasSufficientEvidence: answer.HasSufficientEvidence,
		QueryHistory:          state.QueryHistory,
		SearchIterations:      state.SearchIterations,
	}, nil
}

// runStage dispatches one stage. Stages only touch the state fields they
// own; the shared query is propagated unchanged.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *domain.RunState) {
	switch stage {
	case StageRoute:
		decision := p.router.Route(state.Query)
		state.QueryType = decision.QueryType
		state.Routing = &decision
		p.logger.Debug("routed query", "query_type", decision.QueryType, "reasoning", decision.Reasoning)

	case StageRetrieve:
		var decision domain.RoutingDecision
		if state.Routing != nil {
			decision = *state.Routing
		}
		state.Retrieved = p.retriever.Retrieve(ctx, state.Query, decision)
		state.SearchIterations++
		p.logger.Debug("retrieved chunks", "count", len(state.Retrieved))

	case StageGrade:
		state.Graded = make([]domain.GradedChunk, 0, len(state.Retrieved))
		state.Relevant = make([]domain.RetrievedChunk, 0, len(state.Retrieved))
		for _, chunk := range state.Retrieved {
			grade := p.grader.Grade(state.Query, chunk)
			state.Graded = append(state.Graded, domain.GradedChunk{Chunk: chunk, Grade: grade})
			if grade.IsRelevant {
				state.Relevant = append(state.Relevant, chunk)
			}
		}
		p.logger.Debug("graded chunks", "relevant", len(state.Relevant), "total", len(state.Retrieved))

	case StageGenerate:
		answer := p.answerer.Synthesize(ctx, state)
		state.Answer = &answer
	}
}
