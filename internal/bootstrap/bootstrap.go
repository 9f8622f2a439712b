package bootstrap

import (
	"context"
	"fmt"

	"github.com/Vitaee/EmuMevzuatAgent/internal/config"
	"github.com/Vitaee/EmuMevzuatAgent/internal/core/ports"
	"github.com/Vitaee/EmuMevzuatAgent/internal/core/usecase"
	"github.com/Vitaee/EmuMevzuatAgent/internal/infrastructure/llm/openrouter"
	"github.com/Vitaee/EmuMevzuatAgent/internal/infrastructure/queue/nats"
	"github.com/Vitaee/EmuMevzuatAgent/internal/infrastructure/repository/postgres"
	"github.com/Vitaee/EmuMevzuatAgent/internal/infrastructure/resilience"
	"github.com/Vitaee/EmuMevzuatAgent/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue   *nats.Queue
	Agent   ports.QueryAgent
	RegDocs ports.RegDocReader
	EmbedUC ports.EmbeddingProcessor
	Metrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewChunkStore(db, cfg.EmbeddingDim)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	regDocRepo := postgres.NewRegDocRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSEmbedSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embed queue: %w", err)
	}

	llmClient := openrouter.New(openrouter.Config{
		BaseURL:    cfg.OpenRouterBaseURL,
		APIKey:     cfg.OpenRouterAPIKey,
		GenModel:   cfg.LLMModel,
		EmbedModel: cfg.EmbeddingModel,
		Executor:   executor,
	})
	embedder := openrouter.NewEmbedder(llmClient)
	completer := openrouter.NewCompleter(llmClient)

	httpMetrics := metrics.NewHTTPServerMetrics("api")

	retriever := usecase.NewRetriever(store, embedder, usecase.RetrievalConfig{
		TopKVector: cfg.RetrievalTopKVector,
		TopKFTS:    cfg.RetrievalTopKFTS,
		TopKFinal:  cfg.RetrievalTopKFinal,
		RRFK:       cfg.RetrievalRRFK,
	}, nil)
	pipeline := usecase.NewPipeline(
		usecase.NewRouter(),
		retriever,
		usecase.NewGrader(),
		usecase.NewAnswerer(completer, nil),
		nil,
	).WithObserver(httpMetrics)

	regDocUC := usecase.NewRegDocUseCase(regDocRepo, queue)
	embedUC := usecase.NewEmbedBackfillUseCase(store, embedder, cfg.EmbedBatchSize, nil)

	return &App{
		Config: cfg,

		Queue:   queue,
		Agent:   pipeline,
		RegDocs: regDocUC,
		EmbedUC: embedUC,
		Metrics: httpMetrics,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
