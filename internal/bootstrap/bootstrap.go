package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiwihelp/visa-assistant/internal/config"
	"github.com/kiwihelp/visa-assistant/internal/core/ports"
	"github.com/kiwihelp/visa-assistant/internal/core/usecase"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/chunking"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/corpus/jsonfile"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/llm/ollama"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/queue/nats"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/repository/postgres"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/resilience"
	"github.com/kiwihelp/visa-assistant/internal/infrastructure/search/elastic"
	"github.com/kiwihelp/visa-assistant/internal/observability/metrics"
)

// App wires the serving dependencies: pipeline, persistence and feedback
// queue behind their ports.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Answerer ports.QuestionAnswerer
	Dialogs  ports.DialogStore
	Feedback *nats.Queue
	Metrics  *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	dialogs := postgres.NewDialogRepository(db)
	if err := dialogs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)

	queue, err := nats.New(cfg.NATSURL, cfg.NATSFeedbackSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init feedback queue: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	provider := ollama.NewProvider(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	index := elastic.New(cfg.ElasticURL, cfg.ElasticIndex, elastic.Options{
		ResilienceExecutor: executor,
	})

	retriever := usecase.NewRetrievalEngine(index, embedder, usecase.RetrievalOptions{
		TopK:       cfg.TopK,
		Candidates: cfg.Candidates,
		RRFK:       cfg.RRFK,
		OnDegraded: func(modality string) {
			serverMetrics.RecordRetrievalDegraded("api", modality)
		},
	}, logger)

	gate := usecase.NewRelevanceGate(provider)
	pipeline := usecase.NewPipeline(provider, retriever, gate, usecase.PipelineOptions{
		FilterResults: cfg.FilterResults,
	}, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Answerer: pipeline,
		Dialogs:  dialogs,
		Feedback: queue,
		Metrics:  serverMetrics,

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

// Indexer wires the one-shot reindex dependencies. It needs neither
// Postgres nor NATS.
type Indexer struct {
	Reindexer ports.CorpusIndexer
}

func NewIndexer(cfg config.Config, logger *slog.Logger, recreate bool) (*Indexer, error) {
	splitter, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init splitter: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	index := elastic.New(cfg.ElasticURL, cfg.ElasticIndex, elastic.Options{
		ResilienceExecutor: executor,
	})
	corpus := jsonfile.New(cfg.CorpusPath)

	reindexer := usecase.NewReindexUseCase(corpus, splitter, embedder, index, usecase.ReindexOptions{
		Recreate: recreate,
	}, logger)

	return &Indexer{Reindexer: reindexer}, nil
}
