package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/bedtimenews/newsagent/db"
	"github.com/bedtimenews/newsagent/internal/agent"
	"github.com/bedtimenews/newsagent/internal/config"
	"github.com/bedtimenews/newsagent/internal/indexer"
	"github.com/bedtimenews/newsagent/internal/llm"
	"github.com/bedtimenews/newsagent/internal/log"
	"github.com/bedtimenews/newsagent/internal/observability"
	"github.com/bedtimenews/newsagent/internal/retriever"
	"github.com/bedtimenews/newsagent/internal/store"
)

// Model request rate limit shared by all workflow nodes.
const (
	modelRequestsPerSecond = 10
	modelRequestBurst      = 20
)

// Setup creates and initializes the application. On error everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before genkit.Init so the provider is
	// ready when Genkit starts creating spans.
	a.otelCleanup = observability.SetupTracing(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	}, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbeddingModel))
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbeddingModel)
	}
	a.Embedder = embedder

	a.Store = store.New(pool, logger)
	a.Retriever = retriever.New(a.Store, embedder, logger)

	limiter := rate.NewLimiter(rate.Limit(modelRequestsPerSecond), modelRequestBurst)
	client := llm.New(g, llm.DefaultRetryConfig(), limiter, logger)

	a.Engine = agent.NewEngine(client, a.Retriever, agent.Config{
		FastModel:       cfg.FastModel,
		GenerationModel: cfg.GenerationModel,
		MatchThreshold:  cfg.MatchThreshold,
		MaxIterations:   cfg.MaxIterations,
	}, logger)

	chunkEmbedder, err := indexer.NewEmbedder(embedder, cfg.EmbeddingModel, cfg.EmbeddingBatchSize, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = indexer.NewPipeline(a.Store, chunkEmbedder,
		cfg.ContentsDir, cfg.IndexConfigFile, cfg.LockFile,
		cfg.EmbeddingModel, cfg.EmbeddingBatchSize, logger)

	return a, nil
}

// provideDBPool runs migrations and creates the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the OpenAI plugin. The plugin
// reads OPENAI_API_KEY from the environment and auto-registers the
// chat and embedding models.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with openai provider")
	}
	return g, nil
}
