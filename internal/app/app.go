// Package app provides application initialization and dependency
// injection. Setup wires configuration, tracing, the database pool,
// Genkit, and the retrieval workflow into one container; Close releases
// everything in reverse order.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bedtimenews/newsagent/internal/agent"
	"github.com/bedtimenews/newsagent/internal/config"
	"github.com/bedtimenews/newsagent/internal/indexer"
	"github.com/bedtimenews/newsagent/internal/log"
	"github.com/bedtimenews/newsagent/internal/retriever"
	"github.com/bedtimenews/newsagent/internal/store"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store     *store.Store
	Retriever *retriever.Retriever
	Engine    *agent.Engine
	Pipeline  *indexer.Pipeline

	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
