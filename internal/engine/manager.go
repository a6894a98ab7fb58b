//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/catenadev/catena-rag-server/internal/config"
	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/index"
	"github.com/catenadev/catena-rag-server/internal/llm/factory"
)

// Manager owns the engine and its long-lived resources: the database pool,
// the LLM providers and the index accessor. One Manager serves the whole
// process; queries run against it concurrently.
type Manager struct {
	cfg            *config.Config
	pool           *database.Pool
	accessor       *index.Accessor
	engine         *Engine
	embeddingModel string
	ragModel       string
	logger         *slog.Logger
}

// ManagerConfig contains configuration for creating a Manager.
type ManagerConfig struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewManager builds the engine from configuration: API keys, database pool,
// embedding and completion providers, index accessor, condenser, prompt
// builder and generator. The index itself is initialized separately via
// Init so the server can come up while the check runs.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engCfg := cfg.Config.Engine

	// Engine-level key paths were already cascaded from the root section
	// during config loading.
	keyLoader := config.NewAPIKeyLoader(engCfg.APIKeys)
	apiKeys, err := keyLoader.LoadKeysForEngine(engCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load API keys: %w", err)
	}

	pool, err := database.NewPool(ctx, engCfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The transport timeout must not undercut either per-operation bound.
	llmTimeout := engCfg.GenerateTimeout
	if engCfg.CondenseTimeout > llmTimeout {
		llmTimeout = engCfg.CondenseTimeout
	}

	embeddingProv, err := factory.NewEmbeddingProvider(
		engCfg.EmbeddingLLM.Provider,
		engCfg.EmbeddingLLM.Model,
		llmTimeout,
		apiKeys,
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	completionProv, err := factory.NewCompletionProvider(
		engCfg.RAGLLM.Provider,
		engCfg.RAGLLM.Model,
		llmTimeout,
		apiKeys,
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}

	collection := database.NewCollection(pool, engCfg.Collection)
	accessor := index.NewAccessor(collection, embeddingProv, engCfg.QueryPrefix, logger)

	eng := NewEngine(EngineConfig{
		Searcher: accessor,
		Condenser: NewCondenser(
			completionProv,
			engCfg.MaxExchanges,
			time.Duration(engCfg.CondenseTimeout)*time.Second,
			logger,
		),
		Prompts: NewPromptBuilder(engCfg.SystemPrompt),
		Generator: NewGenerator(
			completionProv,
			engCfg.TokenBudget,
			engCfg.Temperature,
			time.Duration(engCfg.GenerateTimeout)*time.Second,
			logger,
		),
		TopK:   engCfg.TopK,
		TopN:   engCfg.TopN,
		Logger: logger,
	})

	logger.Info("engine created",
		"collection", engCfg.Collection.Table,
		"embedding_provider", engCfg.EmbeddingLLM.Provider,
		"embedding_model", engCfg.EmbeddingLLM.Model,
		"rag_provider", engCfg.RAGLLM.Provider,
		"rag_model", engCfg.RAGLLM.Model,
	)

	return &Manager{
		cfg:            cfg.Config,
		pool:           pool,
		accessor:       accessor,
		engine:         eng,
		embeddingModel: embeddingProv.ModelName(),
		ragModel:       completionProv.ModelName(),
		logger:         logger,
	}, nil
}

// Init verifies the vector index is reachable and non-empty. Fails with
// index.ErrIndexUnavailable (wrapped) otherwise.
func (m *Manager) Init(ctx context.Context) error {
	return m.accessor.Init(ctx)
}

// Ready reports whether the vector index passed initialization.
func (m *Manager) Ready() bool {
	return m.accessor.Ready()
}

// Stats returns collection statistics for the health endpoint.
func (m *Manager) Stats(ctx context.Context) index.Stats {
	return m.accessor.Stats(ctx)
}

// Engine returns the query engine.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// Description returns the operator-supplied engine description.
func (m *Manager) Description() string {
	return m.cfg.Engine.Description
}

// CollectionName returns the table backing the vector index.
func (m *Manager) CollectionName() string {
	return m.cfg.Engine.Collection.Table
}

// EmbeddingModel returns the embedding model name.
func (m *Manager) EmbeddingModel() string {
	return m.embeddingModel
}

// RAGModel returns the completion model name.
func (m *Manager) RAGModel() string {
	return m.ragModel
}

// Close releases the database pool.
func (m *Manager) Close() error {
	if m.pool != nil {
		m.pool.Close()
	}
	return nil
}
