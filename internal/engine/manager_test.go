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
	"log/slog"
	"testing"

	"github.com/catenadev/catena-rag-server/internal/config"
	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/index"
)

// managerMockStore implements index.Store for manager tests.
type managerMockStore struct {
	count int64
}

func (s *managerMockStore) CountPassages(ctx context.Context) (int64, error) {
	return s.count, nil
}

func (s *managerMockStore) VectorSearch(
	ctx context.Context,
	embedding []float32,
	limit int,
) ([]database.Passage, error) {
	return []database.Passage{{Text: "passage", SourceName: "doc.md", Score: 0.9}}, nil
}

// managerMockEmbedder implements llm.EmbeddingProvider for manager tests.
type managerMockEmbedder struct{}

func (e *managerMockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (e *managerMockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (e *managerMockEmbedder) Dimensions() int { return 2 }

func (e *managerMockEmbedder) ModelName() string { return "mock-embedding-model" }

func newTestManager(passages int64) *Manager {
	cfg := config.DefaultConfig()
	cfg.Engine.Description = "Test corpus"
	cfg.Engine.Collection.Table = "documents"

	accessor := index.NewAccessor(
		&managerMockStore{count: passages},
		&managerMockEmbedder{},
		"query: ",
		slog.Default(),
	)

	return &Manager{
		cfg:            cfg,
		accessor:       accessor,
		engine:         newTestEngine(accessor, &MockCompletionProvider{}),
		embeddingModel: "mock-embedding-model",
		ragModel:       "mock-completion-model",
		logger:         slog.Default(),
	}
}

func TestManager_InitAndReady(t *testing.T) {
	m := newTestManager(12)

	if m.Ready() {
		t.Error("manager ready before Init")
	}
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}
	if !m.Ready() {
		t.Error("manager not ready after Init")
	}

	stats := m.Stats(context.Background())
	if stats.Passages != 12 || !stats.Ready {
		t.Errorf("Stats() = %+v, want 12 passages and ready", stats)
	}
}

func TestManager_InitFailsOnEmptyCollection(t *testing.T) {
	m := newTestManager(0)

	if err := m.Init(context.Background()); err == nil {
		t.Fatal("Init() succeeded on an empty collection")
	}
	if m.Ready() {
		t.Error("manager ready after failed Init")
	}
}

func TestManager_Accessors(t *testing.T) {
	m := newTestManager(12)

	if m.Engine() == nil {
		t.Error("Engine() returned nil")
	}
	if m.Description() != "Test corpus" {
		t.Errorf("Description() = %q", m.Description())
	}
	if m.CollectionName() != "documents" {
		t.Errorf("CollectionName() = %q", m.CollectionName())
	}
	if m.EmbeddingModel() != "mock-embedding-model" {
		t.Errorf("EmbeddingModel() = %q", m.EmbeddingModel())
	}
	if m.RAGModel() != "mock-completion-model" {
		t.Errorf("RAGModel() = %q", m.RAGModel())
	}

	// Close tolerates a manager that never opened a pool.
	if err := m.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}
}
