//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package index provides query-side access to the vector index: lifecycle
// checks, query embedding and similarity search over the passage collection.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/llm"
)

// ErrIndexUnavailable indicates the passage collection is unreachable or
// holds no passages. At startup this is fatal; a server already running
// reports it as a query failure.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Store is the slice of the database layer the accessor needs.
type Store interface {
	CountPassages(ctx context.Context) (int64, error)
	VectorSearch(ctx context.Context, embedding []float32, limit int) ([]database.Passage, error)
}

// Stats describes the passage collection behind the index.
type Stats struct {
	Passages int64 `json:"passages"`
	Ready    bool  `json:"ready"`
}

// Accessor embeds questions and searches the passage collection. It is safe
// for concurrent use; initialization runs at most once no matter how many
// goroutines race into it.
type Accessor struct {
	store       Store
	embedder    llm.EmbeddingProvider
	queryPrefix string
	logger      *slog.Logger

	group        singleflight.Group
	ready        atomic.Bool
	passageCount atomic.Int64
}

// NewAccessor creates an Accessor over the given store and embedding
// provider. queryPrefix is prepended to every question before embedding,
// matching asymmetric encoders that expect a query marker.
func NewAccessor(store Store, embedder llm.EmbeddingProvider, queryPrefix string, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{
		store:       store,
		embedder:    embedder,
		queryPrefix: queryPrefix,
		logger:      logger,
	}
}

// Init verifies the collection is reachable and non-empty. Concurrent calls
// share a single probe; once the accessor is ready Init is a no-op.
func (a *Accessor) Init(ctx context.Context) error {
	if a.ready.Load() {
		return nil
	}

	_, err, _ := a.group.Do("init", func() (interface{}, error) {
		// A concurrent caller may have finished while we waited.
		if a.ready.Load() {
			return nil, nil
		}

		count, err := a.store.CountPassages(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: collection is empty", ErrIndexUnavailable)
		}

		a.passageCount.Store(count)
		a.ready.Store(true)
		a.logger.Info("vector index ready", "passages", count)
		return nil, nil
	})

	return err
}

// Ready reports whether initialization has completed successfully.
func (a *Accessor) Ready() bool {
	return a.ready.Load()
}

// Search embeds the question and returns the topK most similar passages,
// ordered by descending similarity. If the accessor was never initialized
// it initializes on first use.
func (a *Accessor) Search(ctx context.Context, question string, topK int) ([]database.Passage, error) {
	if !a.ready.Load() {
		if err := a.Init(ctx); err != nil {
			return nil, err
		}
	}

	embedding, err := a.embedder.Embed(ctx, a.queryPrefix+question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	passages, err := a.store.VectorSearch(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return passages, nil
}

// Stats returns a live passage count, falling back to the last known count
// when the collection cannot be reached.
func (a *Accessor) Stats(ctx context.Context) Stats {
	count, err := a.store.CountPassages(ctx)
	if err != nil {
		count = a.passageCount.Load()
		a.logger.Warn("live passage count failed, using cached value", "error", err)
	} else {
		a.passageCount.Store(count)
	}

	return Stats{
		Passages: count,
		Ready:    a.ready.Load(),
	}
}
