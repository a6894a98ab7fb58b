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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/llm"
)

// ErrGenerationFailed indicates the model failed before or during answer
// streaming. Fragments already delivered stand; the stream just ends here.
var ErrGenerationFailed = errors.New("answer generation failed")

// Generator produces streaming answers grounded in retrieved passages.
type Generator struct {
	provider    llm.CompletionProvider
	tokenBudget int
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewGenerator creates a Generator with the given context token budget and
// sampling temperature.
func NewGenerator(provider llm.CompletionProvider, tokenBudget int, temperature float64, timeout time.Duration, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider:    provider,
		tokenBudget: tokenBudget,
		temperature: temperature,
		timeout:     timeout,
		logger:      logger,
	}
}

// Generate starts a streaming completion answering question from the given
// passages. The caller must Close the returned stream.
func (g *Generator) Generate(ctx context.Context, systemPrompt, question string, passages []database.Passage) *FragmentStream {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)

	chunks, errs := g.provider.CompleteStream(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Context:      g.buildContext(passages),
		Messages:     []llm.Message{{Role: RoleUser, Content: question}},
		Temperature:  g.temperature,
	})

	return &FragmentStream{
		chunks: chunks,
		errs:   errs,
		cancel: cancel,
	}
}

// buildContext converts passages to context documents in retrieval order,
// respecting the token budget (~4 characters per token). A passage that
// overflows the budget is truncated at a sentence boundary; everything
// after it is dropped.
func (g *Generator) buildContext(passages []database.Passage) []llm.ContextDocument {
	docs := make([]llm.ContextDocument, 0, len(passages))
	totalTokens := 0

	for _, p := range passages {
		estimatedTokens := len(p.Text) / 4
		if totalTokens+estimatedTokens > g.tokenBudget {
			remaining := g.tokenBudget - totalTokens
			if remaining > 100 {
				truncated := p.Text[:min(len(p.Text), remaining*4)]
				if idx := strings.LastIndex(truncated, ". "); idx > 0 {
					truncated = truncated[:idx+1]
				}
				docs = append(docs, llm.ContextDocument{
					Content:  truncated + "...",
					Source:   sourceFileName(p),
					Score:    p.Score,
					Metadata: p.Metadata,
				})
			}
			break
		}

		docs = append(docs, llm.ContextDocument{
			Content:  p.Text,
			Source:   sourceFileName(p),
			Score:    p.Score,
			Metadata: p.Metadata,
		})
		totalTokens += estimatedTokens
	}

	return docs
}

// FragmentStream is a pull-based, single-pass stream of answer fragments.
// It is not restartable; each fragment is delivered exactly once.
type FragmentStream struct {
	chunks <-chan llm.StreamChunk
	errs   <-chan error
	cancel context.CancelFunc
	done   bool
}

// Next blocks until the next non-empty fragment is available. io.EOF
// signals normal exhaustion; any other error wraps ErrGenerationFailed.
func (s *FragmentStream) Next(ctx context.Context) (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				s.done = true
				// Providers close the chunk channel and leave any
				// terminal error buffered behind it.
				if err := <-s.errs; err != nil {
					return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
				}
				return "", io.EOF
			}
			if chunk.Content == "" {
				// Final chunks may carry only a finish reason.
				continue
			}
			return chunk.Content, nil
		case <-ctx.Done():
			s.done = true
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
		}
	}
}

// Close releases the model-side stream. Safe to call more than once and
// after exhaustion.
func (s *FragmentStream) Close() {
	s.cancel()
}
