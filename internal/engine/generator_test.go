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
	"io"
	"strings"
	"testing"
	"time"

	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/llm"
)

func newTestGenerator(provider llm.CompletionProvider, tokenBudget int) *Generator {
	return NewGenerator(provider, tokenBudget, 0.7, 5*time.Second, nil)
}

func TestBuildContext_WithinBudget(t *testing.T) {
	g := newTestGenerator(&MockCompletionProvider{}, 4000)

	passages := []database.Passage{
		{Text: "first passage", SourceName: "a.md", Score: 0.9},
		{Text: "second passage", SourceName: "b.md", Score: 0.8},
		{Text: "third passage", SourcePath: "/corpus/c.md", Score: 0.7},
	}

	docs := g.buildContext(passages)

	if len(docs) != 3 {
		t.Fatalf("got %d context documents, want 3", len(docs))
	}
	for i, p := range passages {
		if docs[i].Content != p.Text {
			t.Errorf("docs[%d].Content = %q, want %q", i, docs[i].Content, p.Text)
		}
		if docs[i].Score != p.Score {
			t.Errorf("docs[%d].Score = %v, want %v", i, docs[i].Score, p.Score)
		}
	}
	if docs[0].Source != "a.md" {
		t.Errorf("docs[0].Source = %q, want a.md", docs[0].Source)
	}
	if docs[2].Source != "c.md" {
		t.Errorf("docs[2].Source = %q, want the path base", docs[2].Source)
	}
}

func TestBuildContext_TruncatesAtSentenceBoundary(t *testing.T) {
	// First passage fills 250 of 400 budgeted tokens. The second overflows,
	// leaving 150 tokens (600 chars); it is cut at the last sentence end
	// inside that window and everything after it is dropped.
	second := strings.Repeat("b", 500) + ". " + strings.Repeat("c", 494)
	passages := []database.Passage{
		{Text: strings.Repeat("a", 1000), SourceName: "a.md", Score: 0.9},
		{Text: second, SourceName: "b.md", Score: 0.8},
		{Text: "never included", SourceName: "c.md", Score: 0.7},
	}

	g := newTestGenerator(&MockCompletionProvider{}, 400)
	docs := g.buildContext(passages)

	if len(docs) != 2 {
		t.Fatalf("got %d context documents, want 2", len(docs))
	}
	want := strings.Repeat("b", 500) + "." + "..."
	if docs[1].Content != want {
		t.Errorf("truncated content = %q..., want sentence-bounded cut",
			docs[1].Content[:min(len(docs[1].Content), 40)])
	}
}

func TestBuildContext_DropsPassageWhenBudgetNearlySpent(t *testing.T) {
	passages := []database.Passage{
		{Text: strings.Repeat("a", 1000), SourceName: "a.md", Score: 0.9},
		{Text: strings.Repeat("b", 1000), SourceName: "b.md", Score: 0.8},
	}

	// 300 token budget: the first passage takes 250; the 50 remaining are
	// not worth a fragment.
	g := newTestGenerator(&MockCompletionProvider{}, 300)
	docs := g.buildContext(passages)

	if len(docs) != 1 {
		t.Fatalf("got %d context documents, want 1", len(docs))
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	var captured llm.CompletionRequest
	provider := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			captured = req
			chunkChan := make(chan llm.StreamChunk)
			errChan := make(chan error, 1)
			close(chunkChan)
			close(errChan)
			return chunkChan, errChan
		},
	}

	g := newTestGenerator(provider, 4000)
	stream := g.Generate(context.Background(), "system instructions", "What is the Trinity?",
		[]database.Passage{{Text: "passage", SourceName: "doc.md", Score: 0.9}})
	defer stream.Close()

	if _, err := stream.Next(context.Background()); err != io.EOF {
		t.Fatalf("Next() error = %v, want io.EOF", err)
	}

	if captured.SystemPrompt != "system instructions" {
		t.Errorf("SystemPrompt = %q", captured.SystemPrompt)
	}
	if len(captured.Messages) != 1 ||
		captured.Messages[0].Role != RoleUser ||
		captured.Messages[0].Content != "What is the Trinity?" {
		t.Errorf("Messages = %+v, want the question as the sole user message", captured.Messages)
	}
	if len(captured.Context) != 1 || captured.Context[0].Source != "doc.md" {
		t.Errorf("Context = %+v", captured.Context)
	}
	if captured.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", captured.Temperature)
	}
}

func TestFragmentStream_SkipsEmptyChunks(t *testing.T) {
	provider := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk, 4)
			errChan := make(chan error, 1)
			chunkChan <- llm.StreamChunk{Content: "first"}
			chunkChan <- llm.StreamChunk{Content: ""}
			chunkChan <- llm.StreamChunk{Content: "second"}
			chunkChan <- llm.StreamChunk{Content: "", FinishReason: "stop"}
			close(chunkChan)
			close(errChan)
			return chunkChan, errChan
		},
	}

	g := newTestGenerator(provider, 4000)
	stream := g.Generate(context.Background(), "system", "question", nil)
	defer stream.Close()

	ctx := context.Background()
	var fragments []string
	for {
		fragment, err := stream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() returned error: %v", err)
		}
		fragments = append(fragments, fragment)
	}

	if len(fragments) != 2 || fragments[0] != "first" || fragments[1] != "second" {
		t.Errorf("fragments = %v, want [first second]", fragments)
	}

	// Exhausted streams stay exhausted.
	if _, err := stream.Next(ctx); err != io.EOF {
		t.Errorf("Next() after EOF = %v, want io.EOF", err)
	}
}

func TestFragmentStream_WrapsProviderError(t *testing.T) {
	provider := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk, 1)
			errChan := make(chan error, 1)
			chunkChan <- llm.StreamChunk{Content: "partial"}
			errChan <- errors.New("rate limited")
			close(chunkChan)
			close(errChan)
			return chunkChan, errChan
		},
	}

	g := newTestGenerator(provider, 4000)
	stream := g.Generate(context.Background(), "system", "question", nil)
	defer stream.Close()

	ctx := context.Background()
	if fragment, err := stream.Next(ctx); err != nil || fragment != "partial" {
		t.Fatalf("Next() = %q, %v, want the partial fragment", fragment, err)
	}

	_, err := stream.Next(ctx)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Next() error = %v, want ErrGenerationFailed", err)
	}
}

func TestFragmentStream_ConsumerContextCancel(t *testing.T) {
	provider := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk)
			errChan := make(chan error, 1)
			go func() {
				defer close(chunkChan)
				defer close(errChan)
				<-ctx.Done()
			}()
			return chunkChan, errChan
		},
	}

	g := newTestGenerator(provider, 4000)
	stream := g.Generate(context.Background(), "system", "question", nil)
	defer stream.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stream.Next(ctx)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("Next() error = %v, want ErrGenerationFailed", err)
	}
}

func TestFragmentStream_CloseReleasesModelStream(t *testing.T) {
	released := make(chan struct{})
	provider := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk)
			errChan := make(chan error, 1)
			go func() {
				defer close(chunkChan)
				defer close(errChan)
				<-ctx.Done()
				close(released)
			}()
			return chunkChan, errChan
		},
	}

	g := newTestGenerator(provider, 4000)
	stream := g.Generate(context.Background(), "system", "question", nil)

	stream.Close()
	stream.Close() // safe to repeat

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the provider stream")
	}
}
