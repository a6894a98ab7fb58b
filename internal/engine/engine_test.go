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
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/catenadev/catena-rag-server/internal/database"
	"github.com/catenadev/catena-rag-server/internal/llm"
)

// MockSearcher implements Searcher for testing.
type MockSearcher struct {
	SearchFunc func(ctx context.Context, question string, topK int) ([]database.Passage, error)
}

func (m *MockSearcher) Search(
	ctx context.Context,
	question string,
	topK int,
) ([]database.Passage, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, question, topK)
	}
	return []database.Passage{
		{Text: "first passage", SourceName: "alpha.md", SourcePath: "/corpus/alpha.md", Score: 0.92},
		{Text: "second passage", SourceName: "beta.md", SourcePath: "/corpus/beta.md", Score: 0.81},
	}, nil
}

// MockCompletionProvider implements llm.CompletionProvider for testing.
type MockCompletionProvider struct {
	CompleteFunc       func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteStreamFunc func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error)
	ModelNameVal       string
}

func (m *MockCompletionProvider) Complete(
	ctx context.Context,
	req llm.CompletionRequest,
) (*llm.CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &llm.CompletionResponse{
		Content:      "This is a mock response.",
		FinishReason: "stop",
	}, nil
}

func (m *MockCompletionProvider) CompleteStream(
	ctx context.Context,
	req llm.CompletionRequest,
) (<-chan llm.StreamChunk, <-chan error) {
	if m.CompleteStreamFunc != nil {
		return m.CompleteStreamFunc(ctx, req)
	}
	chunkChan := make(chan llm.StreamChunk, 3)
	errChan := make(chan error, 1)

	chunkChan <- llm.StreamChunk{Content: "This is "}
	chunkChan <- llm.StreamChunk{Content: "a streaming response."}
	chunkChan <- llm.StreamChunk{Content: "", FinishReason: "stop"}
	close(chunkChan)
	close(errChan)

	return chunkChan, errChan
}

func (m *MockCompletionProvider) ModelName() string {
	if m.ModelNameVal != "" {
		return m.ModelNameVal
	}
	return "mock-completion-model"
}

// newTestEngine builds an engine over mocks with production-like defaults.
func newTestEngine(searcher Searcher, completion llm.CompletionProvider) *Engine {
	return NewEngine(EngineConfig{
		Searcher:  searcher,
		Condenser: NewCondenser(completion, 3, 5*time.Second, slog.Default()),
		Prompts:   NewPromptBuilder(""),
		Generator: NewGenerator(completion, 4000, 0.7, 5*time.Second, slog.Default()),
		TopK:      8,
		TopN:      5,
	})
}

// collectEvents consumes a stream to exhaustion.
func collectEvents(t *testing.T, e *Engine, req AskRequest) []StreamEvent {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream := e.AskStream(ctx, req)
	defer stream.Close()

	var events []StreamEvent
	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return events
		}
		events = append(events, ev)
	}
}

func TestAskStream_Success(t *testing.T) {
	var completeCalls atomic.Int32
	var searched string

	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			searched = question
			return []database.Passage{
				{Text: "first passage", SourceName: "alpha.md", Score: 0.92},
				{Text: "second passage", SourceName: "beta.md", Score: 0.81},
			}, nil
		},
	}
	completion := &MockCompletionProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			completeCalls.Add(1)
			return &llm.CompletionResponse{Content: "unused"}, nil
		},
	}

	events := collectEvents(t, newTestEngine(searcher, completion),
		AskRequest{Question: "What is the Trinity?"})

	// Empty history: the question goes to retrieval verbatim without a
	// condensation model call.
	if got := completeCalls.Load(); got != 0 {
		t.Errorf("condensation made %d model calls with empty history, want 0", got)
	}
	if searched != "What is the Trinity?" {
		t.Errorf("retrieval saw %q, want the raw question", searched)
	}

	if len(events) < 3 {
		t.Fatalf("got %d events, want at least chunk+sources+done", len(events))
	}

	var answer strings.Builder
	for _, ev := range events[:len(events)-2] {
		if ev.Type != EventChunk {
			t.Fatalf("event %q before the terminal pair, want chunk", ev.Type)
		}
		answer.WriteString(ev.Content)
	}
	if answer.String() != "This is a streaming response." {
		t.Errorf("concatenated chunks = %q", answer.String())
	}

	sourcesEv := events[len(events)-2]
	if sourcesEv.Type != EventSources {
		t.Fatalf("second to last event = %q, want sources", sourcesEv.Type)
	}
	if len(sourcesEv.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(sourcesEv.Sources))
	}
	if sourcesEv.Sources[0].FileName != "alpha.md" || sourcesEv.Sources[1].FileName != "beta.md" {
		t.Errorf("sources out of order: %+v", sourcesEv.Sources)
	}

	if events[len(events)-1].Type != EventDone {
		t.Errorf("last event = %q, want done", events[len(events)-1].Type)
	}
}

func TestAskStream_CondensesWithHistory(t *testing.T) {
	var searched string

	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			searched = question
			return []database.Passage{{Text: "passage", SourceName: "doc.md", Score: 0.9}}, nil
		},
	}
	completion := &MockCompletionProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{
				Content: `"What does the doctrine of the Trinity teach?"`,
			}, nil
		},
	}

	events := collectEvents(t, newTestEngine(searcher, completion), AskRequest{
		Question: "What does it teach?",
		History: []Message{
			{Role: RoleUser, Content: "Tell me about the Trinity."},
			{Role: RoleAssistant, Content: "The Trinity is the Christian doctrine that..."},
		},
	})

	if searched != "What does the doctrine of the Trinity teach?" {
		t.Errorf("retrieval saw %q, want the condensed question", searched)
	}
	if events[len(events)-1].Type != EventDone {
		t.Errorf("last event = %q, want done", events[len(events)-1].Type)
	}
}

func TestAskStream_CondenserFailureFallsBackToRaw(t *testing.T) {
	var searched string

	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			searched = question
			return []database.Passage{{Text: "passage", SourceName: "doc.md", Score: 0.9}}, nil
		},
	}
	completion := &MockCompletionProvider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("model timeout")
		},
	}

	events := collectEvents(t, newTestEngine(searcher, completion), AskRequest{
		Question: "And the second council?",
		History: []Message{
			{Role: RoleUser, Content: "What was the first council?"},
			{Role: RoleAssistant, Content: "The First Council of Nicaea, in 325."},
		},
	})

	if searched != "And the second council?" {
		t.Errorf("retrieval saw %q, want the raw question verbatim", searched)
	}
	if events[len(events)-1].Type != EventDone {
		t.Errorf("query did not complete: last event = %q", events[len(events)-1].Type)
	}
}

func TestAskStream_RetrievalError(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			return nil, errors.New("connection refused")
		},
	}

	events := collectEvents(t, newTestEngine(searcher, &MockCompletionProvider{}),
		AskRequest{Question: "What is the Trinity?"})

	if len(events) != 1 {
		t.Fatalf("got %d events, want exactly one error event: %+v", len(events), events)
	}
	if events[0].Type != EventError {
		t.Errorf("event type = %q, want error", events[0].Type)
	}
	if events[0].Content != GenericErrorMessage {
		t.Errorf("error content = %q, want the generic message", events[0].Content)
	}
}

func TestAskStream_GenerationFailureAfterChunks(t *testing.T) {
	completion := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk, 2)
			errChan := make(chan error, 1)
			chunkChan <- llm.StreamChunk{Content: "The First Council "}
			chunkChan <- llm.StreamChunk{Content: "of Nicaea"}
			errChan <- errors.New("connection reset mid-stream")
			close(chunkChan)
			close(errChan)
			return chunkChan, errChan
		},
	}

	events := collectEvents(t, newTestEngine(&MockSearcher{}, completion),
		AskRequest{Question: "What was the first council?"})

	if len(events) != 3 {
		t.Fatalf("got %d events, want 2 chunks + error: %+v", len(events), events)
	}
	if events[0].Type != EventChunk || events[0].Content != "The First Council " {
		t.Errorf("first event = %+v, want the first chunk", events[0])
	}
	if events[1].Type != EventChunk || events[1].Content != "of Nicaea" {
		t.Errorf("second event = %+v, want the second chunk", events[1])
	}
	if events[2].Type != EventError || events[2].Content != GenericErrorMessage {
		t.Errorf("terminal event = %+v, want the generic error", events[2])
	}
	for _, ev := range events {
		if ev.Type == EventSources {
			t.Error("sources event emitted after generation failure")
		}
	}
}

func TestAskStream_EmptyRetrievalStillAnswers(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			return []database.Passage{}, nil
		},
	}

	events := collectEvents(t, newTestEngine(searcher, &MockCompletionProvider{}),
		AskRequest{Question: "What is the Trinity?"})

	if events[len(events)-1].Type != EventDone {
		t.Fatalf("last event = %q, want done", events[len(events)-1].Type)
	}
	sourcesEv := events[len(events)-2]
	if sourcesEv.Type != EventSources {
		t.Fatalf("second to last event = %q, want sources", sourcesEv.Type)
	}
	if len(sourcesEv.Sources) != 0 {
		t.Errorf("got %d sources from empty retrieval, want 0", len(sourcesEv.Sources))
	}
}

func TestAskStream_CancelMidGeneration(t *testing.T) {
	completion := &MockCompletionProvider{
		CompleteStreamFunc: func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, <-chan error) {
			chunkChan := make(chan llm.StreamChunk)
			errChan := make(chan error, 1)
			go func() {
				defer close(chunkChan)
				defer close(errChan)
				select {
				case chunkChan <- llm.StreamChunk{Content: "partial answer "}:
				case <-ctx.Done():
					return
				}
				// Hold the stream open until the consumer walks away.
				<-ctx.Done()
			}()
			return chunkChan, errChan
		},
	}

	e := newTestEngine(&MockSearcher{}, completion)
	stream := e.AskStream(context.Background(), AskRequest{Question: "What is the Trinity?"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, ok := stream.Next(ctx)
	if !ok || ev.Type != EventChunk {
		t.Fatalf("first event = %+v ok=%v, want a chunk", ev, ok)
	}

	stream.Close()

	// Nothing follows the abandonment: the stream drains with no
	// terminal event.
	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			break
		}
		t.Fatalf("event %+v delivered after Close", ev)
	}
}

func TestAsk_ConcatenatesChunks(t *testing.T) {
	e := newTestEngine(&MockSearcher{}, &MockCompletionProvider{})

	resp, err := e.Ask(context.Background(), AskRequest{Question: "What is the Trinity?"})
	if err != nil {
		t.Fatalf("Ask() returned error: %v", err)
	}

	if resp.Answer != "This is a streaming response." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(resp.Sources))
	}
}

func TestAsk_ReturnsTerminalError(t *testing.T) {
	searcher := &MockSearcher{
		SearchFunc: func(ctx context.Context, question string, topK int) ([]database.Passage, error) {
			return nil, errors.New("connection refused")
		},
	}
	e := newTestEngine(searcher, &MockCompletionProvider{})

	_, err := e.Ask(context.Background(), AskRequest{Question: "What is the Trinity?"})
	if !errors.Is(err, ErrQueryFailed) {
		t.Errorf("Ask() error = %v, want ErrQueryFailed", err)
	}
}
