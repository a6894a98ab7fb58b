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
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/catenadev/catena-rag-server/internal/database"
)

// GenericErrorMessage is the only failure text that reaches a client.
// Internal detail goes to the log, never the wire.
const GenericErrorMessage = "An error occurred while processing your question."

// ErrQueryFailed is returned by Ask when the query terminates with an
// error event.
var ErrQueryFailed = errors.New(GenericErrorMessage)

// Searcher is the retrieval surface the engine needs. *index.Accessor
// implements it.
type Searcher interface {
	Search(ctx context.Context, question string, topK int) ([]database.Passage, error)
}

// Engine answers questions over the indexed corpus.
type Engine struct {
	searcher  Searcher
	condenser *Condenser
	prompts   *PromptBuilder
	generator *Generator
	topK      int
	topN      int
	logger    *slog.Logger
}

// EngineConfig contains the dependencies for creating an Engine.
type EngineConfig struct {
	Searcher  Searcher
	Condenser *Condenser
	Prompts   *PromptBuilder
	Generator *Generator
	TopK      int
	TopN      int
	Logger    *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		searcher:  cfg.Searcher,
		condenser: cfg.Condenser,
		prompts:   cfg.Prompts,
		generator: cfg.Generator,
		topK:      cfg.TopK,
		topN:      cfg.TopN,
		logger:    logger,
	}
}

// AskStream answers req as an ordered event stream. A producer goroutine
// walks the query lifecycle; the caller consumes events with Stream.Next
// and must call Stream.Close when done with the stream.
func (e *Engine) AskStream(ctx context.Context, req AskRequest) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	stream := &Stream{
		events: make(chan StreamEvent),
		cancel: cancel,
	}

	go e.run(ctx, req, stream.events)

	return stream
}

// Ask is the non-streaming form: it consumes its own stream and returns the
// concatenated answer with its sources, or the terminal error.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	stream := e.AskStream(ctx, req)
	defer stream.Close()

	var answer strings.Builder
	var sources []SourceCitation

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			break
		}

		switch ev.Type {
		case EventChunk:
			answer.WriteString(ev.Content)
		case EventSources:
			sources = ev.Sources
		case EventError:
			return nil, ErrQueryFailed
		case EventDone:
			return &AskResponse{
				Answer:  answer.String(),
				Sources: sources,
			}, nil
		}
	}

	// The stream ended without a terminal event, so the context is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrQueryFailed
}

// run walks one query through the lifecycle, emitting events as it goes.
// Exactly one terminal event is emitted unless the consumer walks away.
func (e *Engine) run(ctx context.Context, req AskRequest, events chan<- StreamEvent) {
	defer close(events)

	query := &Query{
		ID:          shortQueryID(),
		RawQuestion: req.Question,
		History:     req.History,
		Profile:     req.Profile,
	}

	logger := e.logger.With("query_id", query.ID)
	logger.Debug("answering question",
		"history_messages", len(query.History),
	)

	lc := NewLifecycle()
	advance := func(to State) {
		// The walk below is strictly forward; a failure here is a
		// programming error, not a runtime condition.
		if err := lc.Advance(to); err != nil {
			logger.Error("lifecycle violation", "error", err)
		}
	}

	advance(StateCondensing)
	query.EffectiveQuestion = e.condenser.Condense(ctx, query.RawQuestion, query.History)

	advance(StateRetrieving)
	passages, err := e.searcher.Search(ctx, query.EffectiveQuestion, e.topK)
	if err != nil {
		logger.Error("retrieval failed", "error", err)
		advance(StateTerminated)
		e.emit(ctx, events, StreamEvent{Type: EventError, Content: GenericErrorMessage})
		return
	}
	logger.Debug("passages retrieved", "count", len(passages))

	advance(StateGenerating)
	fragments := e.generator.Generate(ctx, e.prompts.Build(query.Profile), query.EffectiveQuestion, passages)
	defer fragments.Close()

	for {
		fragment, err := fragments.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			// Chunks already emitted stand; the error event is terminal
			// and no sources follow.
			logger.Error("generation failed", "error", err)
			advance(StateTerminated)
			e.emit(ctx, events, StreamEvent{Type: EventError, Content: GenericErrorMessage})
			return
		}
		if !e.emit(ctx, events, StreamEvent{Type: EventChunk, Content: fragment}) {
			return
		}
	}

	advance(StateResolving)
	sources := ResolveSources(passages, e.topN)
	if !e.emit(ctx, events, StreamEvent{Type: EventSources, Sources: sources}) {
		return
	}

	advance(StateTerminated)
	e.emit(ctx, events, StreamEvent{Type: EventDone})
	logger.Debug("query complete", "sources", len(sources))
}

// emit hands one event to the consumer. Returns false when the consumer is
// gone and the query should stop. Once the context is done no event is
// delivered, even if the consumer is still reading.
func (e *Engine) emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// shortQueryID returns a compact ID for log correlation.
func shortQueryID() string {
	return uuid.NewString()[:8]
}
