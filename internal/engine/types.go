//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package engine answers questions over an indexed document corpus. Each
// question runs through a fixed lifecycle: condense the question against the
// conversation history, retrieve passages from the vector index, generate a
// streamed answer grounded in those passages, then resolve source citations.
package engine

import "encoding/json"

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a message in the conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// AskRequest represents a question to answer.
type AskRequest struct {
	Question string    `json:"question"`
	Stream   bool      `json:"stream,omitempty"`
	History  []Message `json:"history,omitempty"`
	Profile  Profile   `json:"profile,omitempty"`
}

// AskResponse represents a non-streaming answer.
type AskResponse struct {
	Answer  string           `json:"answer"`
	Sources []SourceCitation `json:"sources_with_scores"`
}

// Query carries one question through the lifecycle. EffectiveQuestion is
// the condensed standalone form, or the raw question when no condensation
// ran. A Query is built once per request and not mutated afterwards.
type Query struct {
	ID                string
	RawQuestion       string
	EffectiveQuestion string
	History           []Message
	Profile           Profile
}

// SourceCitation identifies one source document backing an answer.
type SourceCitation struct {
	FileName     string  `json:"file_name"`
	FilePath     string  `json:"file_path"`
	RelativePath string  `json:"relative_path"`
	SourceFolder string  `json:"source_folder"`
	Score        float64 `json:"score"`
}

// Stream event types.
const (
	EventChunk   = "chunk"
	EventSources = "sources"
	EventDone    = "done"
	EventError   = "error"
)

// StreamEvent represents one event in the answer stream. Every query emits
// zero or more chunk events followed by exactly one terminal sequence:
// a sources event then done on success, or a single error event on failure.
type StreamEvent struct {
	Type    string           `json:"type"`
	Content string           `json:"content,omitempty"` // chunk text or user-safe error message
	Sources []SourceCitation `json:"sources_with_scores,omitempty"`
}

// MarshalJSON keeps the sources_with_scores key on sources events even when
// no citation survived resolution; clients rely on the key being present.
// Other event types omit it as usual.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	if e.Type == EventSources {
		sources := e.Sources
		if sources == nil {
			sources = []SourceCitation{}
		}
		return json.Marshal(struct {
			Type    string           `json:"type"`
			Sources []SourceCitation `json:"sources_with_scores"`
		}{e.Type, sources})
	}

	type event StreamEvent
	return json.Marshal(event(e))
}
