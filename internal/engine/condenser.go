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
	"strings"
	"time"
	"unicode/utf8"

	"github.com/catenadev/catena-rag-server/internal/llm"
)

const (
	// condenseMessageLimit bounds each history message in the prompt,
	// counted in characters, not bytes.
	condenseMessageLimit = 500

	// condenseMinLength is the shortest model output, in characters,
	// accepted as a standalone question.
	condenseMinLength = 5
)

// condenseLabel is the cue the prompt ends with; models sometimes echo it
// back at the start of their output.
const condenseLabel = "standalone question:"

// Condenser rewrites a follow-up question into a standalone one using the
// conversation history. Condensation never fails the query: any model
// problem falls back to the raw question.
type Condenser struct {
	provider     llm.CompletionProvider
	maxExchanges int
	timeout      time.Duration
	logger       *slog.Logger
}

// NewCondenser creates a Condenser. maxExchanges bounds how many recent
// user/assistant pairs the rewrite may see.
func NewCondenser(provider llm.CompletionProvider, maxExchanges int, timeout time.Duration, logger *slog.Logger) *Condenser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Condenser{
		provider:     provider,
		maxExchanges: maxExchanges,
		timeout:      timeout,
		logger:       logger,
	}
}

// Condense returns a standalone form of rawQuestion. With an empty history
// the raw question is returned unchanged and no model call is made.
func (c *Condenser) Condense(ctx context.Context, rawQuestion string, history []Message) string {
	if len(history) == 0 {
		return rawQuestion
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: RoleUser, Content: c.buildPrompt(rawQuestion, history)},
		},
		// Rewriting must be deterministic.
		Temperature: 0,
	})
	if err != nil {
		c.logger.Warn("question condensation failed, using raw question", "error", err)
		return rawQuestion
	}

	condensed := cleanCondensedOutput(resp.Content)
	if utf8.RuneCountInString(condensed) <= condenseMinLength {
		c.logger.Warn("question condensation produced a degenerate result, using raw question",
			"result", condensed)
		return rawQuestion
	}

	return condensed
}

// buildPrompt assembles the rewrite prompt from the most recent history.
func (c *Condenser) buildPrompt(rawQuestion string, history []Message) string {
	window := history
	if limit := 2 * c.maxExchanges; len(window) > limit {
		window = window[len(window)-limit:]
	}

	var b strings.Builder
	b.WriteString("Given the following conversation and a follow-up question, " +
		"rewrite the follow-up question to be a standalone question that " +
		"includes all context needed to understand it.\n\nConversation:\n")

	for _, m := range window {
		content := m.Content
		// Slice runes, not bytes: byte truncation would cut multibyte
		// content short and could split a rune mid-sequence.
		if r := []rune(content); len(r) > condenseMessageLimit {
			content = string(r[:condenseMessageLimit]) + "..."
		}
		label := "User"
		if m.Role == RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, content)
	}

	fmt.Fprintf(&b, "\nFollow-up question: %s\n\nStandalone question:", rawQuestion)

	return b.String()
}

// cleanCondensedOutput normalizes the model's rewrite: trims whitespace,
// strips one pair of wrapping quotes and strips an echoed label.
func cleanCondensedOutput(raw string) string {
	s := strings.TrimSpace(raw)

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}

	if len(s) >= len(condenseLabel) && strings.EqualFold(s[:len(condenseLabel)], condenseLabel) {
		s = strings.TrimSpace(s[len(condenseLabel):])
	}

	return s
}
