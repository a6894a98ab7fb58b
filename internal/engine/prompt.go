//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import "strings"

// DefaultSystemPrompt grounds answers in the retrieved context. Operators
// can replace it via the engine.system_prompt configuration key.
const DefaultSystemPrompt = `You are a careful assistant that answers questions using only the provided context documents.
If the context does not contain enough information to answer, say so plainly rather than guessing.
When you draw on a document, mention its source.`

// PromptBuilder produces the system prompt for answer generation.
type PromptBuilder struct {
	base string
}

// NewPromptBuilder creates a PromptBuilder. An empty base selects
// DefaultSystemPrompt.
func NewPromptBuilder(base string) *PromptBuilder {
	if base == "" {
		base = DefaultSystemPrompt
	}
	return &PromptBuilder{base: base}
}

// Build returns the system prompt adjusted for the reader profile. Build is
// pure and deterministic; it never fails, whatever the profile holds.
func (b *PromptBuilder) Build(profile Profile) string {
	var sb strings.Builder

	sb.WriteString(b.base)
	sb.WriteString("\n\nReader profile:\n- ")
	sb.WriteString(axisFragment(ageRegisterFragments, profile.AgeRegister, DefaultAgeRegister))
	sb.WriteString("\n- ")
	sb.WriteString(axisFragment(knowledgeLevelFragments, profile.KnowledgeLevel, DefaultKnowledgeLevel))
	sb.WriteString("\n- ")
	sb.WriteString(axisFragment(responseLengthFragments, profile.ResponseLength, DefaultResponseLength))

	return sb.String()
}
