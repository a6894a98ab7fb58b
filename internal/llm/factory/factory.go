//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package factory provides functions to create LLM providers from configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/catenadev/catena-rag-server/internal/config"
	"github.com/catenadev/catena-rag-server/internal/llm"
	"github.com/catenadev/catena-rag-server/internal/llm/anthropic"
	"github.com/catenadev/catena-rag-server/internal/llm/ollama"
	"github.com/catenadev/catena-rag-server/internal/llm/openai"
	"github.com/catenadev/catena-rag-server/internal/llm/voyage"
)

// Provider constants for matching configuration values.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVoyage    = "voyage"
	ProviderOllama    = "ollama"
)

// NewEmbeddingProvider creates an embedding provider based on configuration.
// A positive timeout (seconds) overrides the provider's default HTTP timeout.
func NewEmbeddingProvider(
	providerType string,
	model string,
	timeout int,
	apiKeys *config.LoadedKeys,
) (llm.EmbeddingProvider, error) {
	provider := strings.ToLower(providerType)

	switch provider {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		clientOpts := []openai.ClientOption{}
		if timeout > 0 {
			clientOpts = append(clientOpts, openai.WithTimeout(timeout))
		}
		client := openai.NewClient(apiKeys.OpenAI, clientOpts...)
		opts := []openai.EmbeddingOption{openai.WithEmbeddingClient(client)}
		if model != "" {
			opts = append(opts, openai.WithEmbeddingModel(model))
		}
		return openai.NewEmbeddingProvider(apiKeys.OpenAI, opts...), nil

	case ProviderVoyage:
		if apiKeys.Voyage == "" {
			return nil, fmt.Errorf("Voyage API key not configured")
		}
		opts := []voyage.EmbeddingOption{}
		if timeout > 0 {
			opts = append(opts, voyage.WithTimeout(timeout))
		}
		if model != "" {
			opts = append(opts, voyage.WithModel(model))
		}
		return voyage.NewEmbeddingProvider(apiKeys.Voyage, opts...), nil

	case ProviderOllama:
		clientOpts := []ollama.ClientOption{}
		if timeout > 0 {
			clientOpts = append(clientOpts, ollama.WithTimeout(timeout))
		}
		opts := []ollama.EmbeddingOption{
			ollama.WithEmbeddingClient(ollama.NewClient(clientOpts...)),
		}
		if model != "" {
			opts = append(opts, ollama.WithEmbeddingModel(model))
		}
		return ollama.NewEmbeddingProvider(opts...), nil

	case ProviderAnthropic:
		return nil, fmt.Errorf("Anthropic does not provide an embedding API")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", providerType)
	}
}

// NewCompletionProvider creates a completion provider based on configuration.
// A positive timeout (seconds) overrides the provider's default HTTP timeout.
func NewCompletionProvider(
	providerType string,
	model string,
	timeout int,
	apiKeys *config.LoadedKeys,
) (llm.CompletionProvider, error) {
	provider := strings.ToLower(providerType)

	switch provider {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		clientOpts := []openai.ClientOption{}
		if timeout > 0 {
			clientOpts = append(clientOpts, openai.WithTimeout(timeout))
		}
		client := openai.NewClient(apiKeys.OpenAI, clientOpts...)
		opts := []openai.CompletionOption{openai.WithCompletionClient(client)}
		if model != "" {
			opts = append(opts, openai.WithCompletionModel(model))
		}
		return openai.NewCompletionProvider(apiKeys.OpenAI, opts...), nil

	case ProviderAnthropic:
		if apiKeys.Anthropic == "" {
			return nil, fmt.Errorf("Anthropic API key not configured")
		}
		clientOpts := []anthropic.ClientOption{}
		if timeout > 0 {
			clientOpts = append(clientOpts, anthropic.WithTimeout(timeout))
		}
		client := anthropic.NewClient(apiKeys.Anthropic, clientOpts...)
		opts := []anthropic.CompletionOption{anthropic.WithCompletionClient(client)}
		if model != "" {
			opts = append(opts, anthropic.WithCompletionModel(model))
		}
		return anthropic.NewCompletionProvider(apiKeys.Anthropic, opts...), nil

	case ProviderOllama:
		clientOpts := []ollama.ClientOption{}
		if timeout > 0 {
			clientOpts = append(clientOpts, ollama.WithTimeout(timeout))
		}
		opts := []ollama.CompletionOption{
			ollama.WithCompletionClient(ollama.NewClient(clientOpts...)),
		}
		if model != "" {
			opts = append(opts, ollama.WithCompletionModel(model))
		}
		return ollama.NewCompletionProvider(opts...), nil

	case ProviderVoyage:
		return nil, fmt.Errorf("Voyage does not provide a completion API")

	default:
		return nil, fmt.Errorf("unknown completion provider: %s", providerType)
	}
}
