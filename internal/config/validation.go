//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns all validation
// errors found.
func (c *Config) Validate() error {
	var errs ValidationErrors

	// Validate server config
	errs = append(errs, c.validateServer()...)

	// Validate the engine
	errs = append(errs, c.validateEngine()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateServer validates server configuration.
func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			errs = append(errs, ValidationError{
				Field:   "server.tls.cert_file",
				Message: "required when TLS is enabled",
			})
		} else if _, err := os.Stat(expandPath(c.Server.TLS.CertFile)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.tls.cert_file",
				Message: fmt.Sprintf("file not found: %s", c.Server.TLS.CertFile),
			})
		}

		if c.Server.TLS.KeyFile == "" {
			errs = append(errs, ValidationError{
				Field:   "server.tls.key_file",
				Message: "required when TLS is enabled",
			})
		} else if _, err := os.Stat(expandPath(c.Server.TLS.KeyFile)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.tls.key_file",
				Message: fmt.Sprintf("file not found: %s", c.Server.TLS.KeyFile),
			})
		}
	}

	return errs
}

// validateEngine validates the engine configuration.
func (c *Config) validateEngine() ValidationErrors {
	var errs ValidationErrors
	e := c.Engine

	// Database validation
	errs = append(errs, c.validateDatabase("engine.database", e.Database)...)

	// Collection validation
	errs = append(errs, c.validateCollection("engine.collection", e.Collection)...)

	// LLM validation
	errs = append(errs, c.validateLLM("engine.embedding_llm", e.EmbeddingLLM,
		[]string{"openai", "voyage", "ollama"})...)
	errs = append(errs, c.validateLLM("engine.rag_llm", e.RAGLLM,
		[]string{"anthropic", "openai", "ollama"})...)

	// Retrieval breadth validation
	if e.TopK < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.top_k",
			Message: "must be positive",
		})
	}

	// Citation breadth validation
	if e.TopN < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.top_n",
			Message: "must be positive",
		})
	}

	// Token budget validation
	if e.TokenBudget < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.token_budget",
			Message: "must be positive",
		})
	}

	// History bounds validation
	if e.MaxHistory < 0 {
		errs = append(errs, ValidationError{
			Field:   "engine.max_history",
			Message: "must be non-negative",
		})
	}
	if e.MaxExchanges < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.max_exchanges",
			Message: "must be positive",
		})
	}

	// Timeout validation
	if e.CondenseTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.condense_timeout",
			Message: "must be positive",
		})
	}
	if e.GenerateTimeout < 1 {
		errs = append(errs, ValidationError{
			Field:   "engine.generate_timeout",
			Message: "must be positive",
		})
	}

	// Temperature validation
	if e.Temperature < 0 || e.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "engine.temperature",
			Message: "must be between 0 and 2",
		})
	}

	return errs
}

// validateDatabase validates database configuration.
func (c *Config) validateDatabase(prefix string, db DatabaseConfig) ValidationErrors {
	var errs ValidationErrors

	if db.Host == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".host",
			Message: "required",
		})
	}

	if db.Database == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".database",
			Message: "required",
		})
	}

	if db.Port < 1 || db.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".port",
			Message: "must be between 1 and 65535",
		})
	}

	// Validate SSL mode
	validSSLModes := map[string]bool{
		"disable":     true,
		"allow":       true,
		"prefer":      true,
		"require":     true,
		"verify-ca":   true,
		"verify-full": true,
	}
	if db.SSLMode != "" && !validSSLModes[db.SSLMode] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".ssl_mode",
			Message: "must be one of: disable, allow, prefer, require, verify-ca, verify-full",
		})
	}

	return errs
}

// validateCollection validates the vector collection mapping.
func (c *Config) validateCollection(prefix string, col CollectionConfig) ValidationErrors {
	var errs ValidationErrors

	if col.Table == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".table",
			Message: "required",
		})
	}

	if col.TextColumn == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".text_column",
			Message: "required",
		})
	}

	if col.VectorColumn == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".vector_column",
			Message: "required",
		})
	}

	return errs
}

// validateLLM validates LLM configuration (required fields).
func (c *Config) validateLLM(prefix string, llm LLMConfig, validProviders []string) ValidationErrors {
	var errs ValidationErrors

	if llm.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".provider",
			Message: "required",
		})
	} else {
		provider := strings.ToLower(llm.Provider)
		valid := false
		for _, vp := range validProviders {
			if provider == vp {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, ValidationError{
				Field:   prefix + ".provider",
				Message: fmt.Sprintf("must be one of: %s", strings.Join(validProviders, ", ")),
			})
		}
	}

	if llm.Model == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".model",
			Message: "required",
		})
	}

	return errs
}
