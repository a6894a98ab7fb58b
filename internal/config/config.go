//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration loading and validation for the
// Catena RAG Server.
package config

// Config is the root configuration structure for the server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	APIKeys APIKeysConfig `yaml:"api_keys"`
	Engine  EngineConfig  `yaml:"engine"`
}

// APIKeysConfig contains paths to files containing API keys for LLM providers.
// If not specified, keys are loaded from environment variables or default
// file locations (~/.anthropic-api-key, ~/.openai-api-key, ~/.voyage-api-key).
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"` // Path to file containing Anthropic API key
	OpenAI    string `yaml:"openai"`    // Path to file containing OpenAI API key
	Voyage    string `yaml:"voyage"`    // Path to file containing Voyage API key
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddress string     `yaml:"listen_address"`
	Port          int        `yaml:"port"`
	TLS           TLSConfig  `yaml:"tls"`
	CORS          CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Origins to allow, or ["*"] for all
}

// TLSConfig contains TLS/HTTPS settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// EngineConfig defines the retrieval-augmented query engine: the vector
// collection it answers from, the two LLM roles it depends on, and the
// tuning knobs for condensation, retrieval, and generation.
type EngineConfig struct {
	Description  string           `yaml:"description"`
	Database     DatabaseConfig   `yaml:"database"`
	Collection   CollectionConfig `yaml:"collection"`
	EmbeddingLLM LLMConfig        `yaml:"embedding_llm"` // Query-side embedding provider
	RAGLLM       LLMConfig        `yaml:"rag_llm"`       // Condensation and answer provider
	APIKeys      APIKeysConfig    `yaml:"api_keys"`      // Engine-specific API key paths

	QueryPrefix     string  `yaml:"query_prefix"`     // Prepended to questions before embedding
	TopK            int     `yaml:"top_k"`            // Passages retrieved per query
	TopN            int     `yaml:"top_n"`            // Passages considered for citations
	TokenBudget     int     `yaml:"token_budget"`     // Approximate context size for generation
	MaxHistory      int     `yaml:"max_history"`      // Most recent history messages accepted per request
	MaxExchanges    int     `yaml:"max_exchanges"`    // User/assistant pairs the condenser sees
	CondenseTimeout int     `yaml:"condense_timeout"` // Seconds
	GenerateTimeout int     `yaml:"generate_timeout"` // Seconds
	Temperature     float64 `yaml:"temperature"`
	SystemPrompt    string  `yaml:"system_prompt"` // Custom base instructions for the LLM
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	// Certificate-based authentication
	SSLCert   string `yaml:"ssl_cert"`
	SSLKey    string `yaml:"ssl_key"`
	SSLRootCA string `yaml:"ssl_root_ca"`
}

// CollectionConfig maps the pre-indexed vector collection to its table and
// columns. The name, path, and metadata columns are optional; citations
// degrade gracefully when they are absent.
type CollectionConfig struct {
	Table          string `yaml:"table"`
	TextColumn     string `yaml:"text_column"`
	VectorColumn   string `yaml:"vector_column"`
	NameColumn     string `yaml:"name_column"`     // Source file name for citations
	PathColumn     string `yaml:"path_column"`     // Source file path for citations
	MetadataColumn string `yaml:"metadata_column"` // JSONB column with indexing-time metadata
}

// LLMConfig contains settings for an LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Engine tuning defaults. These are seeded by DefaultConfig before the YAML
// file is applied, so explicit zero values in the file are honored.
const (
	DefaultQueryPrefix     = "query: "
	DefaultTopK            = 8
	DefaultTopN            = 5
	DefaultTokenBudget     = 4000
	DefaultMaxHistory      = 20
	DefaultMaxExchanges    = 3
	DefaultCondenseTimeout = 300
	DefaultGenerateTimeout = 300
	DefaultTemperature     = 0.7
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "0.0.0.0",
			Port:          8080,
			TLS: TLSConfig{
				Enabled: false,
			},
		},
		Engine: EngineConfig{
			Database: DatabaseConfig{
				Port:    5432,
				SSLMode: "prefer",
			},
			QueryPrefix:     DefaultQueryPrefix,
			TopK:            DefaultTopK,
			TopN:            DefaultTopN,
			TokenBudget:     DefaultTokenBudget,
			MaxHistory:      DefaultMaxHistory,
			MaxExchanges:    DefaultMaxExchanges,
			CondenseTimeout: DefaultCondenseTimeout,
			GenerateTimeout: DefaultGenerateTimeout,
			Temperature:     DefaultTemperature,
		},
	}
}
