// Package config loads and validates the greenplate configuration file.
// All cross-key references (LLM presets, vector-store keys) and backend type
// strings are resolved and checked once at load time; runtime code never
// sees an unvalidated configuration.
package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// Backend type strings accepted at load time.
var (
	supportedVectorStores = []string{"chromem", "pgvector"}
	supportedSparseTypes  = []string{"bm25"}
	supportedRerankers    = []string{"cohere", "none", ""}
	supportedAuthModes    = []string{"jwt", "disabled"}
	supportedCorpusStores = []string{"fs", "minio", ""}
)

// Config is the root configuration document.
type Config struct {
	VectorStores map[string]VectorStoreConfig `yaml:"vector_stores"`
	LLMs         map[string]LLMConfig         `yaml:"llms"`
	Nodes        NodesConfig                  `yaml:"nodes"`
	Ingestion    IngestionConfig              `yaml:"ingestion"`
	Corpus       CorpusConfig                 `yaml:"corpus"`
	Auth         AuthConfig                   `yaml:"auth"`
	Server       ServerConfig                 `yaml:"server"`
	Sync         SyncConfig                   `yaml:"sync"`
	Paths        PathsConfig                  `yaml:"paths"`
}

// VectorStoreConfig describes one named vector-store backend.
type VectorStoreConfig struct {
	// Type selects the backend: "chromem" or "pgvector".
	Type string `yaml:"type"`

	// EmbeddingModel is used at ingestion time to build partitions.
	// At query time the model always comes from the partition manifest.
	EmbeddingModel string `yaml:"embedding_model"`

	// Kwargs are backend-specific settings (e.g. pgvector DSN).
	Kwargs map[string]string `yaml:"kwargs"`

	// RetrievalKwargs are backend-specific defaults for the retrieve stage.
	RetrievalKwargs RetrievalKwargs `yaml:"retrieval_kwargs"`
}

// RetrievalKwargs holds dense search parameters.
type RetrievalKwargs struct {
	// K is the dense top-N candidate count.
	K int `yaml:"k"`
}

// LLMConfig is one named LLM preset.
type LLMConfig struct {
	ModelName     string `yaml:"model_name"`
	ModelProvider string `yaml:"model_provider"`
}

// NodesConfig holds the three pipeline-stage configurations.
type NodesConfig struct {
	AnalyzeQuery AnalyzeQueryConfig `yaml:"analyze_query"`
	Retrieve     RetrieveConfig     `yaml:"retrieve"`
	Generate     GenerateConfig     `yaml:"generate"`
}

// AnalyzeQueryConfig configures the query-analysis stage.
type AnalyzeQueryConfig struct {
	// LLM references a key in the llms section.
	LLM string `yaml:"llm"`

	// Params holds stage model parameters.
	Params StageParams `yaml:"params"`

	// Prompt is the optional prompt template filename. When empty the raw
	// question is passed directly as the structured-output input.
	Prompt string `yaml:"prompt"`
}

// GenerateConfig configures the answer-generation stage.
type GenerateConfig struct {
	// LLM references a key in the llms section.
	LLM string `yaml:"llm"`

	// Params holds stage model parameters.
	Params StageParams `yaml:"params"`

	// Prompt is the required prompt template filename.
	Prompt string `yaml:"prompt"`
}

// StageParams are per-stage model parameters.
type StageParams struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetrieveConfig configures the retrieval stage.
type RetrieveConfig struct {
	Dense    DenseConfig    `yaml:"dense"`
	Sparse   SparseConfig   `yaml:"sparse"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
	Reranker RerankerConfig `yaml:"reranker"`
}

// DenseConfig selects the dense retrieval backend.
type DenseConfig struct {
	// VectorStore references a key in the vector_stores section.
	VectorStore string `yaml:"vector_store"`

	// K overrides the vector store's retrieval_kwargs.k when positive.
	K int `yaml:"k"`
}

// SparseConfig selects and parameterises the sparse retriever.
type SparseConfig struct {
	// Type must be "bm25".
	Type string `yaml:"type"`

	// K is the sparse top-N candidate count.
	K int `yaml:"k"`
}

// EnsembleConfig holds the fusion weights.
type EnsembleConfig struct {
	// Weights is the (dense, sparse) weight pair. Must sum to 1.0.
	// Defaults to (0.5, 0.5) when omitted.
	Weights []float64 `yaml:"weights"`
}

// RerankerConfig selects and parameterises the optional reranking stage.
type RerankerConfig struct {
	// Type is "cohere" or "none"/empty to disable.
	Type string `yaml:"type"`

	// Model is the reranker model name.
	Model string `yaml:"model"`

	// TopN truncates the reranked result list.
	TopN int `yaml:"top_n"`

	// CallsPerMinute bounds the reranker call rate. The limiter is a
	// deliberate serialisation point in front of an externally
	// rate-limited service.
	CallsPerMinute int `yaml:"calls_per_minute"`
}

// IngestionConfig configures the offline ingestion path.
type IngestionConfig struct {
	// PipelineVersion is stamped on every produced chunk.
	PipelineVersion string `yaml:"pipeline_version"`

	// VectorStore references a key in the vector_stores section.
	VectorStore string `yaml:"vector_store"`

	// MinChunkTokens drops chunks shorter than this. Zero disables.
	MinChunkTokens int `yaml:"min_chunk_tokens"`
}

// CorpusConfig selects where processed chunks are persisted.
type CorpusConfig struct {
	// Type is "fs" (default) or "minio".
	Type string `yaml:"type"`

	// Kwargs are store-specific settings. Values run through environment
	// expansion, so secrets can stay out of the file.
	Kwargs map[string]string `yaml:"kwargs"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	// Mode is "jwt" or "disabled". Disabled mode grants an admin
	// principal and must never be used in production.
	Mode string `yaml:"mode"`

	// Issuer is the expected token issuer.
	Issuer string `yaml:"issuer"`

	// JWKSURL is the signing-key set endpoint. Defaults to the issuer's
	// /.well-known/jwks.json when empty.
	JWKSURL string `yaml:"jwks_url"`

	// ClientID is the app client the token must be issued for.
	ClientID string `yaml:"client_id"`

	// RequiredGroup is the group required to call /ask.
	RequiredGroup string `yaml:"required_group"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `yaml:"addr"`
}

// SyncConfig configures corpus-asset download from the remote dataset repo.
type SyncConfig struct {
	// DatasetRepo is the remote dataset repository id.
	DatasetRepo string `yaml:"dataset_repo"`

	// Revision is the dataset revision (default "main").
	Revision string `yaml:"revision"`
}

// PathsConfig locates on-disk artifacts.
type PathsConfig struct {
	// ArtifactsDir is the root for index partitions and documents
	// (default "artifacts").
	ArtifactsDir string `yaml:"artifacts_dir"`

	// PromptsDir holds prompt template files (default "prompts").
	PromptsDir string `yaml:"prompts_dir"`
}

// Load reads, parses and validates the configuration file.
// Any validation failure is fatal: unknown backend types and dangling
// cross-references are configuration errors, surfaced now rather than at
// first query.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Nodes.Retrieve.Ensemble.Weights) == 0 {
		c.Nodes.Retrieve.Ensemble.Weights = []float64{0.5, 0.5}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Sync.Revision == "" {
		c.Sync.Revision = "main"
	}
	if c.Paths.ArtifactsDir == "" {
		c.Paths.ArtifactsDir = "artifacts"
	}
	if c.Paths.PromptsDir == "" {
		c.Paths.PromptsDir = "prompts"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "jwt"
	}
	if c.Corpus.Type == "" {
		c.Corpus.Type = "fs"
	}
}

func (c *Config) validate() error {
	for key, vs := range c.VectorStores {
		if !slices.Contains(supportedVectorStores, vs.Type) {
			return fmt.Errorf("%w: vector store %q has unsupported type %q",
				domain.ErrInvalidConfig, key, vs.Type)
		}
		if vs.EmbeddingModel == "" {
			return fmt.Errorf("%w: vector store %q has no embedding_model",
				domain.ErrInvalidConfig, key)
		}
	}

	if err := c.validateNodes(); err != nil {
		return err
	}

	if c.Ingestion.VectorStore != "" {
		if _, ok := c.VectorStores[c.Ingestion.VectorStore]; !ok {
			return fmt.Errorf("%w: ingestion references unknown vector store %q",
				domain.ErrInvalidConfig, c.Ingestion.VectorStore)
		}
	}
	if c.Ingestion.PipelineVersion == "" {
		return fmt.Errorf("%w: ingestion.pipeline_version is required", domain.ErrInvalidConfig)
	}

	if !slices.Contains(supportedCorpusStores, c.Corpus.Type) {
		return fmt.Errorf("%w: unsupported corpus store type %q", domain.ErrInvalidConfig, c.Corpus.Type)
	}

	if !slices.Contains(supportedAuthModes, c.Auth.Mode) {
		return fmt.Errorf("%w: unsupported auth mode %q", domain.ErrInvalidConfig, c.Auth.Mode)
	}
	if c.Auth.Mode == "jwt" && (c.Auth.Issuer == "" || c.Auth.ClientID == "") {
		return fmt.Errorf("%w: auth mode jwt requires issuer and client_id", domain.ErrInvalidConfig)
	}

	return nil
}

func (c *Config) validateNodes() error {
	aq := c.Nodes.AnalyzeQuery
	if _, ok := c.LLMs[aq.LLM]; !ok {
		return fmt.Errorf("%w: analyze_query references unknown llm %q",
			domain.ErrInvalidConfig, aq.LLM)
	}

	gen := c.Nodes.Generate
	if _, ok := c.LLMs[gen.LLM]; !ok {
		return fmt.Errorf("%w: generate references unknown llm %q",
			domain.ErrInvalidConfig, gen.LLM)
	}
	if gen.Prompt == "" {
		return fmt.Errorf("%w: generate.prompt is required", domain.ErrInvalidConfig)
	}

	ret := c.Nodes.Retrieve
	if _, ok := c.VectorStores[ret.Dense.VectorStore]; !ok {
		return fmt.Errorf("%w: retrieve.dense references unknown vector store %q",
			domain.ErrInvalidConfig, ret.Dense.VectorStore)
	}
	if !slices.Contains(supportedSparseTypes, ret.Sparse.Type) {
		return fmt.Errorf("%w: unsupported sparse retriever type %q",
			domain.ErrInvalidConfig, ret.Sparse.Type)
	}
	if !slices.Contains(supportedRerankers, ret.Reranker.Type) {
		return fmt.Errorf("%w: unsupported reranker type %q",
			domain.ErrInvalidConfig, ret.Reranker.Type)
	}

	w := ret.Ensemble.Weights
	if len(w) != 2 {
		return fmt.Errorf("%w: ensemble.weights must hold exactly two values",
			domain.ErrInvalidConfig)
	}
	const eps = 1e-9
	if sum := w[0] + w[1]; sum < 1.0-eps || sum > 1.0+eps {
		return fmt.Errorf("%w: ensemble weights must sum to 1.0, got %.3f",
			domain.ErrInvalidConfig, sum)
	}

	return nil
}

// DenseK resolves the dense candidate count: the retrieve node's override
// when set, otherwise the selected vector store's retrieval kwargs, with a
// final fallback of 10.
func (c *Config) DenseK() int {
	if k := c.Nodes.Retrieve.Dense.K; k > 0 {
		return k
	}
	vs := c.VectorStores[c.Nodes.Retrieve.Dense.VectorStore]
	if vs.RetrievalKwargs.K > 0 {
		return vs.RetrievalKwargs.K
	}
	return 10
}

// SparseK resolves the sparse candidate count, defaulting to DenseK.
func (c *Config) SparseK() int {
	if k := c.Nodes.Retrieve.Sparse.K; k > 0 {
		return k
	}
	return c.DenseK()
}
