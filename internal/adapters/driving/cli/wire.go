package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/greenplate-labs/greenplate/internal/adapters/driven/auth/jwks"
	"github.com/greenplate-labs/greenplate/internal/adapters/driven/corpus/fs"
	"github.com/greenplate-labs/greenplate/internal/adapters/driven/corpus/object"
	openaiembed "github.com/greenplate-labs/greenplate/internal/adapters/driven/embedding/openai"
	pdfloader "github.com/greenplate-labs/greenplate/internal/adapters/driven/loader/pdf"
	sqliteloader "github.com/greenplate-labs/greenplate/internal/adapters/driven/loader/sqlite"
	webloader "github.com/greenplate-labs/greenplate/internal/adapters/driven/loader/web"
	openaillm "github.com/greenplate-labs/greenplate/internal/adapters/driven/llm/openai"
	"github.com/greenplate-labs/greenplate/internal/adapters/driven/rerank/cohere"
	"github.com/greenplate-labs/greenplate/internal/adapters/driven/sparse/bm25"
	chromembackend "github.com/greenplate-labs/greenplate/internal/adapters/driven/vector/chromem"
	pgvectorbackend "github.com/greenplate-labs/greenplate/internal/adapters/driven/vector/pgvector"
	"github.com/greenplate-labs/greenplate/internal/config"
	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driving"
	"github.com/greenplate-labs/greenplate/internal/core/services"
	"github.com/greenplate-labs/greenplate/internal/processors"
)

// kwarg reads a backend kwarg with environment expansion, so config files
// can carry "${PG_DSN}" instead of secrets.
func kwarg(kwargs map[string]string, key string) string {
	return os.ExpandEnv(kwargs[key])
}

// buildVectorBackend resolves the named vector store to a backend.
// Unknown types are unreachable here: config validation rejects them.
func buildVectorBackend(ctx context.Context, storeKey string) (driven.VectorBackend, error) {
	vs := cfg.VectorStores[storeKey]
	switch vs.Type {
	case "chromem":
		return chromembackend.NewBackend(filepath.Join(cfg.Paths.ArtifactsDir, "vectorstores")), nil
	case "pgvector":
		return pgvectorbackend.NewBackend(ctx, kwarg(vs.Kwargs, "conn_string"))
	default:
		return nil, fmt.Errorf("%w: unsupported vector store type %q", domain.ErrInvalidConfig, vs.Type)
	}
}

// buildCorpusStore resolves the configured corpus store.
func buildCorpusStore(ctx context.Context) (driven.CorpusStore, error) {
	switch cfg.Corpus.Type {
	case "", "fs":
		return fs.NewStore(filepath.Join(cfg.Paths.ArtifactsDir, "documents")), nil
	case "minio":
		return object.NewStore(ctx, object.Config{
			Endpoint:  kwarg(cfg.Corpus.Kwargs, "endpoint"),
			AccessKey: kwarg(cfg.Corpus.Kwargs, "access_key"),
			SecretKey: kwarg(cfg.Corpus.Kwargs, "secret_key"),
			Bucket:    kwarg(cfg.Corpus.Kwargs, "bucket"),
			UseSSL:    parseBoolKwarg(cfg.Corpus.Kwargs, "use_ssl"),
		})
	default:
		return nil, fmt.Errorf("%w: unsupported corpus store type %q", domain.ErrInvalidConfig, cfg.Corpus.Type)
	}
}

// buildEmbedder creates the embedding service for the named vector store's
// configured model.
func buildEmbedder(storeKey string) (driven.EmbeddingService, error) {
	vs := cfg.VectorStores[storeKey]
	return openaiembed.NewService(os.Getenv("OPENAI_API_KEY"), vs.EmbeddingModel)
}

// buildLLM creates the language model service for the named preset.
func buildLLM(presetKey string) (driven.LLMService, error) {
	preset, ok := cfg.LLMs[presetKey]
	if !ok {
		return nil, fmt.Errorf("%w: unknown llm preset %q", domain.ErrInvalidConfig, presetKey)
	}
	switch preset.ModelProvider {
	case "", "openai":
		return openaillm.NewService(os.Getenv("OPENAI_API_KEY"), preset.ModelName)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", domain.ErrInvalidConfig, preset.ModelProvider)
	}
}

// buildReranker creates the optional reranker.
func buildReranker() (driven.Reranker, error) {
	rr := cfg.Nodes.Retrieve.Reranker
	switch rr.Type {
	case "", "none":
		return nil, nil
	case "cohere":
		return cohere.NewReranker(cohere.Config{
			APIKey:         os.Getenv("COHERE_API_KEY"),
			Model:          rr.Model,
			CallsPerMinute: rr.CallsPerMinute,
		})
	default:
		return nil, fmt.Errorf("%w: unsupported reranker type %q", domain.ErrInvalidConfig, rr.Type)
	}
}

// buildVerifier creates the token verifier, or nil when auth is disabled.
func buildVerifier() (driven.TokenVerifier, error) {
	if cfg.Auth.Mode == "disabled" {
		return nil, nil
	}
	jwksURL := cfg.Auth.JWKSURL
	if jwksURL == "" {
		jwksURL = cfg.Auth.Issuer + "/.well-known/jwks.json"
	}
	return jwks.NewVerifier(jwks.Config{
		JWKSURL:  jwksURL,
		Issuer:   cfg.Auth.Issuer,
		ClientID: cfg.Auth.ClientID,
	})
}

// buildRetriever loads the merged index partition and the corpus, builds the
// keyword index over the corpus, and assembles the hybrid retriever.
func buildRetriever(ctx context.Context) (driving.Retriever, error) {
	storeKey := cfg.Nodes.Retrieve.Dense.VectorStore
	backend, err := buildVectorBackend(ctx, storeKey)
	if err != nil {
		return nil, err
	}

	index, err := backend.Load(ctx, services.MergedPartition, cfg.VectorStores[storeKey].EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("load serving index: %w", err)
	}

	// The query embedder must match the model the partition was built
	// with, which the manifest pins.
	embedder, err := openaiembed.NewService(os.Getenv("OPENAI_API_KEY"), index.EmbeddingModel())
	if err != nil {
		return nil, err
	}

	corpus, err := buildCorpusStore(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := corpus.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus for keyword index: %w", err)
	}

	reranker, err := buildReranker()
	if err != nil {
		return nil, err
	}

	weights := cfg.Nodes.Retrieve.Ensemble.Weights
	return services.NewHybridRetriever(services.HybridRetrieverConfig{
		Dense:        index,
		Embedder:     embedder,
		Sparse:       bm25.NewIndex(chunks),
		Reranker:     reranker,
		DenseWeight:  weights[0],
		SparseWeight: weights[1],
		DenseK:       cfg.DenseK(),
		SparseK:      cfg.SparseK(),
		RerankTopN:   cfg.Nodes.Retrieve.Reranker.TopN,
	})
}

// buildPipeline assembles the full serving pipeline.
func buildPipeline(ctx context.Context) (driving.AskService, error) {
	retriever, err := buildRetriever(ctx)
	if err != nil {
		return nil, err
	}

	analyzeLLM, err := buildLLM(cfg.Nodes.AnalyzeQuery.LLM)
	if err != nil {
		return nil, err
	}
	generateLLM, err := buildLLM(cfg.Nodes.Generate.LLM)
	if err != nil {
		return nil, err
	}

	return services.NewRagPipeline(services.RagPipelineConfig{
		AnalyzeLLM:     analyzeLLM,
		GenerateLLM:    generateLLM,
		Retriever:      retriever,
		Prompts:        config.NewPromptStore(cfg.Paths.PromptsDir),
		AnalyzePrompt:  cfg.Nodes.AnalyzeQuery.Prompt,
		GeneratePrompt: cfg.Nodes.Generate.Prompt,
		GenerateOptions: driven.GenerateOptions{
			Temperature: cfg.Nodes.Generate.Params.Temperature,
			MaxTokens:   cfg.Nodes.Generate.Params.MaxTokens,
		},
	})
}

// buildIngestor assembles the offline ingestion service.
func buildIngestor(ctx context.Context) (driving.IngestService, error) {
	storeKey := cfg.Ingestion.VectorStore
	if storeKey == "" {
		storeKey = cfg.Nodes.Retrieve.Dense.VectorStore
	}

	backend, err := buildVectorBackend(ctx, storeKey)
	if err != nil {
		return nil, err
	}
	embedder, err := buildEmbedder(storeKey)
	if err != nil {
		return nil, err
	}
	corpus, err := buildCorpusStore(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewIngestor(services.IngestorConfig{
		Corpus:   corpus,
		Backend:  backend,
		Embedder: embedder,
		Processors: processors.Config{
			PipelineVersion: cfg.Ingestion.PipelineVersion,
			MinChunkTokens:  cfg.Ingestion.MinChunkTokens,
		},
		NewPDFLoader: func(path string) driven.Loader { return pdfloader.NewLoader(path) },
		NewWebLoader: func(url string) driven.Loader { return webloader.NewLoader(url) },
		NewRowLoader: func(path, table string) (driven.RowLoader, error) {
			return sqliteloader.NewRowsLoader(path, table)
		},
	})
}

// parseBoolKwarg reads a boolean kwarg, defaulting to false on absence or
// malformed input.
func parseBoolKwarg(kwargs map[string]string, key string) bool {
	v, err := strconv.ParseBool(kwarg(kwargs, key))
	return err == nil && v
}
