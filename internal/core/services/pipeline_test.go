package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/config"
	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
)

type mockLLM struct {
	model string

	generateResponse string
	generateErr      error
	generatePrompt   string
	generateOpts     driven.GenerateOptions

	extractResponse domain.StructuredQuery
	extractErr      error
	extractInput    string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.generatePrompt = prompt
	m.generateOpts = opts
	return m.generateResponse, m.generateErr
}

func (m *mockLLM) ExtractQuery(_ context.Context, input string) (domain.StructuredQuery, error) {
	m.extractInput = input
	return m.extractResponse, m.extractErr
}

func (m *mockLLM) ModelName() string { return m.model }
func (m *mockLLM) Close() error      { return nil }

type mockRetriever struct {
	chunks   []domain.Chunk
	err      error
	gotQuery string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string) ([]domain.Chunk, error) {
	m.gotQuery = query
	return m.chunks, m.err
}

func contextChunk(text string) domain.Chunk {
	return domain.Chunk{PageContent: text, Metadata: domain.Metadata{ChunkID: text}}
}

func pipelineConfig(analyze, generate *mockLLM, retriever *mockRetriever) RagPipelineConfig {
	return RagPipelineConfig{
		AnalyzeLLM:  analyze,
		GenerateLLM: generate,
		Retriever:   retriever,
		Prompts:     config.NewPromptStore("testdata-prompts-absent"),
	}
}

func TestNewRagPipelineValidation(t *testing.T) {
	analyze := &mockLLM{model: "fast"}
	generate := &mockLLM{model: "strong"}

	_, err := NewRagPipeline(pipelineConfig(analyze, generate, &mockRetriever{}))
	require.NoError(t, err)

	missing := pipelineConfig(analyze, generate, &mockRetriever{})
	missing.Retriever = nil
	_, err = NewRagPipeline(missing)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestAskRunsAllStages(t *testing.T) {
	analyze := &mockLLM{
		model:           "fast",
		extractResponse: domain.StructuredQuery{Query: "beef carbon footprint"},
	}
	generate := &mockLLM{
		model:            "strong",
		generateResponse: "Beef emits roughly 27 kg CO2 per kg.",
	}
	retriever := &mockRetriever{chunks: []domain.Chunk{
		contextChunk("Beef produces 27 kg CO2 per kg."),
		contextChunk("Lentils produce 0.9 kg CO2 per kg."),
	}}

	p, err := NewRagPipeline(pipelineConfig(analyze, generate, retriever))
	require.NoError(t, err)

	state, err := p.Ask(context.Background(), "What is the carbon footprint of beef?")
	require.NoError(t, err)

	assert.Equal(t, "What is the carbon footprint of beef?", state.Question)
	assert.Equal(t, "beef carbon footprint", state.Query.Query)
	assert.Len(t, state.Contexts, 2)
	assert.Equal(t, "Beef emits roughly 27 kg CO2 per kg.", state.Answer)
	assert.Equal(t, map[string]string{"model_name": "strong"}, state.Metadata)

	// The retriever receives the extracted query, not the raw question.
	assert.Equal(t, "beef carbon footprint", retriever.gotQuery)
}

func TestAskGeneratePromptContainsJoinedContexts(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	generate := &mockLLM{generateResponse: "answer"}
	retriever := &mockRetriever{chunks: []domain.Chunk{
		contextChunk("First passage."),
		contextChunk("Second passage."),
	}}

	p, err := NewRagPipeline(pipelineConfig(analyze, generate, retriever))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "the question")
	require.NoError(t, err)

	// Passages are joined with a single space into the context slot.
	assert.Contains(t, generate.generatePrompt, "First passage. Second passage.")
	assert.Contains(t, generate.generatePrompt, "the question")
}

func TestAskAnalyzeWithoutPromptSendsRawQuestion(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	generate := &mockLLM{generateResponse: "answer"}

	p, err := NewRagPipeline(pipelineConfig(analyze, generate, &mockRetriever{}))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "how much water does rice need")
	require.NoError(t, err)

	assert.Equal(t, "how much water does rice need", analyze.extractInput)
}

func TestAskAnalyzeWithPromptRendersTemplate(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	generate := &mockLLM{generateResponse: "answer"}

	cfg := pipelineConfig(analyze, generate, &mockRetriever{})
	cfg.AnalyzePrompt = config.PromptAnalyzeQuery

	p, err := NewRagPipeline(cfg)
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "how much water does rice need")
	require.NoError(t, err)

	assert.Contains(t, analyze.extractInput, "how much water does rice need")
	assert.NotEqual(t, "how much water does rice need", analyze.extractInput)
}

func TestAskEmptyQuestion(t *testing.T) {
	p, err := NewRagPipeline(pipelineConfig(&mockLLM{}, &mockLLM{}, &mockRetriever{}))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskAnalyzeFailure(t *testing.T) {
	analyze := &mockLLM{extractErr: errors.New("model unavailable")}

	p, err := NewRagPipeline(pipelineConfig(analyze, &mockLLM{}, &mockRetriever{}))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "question")
	assert.ErrorContains(t, err, "analyze query")
}

func TestAskRetrieveFailure(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	retriever := &mockRetriever{err: errors.New("both legs failed")}

	p, err := NewRagPipeline(pipelineConfig(analyze, &mockLLM{}, retriever))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "question")
	assert.ErrorContains(t, err, "retrieve")
}

func TestAskGenerateFailure(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	generate := &mockLLM{generateErr: errors.New("model unavailable")}

	p, err := NewRagPipeline(pipelineConfig(analyze, generate, &mockRetriever{}))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "question")
	assert.ErrorContains(t, err, "generate")
}

func TestAskPassesGenerateOptions(t *testing.T) {
	analyze := &mockLLM{extractResponse: domain.StructuredQuery{Query: "q"}}
	generate := &mockLLM{generateResponse: "answer"}

	cfg := pipelineConfig(analyze, generate, &mockRetriever{})
	cfg.GenerateOptions = driven.GenerateOptions{Temperature: 0.2, MaxTokens: 512}

	p, err := NewRagPipeline(cfg)
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, cfg.GenerateOptions, generate.generateOpts)
}
