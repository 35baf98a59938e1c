package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/greenplate-labs/greenplate/internal/config"
	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driving"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Ensure RagPipeline implements the interface.
var _ driving.AskService = (*RagPipeline)(nil)

// RagPipelineConfig wires the three serving stages.
type RagPipelineConfig struct {
	// AnalyzeLLM extracts the structured query. May be the same service
	// as GenerateLLM.
	AnalyzeLLM driven.LLMService

	// GenerateLLM produces the final answer.
	GenerateLLM driven.LLMService

	// Retriever supplies ranked contexts for the extracted query.
	Retriever driving.Retriever

	// Prompts resolves the stage prompt templates.
	Prompts *config.PromptStore

	// AnalyzePrompt and GeneratePrompt are the template filenames. An
	// empty AnalyzePrompt sends the raw question to the model; an empty
	// GeneratePrompt selects the embedded default.
	AnalyzePrompt  string
	GeneratePrompt string

	// GenerateOptions tune the answer generation call.
	GenerateOptions driven.GenerateOptions
}

// RagPipeline is the serving path: analyze-query, retrieve, generate. State
// flows through the stages immutably; each stage only adds its own fields.
type RagPipeline struct {
	cfg RagPipelineConfig
}

// NewRagPipeline validates the wiring and creates the pipeline.
func NewRagPipeline(cfg RagPipelineConfig) (*RagPipeline, error) {
	if cfg.AnalyzeLLM == nil || cfg.GenerateLLM == nil || cfg.Retriever == nil || cfg.Prompts == nil {
		return nil, fmt.Errorf("%w: pipeline requires both models, a retriever and prompts", domain.ErrInvalidConfig)
	}
	if cfg.GeneratePrompt == "" {
		cfg.GeneratePrompt = config.PromptGenerate
	}
	return &RagPipeline{cfg: cfg}, nil
}

// Ask runs the full pipeline for one question.
func (p *RagPipeline) Ask(ctx context.Context, question string) (domain.RagState, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.RagState{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	state := domain.RagState{Question: question}

	state, err := p.analyzeQuery(ctx, state)
	if err != nil {
		return domain.RagState{}, err
	}
	state, err = p.retrieve(ctx, state)
	if err != nil {
		return domain.RagState{}, err
	}
	return p.generate(ctx, state)
}

// analyzeQuery rewrites the question into a structured search query. With
// no prompt template configured, the raw question goes to the model as-is.
func (p *RagPipeline) analyzeQuery(ctx context.Context, state domain.RagState) (domain.RagState, error) {
	prompt := state.Question
	if p.cfg.AnalyzePrompt != "" {
		template, err := p.cfg.Prompts.Get(p.cfg.AnalyzePrompt)
		if err != nil {
			return state, err
		}
		prompt = config.RenderPrompt(template, state.Question, "")
	}

	query, err := p.cfg.AnalyzeLLM.ExtractQuery(ctx, prompt)
	if err != nil {
		return state, fmt.Errorf("analyze query: %w", err)
	}
	logger.Debug("Extracted query %q from question", query.Query)
	return state.WithQuery(query), nil
}

// retrieve fetches the supporting contexts for the structured query.
func (p *RagPipeline) retrieve(ctx context.Context, state domain.RagState) (domain.RagState, error) {
	contexts, err := p.cfg.Retriever.Retrieve(ctx, state.Query.Query)
	if err != nil {
		return state, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("Retrieved %d contexts", len(contexts))
	return state.WithContexts(contexts), nil
}

// generate produces the grounded answer from the retrieved contexts.
func (p *RagPipeline) generate(ctx context.Context, state domain.RagState) (domain.RagState, error) {
	template, err := p.cfg.Prompts.Get(p.cfg.GeneratePrompt)
	if err != nil {
		return state, err
	}

	passages := make([]string, len(state.Contexts))
	for i, chunk := range state.Contexts {
		passages[i] = chunk.PageContent
	}
	prompt := config.RenderPrompt(template, state.Question, strings.Join(passages, " "))

	answer, err := p.cfg.GenerateLLM.Generate(ctx, prompt, p.cfg.GenerateOptions)
	if err != nil {
		return state, fmt.Errorf("generate: %w", err)
	}

	metadata := map[string]string{
		"model_name": p.cfg.GenerateLLM.ModelName(),
	}
	return state.WithAnswer(answer, metadata), nil
}
