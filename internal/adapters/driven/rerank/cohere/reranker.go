// Package cohere implements the reranker port against the Cohere rerank
// API. Calls are paced by a token bucket so bursts of questions cannot
// exceed the account's rate limit; waiting callers serialize on the bucket.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
)

// Default configuration values.
const (
	DefaultBaseURL        = "https://api.cohere.com/v2"
	DefaultModel          = "rerank-v3.5"
	DefaultTimeout        = 30 * time.Second
	DefaultCallsPerMinute = 10
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// Config holds configuration for the Cohere reranker.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.cohere.com/v2).
	BaseURL string

	// Model is the rerank model to use (default: rerank-v3.5).
	Model string

	// CallsPerMinute caps the request rate (default: 10).
	CallsPerMinute int

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Reranker reorders retrieval candidates by relevance to the query.
type Reranker struct {
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewReranker creates a Cohere reranker from the config.
func NewReranker(cfg Config) (*Reranker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Cohere API key not set", domain.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Reranker{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank reorders the candidates by model relevance and returns the top n.
// The call blocks until the rate limiter grants a slot.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topN int) ([]domain.ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rerank rate limit wait: %w", err)
	}

	documents := make([]string, len(candidates))
	for i := range candidates {
		documents[i] = candidates[i].Chunk.PageContent
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank API returned %d: %s", resp.StatusCode, data)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	reranked := make([]domain.ScoredChunk, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if result.Index < 0 || result.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", result.Index)
		}
		reranked = append(reranked, domain.ScoredChunk{
			Chunk: candidates[result.Index].Chunk,
			Score: result.RelevanceScore,
		})
	}
	return reranked, nil
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}
