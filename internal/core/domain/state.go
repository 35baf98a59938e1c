package domain

// StructuredQuery is the search object extracted from a free-form question
// by the analyze-query stage.
type StructuredQuery struct {
	// Query is the search query to run.
	Query string `json:"query"`
}

// RagState is the ephemeral per-request pipeline state. It flows immutably
// through the three stages: each stage derives a new state carrying only the
// fields it owns, merged onto its input. No stage mutates a field owned by an
// earlier stage.
type RagState struct {
	// Question is the caller's free-form question. Set at request entry.
	Question string `json:"question"`

	// Query is the structured search query. Owned by AnalyzeQuery.
	Query StructuredQuery `json:"query"`

	// Contexts are the supporting passages, highest relevance first.
	// Owned by Retrieve.
	Contexts []Chunk `json:"contexts"`

	// Answer is the grounded answer text. Owned by Generate.
	Answer string `json:"answer"`

	// Metadata carries response metadata such as the generation model name.
	// Owned by Generate.
	Metadata map[string]string `json:"metadata"`
}

// WithQuery derives a new state with the structured query set.
func (s RagState) WithQuery(q StructuredQuery) RagState {
	s.Query = q
	return s
}

// WithContexts derives a new state with retrieved contexts set.
func (s RagState) WithContexts(contexts []Chunk) RagState {
	s.Contexts = contexts
	return s
}

// WithAnswer derives a new state with the answer and its metadata set.
func (s RagState) WithAnswer(answer string, metadata map[string]string) RagState {
	s.Answer = answer
	s.Metadata = metadata
	return s
}
