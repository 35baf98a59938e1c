package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Prompt template filenames with embedded defaults.
const (
	PromptAnalyzeQuery = "analyze_query.txt"
	PromptGenerate     = "generate.txt"
)

// defaultPrompts contains embedded default templates, used when the prompts
// directory does not provide a file of the same name. Placeholders use
// {question} and {context}.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	PromptAnalyzeQuery: `Extract a concise search query from the user's question. Keep the key entities and the information need; drop filler words.

Question: {question}`,

	PromptGenerate: `You are an assistant answering questions about the environmental footprint of food. Use ONLY the provided context to answer. If the context does not contain the answer, say you don't know. Do not invent sources.

Context: {context}

Question: {question}

Answer:`,
}

// PromptStore loads prompt templates from user-editable files on disk,
// falling back to embedded defaults. Templates are cached after first load;
// the store is safe for concurrent readers.
type PromptStore struct {
	mu    sync.RWMutex
	dir   string
	cache map[string]string
}

// NewPromptStore creates a prompt store rooted at dir.
// No I/O happens here; files are read lazily on first Get.
func NewPromptStore(dir string) *PromptStore {
	return &PromptStore{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Get returns the template with the given filename.
// Disk content wins over the embedded default; a name with neither is an
// error.
func (s *PromptStore) Get(name string) (string, error) {
	s.mu.RLock()
	if tmpl, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return tmpl, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if tmpl, ok := s.cache[name]; ok {
		return tmpl, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err == nil {
		s.cache[name] = string(data)
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}

	tmpl, ok := defaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template: %s", name)
	}
	s.cache[name] = tmpl
	return tmpl, nil
}

// RenderPrompt substitutes {question} and {context} placeholders.
func RenderPrompt(template, question, context string) string {
	out := strings.ReplaceAll(template, "{question}", question)
	out = strings.ReplaceAll(out, "{context}", context)
	return out
}
