// Package fs provides a local-filesystem corpus store.
// Each partition is a directory holding a documents.jsonl file with one
// {page_content, metadata} record per line.
package fs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// DocumentsFilename is the per-partition record file.
const DocumentsFilename = "documents.jsonl"

// Ensure Store implements the interface.
var _ driven.CorpusStore = (*Store)(nil)

// Store persists chunks as newline-delimited JSON under a root directory.
type Store struct {
	root string
}

// NewStore creates a corpus store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Save writes the chunks to the named partition, overwriting in place.
// The partition directory is created if absent.
func (s *Store) Save(_ context.Context, chunks []domain.Chunk, partition string) error {
	dir := filepath.Join(s.root, partition)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create partition %s: %w", partition, err)
	}

	path := filepath.Join(dir, DocumentsFilename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return fmt.Errorf("encode chunk %s: %w", chunks[i].Metadata.ChunkID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	logger.Debug("Saved %d chunks to partition %s", len(chunks), partition)
	return nil
}

// Load reads every partition under the root and concatenates their chunks.
// Partition order is sorted for stability; order within a partition follows
// the file.
func (s *Store) Load(ctx context.Context) ([]domain.Chunk, error) {
	partitions, err := s.Partitions(ctx)
	if err != nil {
		return nil, err
	}

	var all []domain.Chunk
	for _, p := range partitions {
		chunks, err := s.LoadPartition(ctx, p)
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// LoadPartition reads a single partition's record file.
func (s *Store) LoadPartition(_ context.Context, partition string) ([]domain.Chunk, error) {
	path := filepath.Join(s.root, partition, DocumentsFilename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("partition %s: %w", partition, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	// Chunks can exceed the default scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var chunk domain.Chunk
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", path, line, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return chunks, nil
}

// Partitions lists partition directories containing a record file.
func (s *Store) Partitions(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read corpus root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), DocumentsFilename)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
