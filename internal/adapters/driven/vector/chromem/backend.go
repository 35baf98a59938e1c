// Package chromem provides a local file-backed vector index using the
// chromem-go embedded vector database. Similarity is cosine, matching the
// metric the partitions are built with.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/greenplate-labs/greenplate/internal/adapters/driven/vector/manifest"
	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

const (
	// collectionName is the single collection each partition holds.
	collectionName = "corpus"

	// idsFilename records every chunk_id in the partition. Written at
	// create time; merge uses it to enumerate documents and to detect
	// cross-partition duplicates.
	idsFilename = "ids.json"

	// chunkMetaKey stores the full chunk metadata JSON inside the
	// document's string-valued metadata.
	chunkMetaKey = "chunk_metadata"
)

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// Backend builds, loads and merges chromem partitions. Each partition is a
// directory under the backend's root.
type Backend struct {
	root string
}

// NewBackend creates a chromem vector backend rooted at dir.
func NewBackend(dir string) *Backend {
	return &Backend{root: dir}
}

// dir resolves a partition name to its directory.
func (b *Backend) dir(partition string) string {
	return filepath.Join(b.root, partition)
}

// Type returns the backend type string.
func (b *Backend) Type() string {
	return "chromem"
}

// Create embeds the chunks and persists the named index partition plus its
// manifest.
func (b *Backend) Create(ctx context.Context, chunks []domain.Chunk, embedder driven.EmbeddingService, destination string, seed domain.Manifest) error {
	if len(chunks) == 0 {
		return fmt.Errorf("create chromem partition: %w: no chunks", domain.ErrInvalidInput)
	}
	dir := b.dir(destination)

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].PageContent
	}
	embeddings, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return fmt.Errorf("create chromem db: %w", err)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embedFunc(embedder))
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i := range chunks {
		meta, err := json.Marshal(chunks[i].Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", chunks[i].Metadata.ChunkID, err)
		}
		docs[i] = chromem.Document{
			ID:        chunks[i].Metadata.ChunkID,
			Content:   chunks[i].PageContent,
			Metadata:  map[string]string{chunkMetaKey: string(meta)},
			Embedding: embeddings[i],
		}
		ids[i] = chunks[i].Metadata.ChunkID
	}

	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	if err := writeIDs(dir, ids); err != nil {
		return err
	}

	m := seed
	m.VectorStoreType = b.Type()
	m.EmbeddingModel = embedder.ModelName()
	m.LastIndexed = time.Now().UTC().Format(time.RFC3339)
	if err := manifest.Write(dir, m); err != nil {
		return err
	}

	logger.Info("Created chromem partition %s (%d chunks)", destination, len(chunks))
	return nil
}

// Load opens the named partition. The embedding model comes from the
// manifest; modelOverride is honoured only when the manifest is missing, in
// degraded mode with a warning.
func (b *Backend) Load(_ context.Context, source string, modelOverride string) (driven.VectorIndex, error) {
	dir := b.dir(source)
	model, err := resolveModel(dir, modelOverride)
	if err != nil {
		return nil, err
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}

	collection := db.GetCollection(collectionName, nil)
	if collection == nil {
		return nil, fmt.Errorf("partition %s has no %s collection: %w",
			source, collectionName, domain.ErrNotFound)
	}

	return &Index{collection: collection, model: model}, nil
}

// Merge combines the partitions under sources into a single partition at
// destination. Every chunk_id is preserved; duplicates across partitions are
// a data-integrity fault.
func (b *Backend) Merge(ctx context.Context, sources []string, destination string) error {
	if len(sources) == 0 {
		return fmt.Errorf("merge: %w: no source partitions", domain.ErrInvalidInput)
	}

	destDir := b.dir(destination)
	merged, err := chromem.NewPersistentDB(destDir, false)
	if err != nil {
		return fmt.Errorf("create merged db: %w", err)
	}
	mergedCollection, err := merged.GetOrCreateCollection(collectionName, nil, noEmbedFunc())
	if err != nil {
		return fmt.Errorf("create merged collection: %w", err)
	}

	var (
		model       string
		sourceNames []string
		seen        = make(map[string]string) // chunk_id -> source partition
		allIDs      []string
	)

	for _, src := range sources {
		srcDir := b.dir(src)
		srcManifest, err := manifest.Read(srcDir)
		if err != nil {
			return err
		}
		if model == "" {
			model = srcManifest.EmbeddingModel
		} else if model != srcManifest.EmbeddingModel {
			return fmt.Errorf("%w: partition %s built with %q, expected %q",
				domain.ErrInvalidConfig, src, srcManifest.EmbeddingModel, model)
		}
		sourceNames = append(sourceNames, sourceName(srcManifest))

		ids, err := readIDs(srcDir)
		if err != nil {
			return err
		}

		db, err := chromem.NewPersistentDB(srcDir, false)
		if err != nil {
			return fmt.Errorf("open partition %s: %w", src, err)
		}
		collection := db.GetCollection(collectionName, nil)
		if collection == nil {
			return fmt.Errorf("partition %s has no %s collection: %w",
				src, collectionName, domain.ErrNotFound)
		}

		for _, id := range ids {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("%w: %s in both %s and %s",
					domain.ErrDuplicateChunk, id, prev, src)
			}
			seen[id] = src

			doc, err := collection.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("get %s from %s: %w", id, src, err)
			}
			if err := mergedCollection.AddDocument(ctx, doc); err != nil {
				return fmt.Errorf("add %s to merged partition: %w", id, err)
			}
			allIDs = append(allIDs, id)
		}
	}

	if err := writeIDs(destDir, allIDs); err != nil {
		return err
	}

	m := domain.Manifest{
		VectorStoreType: b.Type(),
		EmbeddingModel:  model,
		SourceFiles:     sourceNames,
		LastIndexed:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := manifest.Write(destDir, m); err != nil {
		return err
	}

	logger.Info("Merged %d partitions into %s (%d chunks)", len(sources), destination, len(allIDs))
	return nil
}

// Index is a loaded chromem partition.
type Index struct {
	collection *chromem.Collection
	model      string
}

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Query finds the k most similar chunks by cosine similarity.
func (i *Index) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	// chromem rejects result counts above the collection size.
	if count := i.collection.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := i.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	scored := make([]domain.ScoredChunk, 0, len(results))
	for _, res := range results {
		var meta domain.Metadata
		if err := json.Unmarshal([]byte(res.Metadata[chunkMetaKey]), &meta); err != nil {
			logger.Warn("Chunk %s has unreadable metadata, skipping: %v", res.ID, err)
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: domain.Chunk{PageContent: res.Content, Metadata: meta},
			Score: float64(res.Similarity),
		})
	}
	return scored, nil
}

// EmbeddingModel returns the manifest-pinned embedding model.
func (i *Index) EmbeddingModel() string {
	return i.model
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}

// resolveModel applies the manifest-first embedding model policy.
func resolveModel(source, override string) (string, error) {
	m, err := manifest.Read(source)
	switch {
	case err == nil:
		if override != "" && override != m.EmbeddingModel {
			logger.Warn("Ignoring embedding model override %q: manifest pins %q",
				override, m.EmbeddingModel)
		}
		return m.EmbeddingModel, nil
	case errors.Is(err, domain.ErrMissingManifest) && override != "":
		logger.Warn("Partition %s has no manifest, using caller-supplied model %q (degraded)",
			source, override)
		return override, nil
	default:
		return "", err
	}
}

func writeIDs(dir string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode ids: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, idsFilename), data, 0o644); err != nil {
		return fmt.Errorf("write ids: %w", err)
	}
	return nil
}

func readIDs(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, idsFilename))
	if err != nil {
		return nil, fmt.Errorf("read ids for %s: %w", dir, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode ids for %s: %w", dir, err)
	}
	return ids, nil
}

// sourceName picks the source identity recorded in a partition manifest.
func sourceName(m domain.Manifest) string {
	if m.SourceFile != "" {
		return m.SourceFile
	}
	return m.SourceURL
}

// embedFunc adapts the embedding service to chromem's embedding function.
// Unused when documents carry precomputed embeddings, but required by the
// collection constructor.
func embedFunc(embedder driven.EmbeddingService) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
}

// noEmbedFunc is used when a collection is only ever queried by embedding.
func noEmbedFunc() chromem.EmbeddingFunc {
	return func(context.Context, string) ([]float32, error) {
		return nil, errors.New("no embedding service attached")
	}
}
