// Package pgvector provides a Postgres-backed vector index using the
// pgvector extension. Partitions map to a partition column on a shared
// chunks table; each partition carries a manifest row pinning the embedding
// model it was built with.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS chunks (
    partition  TEXT NOT NULL,
    chunk_id   TEXT NOT NULL,
    content    TEXT NOT NULL,
    metadata   JSONB NOT NULL,
    embedding  vector,
    PRIMARY KEY (partition, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_chunks_partition ON chunks(partition);

CREATE TABLE IF NOT EXISTS partition_manifests (
    partition TEXT PRIMARY KEY,
    manifest  JSONB NOT NULL
);
`

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// Backend builds, loads and merges pgvector partitions.
type Backend struct {
	pool *pgxpool.Pool
}

// NewBackend connects to Postgres and ensures the schema exists.
func NewBackend(ctx context.Context, connStr string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init pgvector schema: %w", err)
	}
	return &Backend{pool: pool}, nil
}

// Type returns the backend type string.
func (b *Backend) Type() string {
	return "pgvector"
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// Create embeds the chunks and writes them under the destination partition,
// replacing any previous build of that partition.
func (b *Backend) Create(ctx context.Context, chunks []domain.Chunk, embedder driven.EmbeddingService, destination string, seed domain.Manifest) error {
	if len(chunks) == 0 {
		return fmt.Errorf("create pgvector partition: %w: no chunks", domain.ErrInvalidInput)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].PageContent
	}
	embeddings, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE partition = $1`, destination); err != nil {
		return fmt.Errorf("clear partition %s: %w", destination, err)
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		meta, err := json.Marshal(chunks[i].Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", chunks[i].Metadata.ChunkID, err)
		}
		batch.Queue(
			`INSERT INTO chunks (partition, chunk_id, content, metadata, embedding) VALUES ($1, $2, $3, $4, $5)`,
			destination, chunks[i].Metadata.ChunkID, chunks[i].PageContent, meta,
			pgvector.NewVector(embeddings[i]),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	manifest := seed
	manifest.VectorStoreType = b.Type()
	manifest.EmbeddingModel = embedder.ModelName()
	manifest.LastIndexed = time.Now().UTC().Format(time.RFC3339)
	if err := writeManifest(ctx, tx, destination, manifest); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit partition %s: %w", destination, err)
	}

	logger.Info("Created pgvector partition %s (%d chunks)", destination, len(chunks))
	return nil
}

// Load opens the named partition. The embedding model comes from the
// manifest; modelOverride applies only when the manifest row is missing, in
// degraded mode with a warning.
func (b *Backend) Load(ctx context.Context, source string, modelOverride string) (driven.VectorIndex, error) {
	manifest, err := b.readManifest(ctx, source)
	model := ""
	switch {
	case err == nil:
		model = manifest.EmbeddingModel
		if modelOverride != "" && modelOverride != model {
			logger.Warn("Ignoring embedding model override %q: manifest pins %q", modelOverride, model)
		}
	case errors.Is(err, domain.ErrMissingManifest) && modelOverride != "":
		logger.Warn("Partition %s has no manifest, using caller-supplied model %q (degraded)",
			source, modelOverride)
		model = modelOverride
	default:
		return nil, err
	}

	var count int
	if err := b.pool.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE partition = $1`, source).Scan(&count); err != nil {
		return nil, fmt.Errorf("count partition %s: %w", source, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("partition %s is empty: %w", source, domain.ErrNotFound)
	}

	return &Index{pool: b.pool, partition: source, model: model}, nil
}

// Merge combines the source partitions into destination. Chunk identity is
// preserved; the same chunk_id appearing in two sources is a data-integrity
// fault.
func (b *Backend) Merge(ctx context.Context, sources []string, destination string) error {
	if len(sources) == 0 {
		return fmt.Errorf("merge: %w: no source partitions", domain.ErrInvalidInput)
	}

	var (
		model       string
		sourceNames []string
	)
	for _, src := range sources {
		manifest, err := b.readManifest(ctx, src)
		if err != nil {
			return err
		}
		if model == "" {
			model = manifest.EmbeddingModel
		} else if model != manifest.EmbeddingModel {
			return fmt.Errorf("%w: partition %s built with %q, expected %q",
				domain.ErrInvalidConfig, src, manifest.EmbeddingModel, model)
		}
		name := manifest.SourceFile
		if name == "" {
			name = manifest.SourceURL
		}
		sourceNames = append(sourceNames, name)
	}

	var dupID string
	err := b.pool.QueryRow(ctx,
		`SELECT chunk_id FROM chunks WHERE partition = ANY($1) GROUP BY chunk_id HAVING count(*) > 1 LIMIT 1`,
		sources).Scan(&dupID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s appears in more than one source partition", domain.ErrDuplicateChunk, dupID)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("check duplicates: %w", err)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE partition = $1`, destination); err != nil {
		return fmt.Errorf("clear partition %s: %w", destination, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO chunks (partition, chunk_id, content, metadata, embedding)
		 SELECT $1, chunk_id, content, metadata, embedding FROM chunks WHERE partition = ANY($2)`,
		destination, sources); err != nil {
		return fmt.Errorf("copy chunks into %s: %w", destination, err)
	}

	manifest := domain.Manifest{
		VectorStoreType: b.Type(),
		EmbeddingModel:  model,
		SourceFiles:     sourceNames,
		LastIndexed:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeManifest(ctx, tx, destination, manifest); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit merge into %s: %w", destination, err)
	}

	logger.Info("Merged %d partitions into pgvector partition %s", len(sources), destination)
	return nil
}

func (b *Backend) readManifest(ctx context.Context, partition string) (domain.Manifest, error) {
	var data []byte
	err := b.pool.QueryRow(ctx,
		`SELECT manifest FROM partition_manifests WHERE partition = $1`, partition).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Manifest{}, fmt.Errorf("partition %s: %w", partition, domain.ErrMissingManifest)
	}
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("read manifest for %s: %w", partition, err)
	}

	var manifest domain.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return domain.Manifest{}, fmt.Errorf("decode manifest for %s: %w", partition, err)
	}
	return manifest, nil
}

func writeManifest(ctx context.Context, tx pgx.Tx, partition string, manifest domain.Manifest) error {
	data, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO partition_manifests (partition, manifest) VALUES ($1, $2)
		 ON CONFLICT (partition) DO UPDATE SET manifest = EXCLUDED.manifest`,
		partition, data); err != nil {
		return fmt.Errorf("write manifest for %s: %w", partition, err)
	}
	return nil
}

// Index is a loaded pgvector partition.
type Index struct {
	pool      *pgxpool.Pool
	partition string
	model     string
}

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Query finds the k most similar chunks by cosine similarity.
func (i *Index) Query(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	rows, err := i.pool.Query(ctx,
		`SELECT chunk_id, content, metadata, 1 - (embedding <=> $1) AS score
		 FROM chunks
		 WHERE partition = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), i.partition, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	defer rows.Close()

	var scored []domain.ScoredChunk
	for rows.Next() {
		var (
			chunkID string
			content string
			meta    []byte
			score   float64
		)
		if err := rows.Scan(&chunkID, &content, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		var metadata domain.Metadata
		if err := json.Unmarshal(meta, &metadata); err != nil {
			logger.Warn("Chunk %s has unreadable metadata, skipping: %v", chunkID, err)
			continue
		}
		scored = append(scored, domain.ScoredChunk{
			Chunk: domain.Chunk{PageContent: content, Metadata: metadata},
			Score: score,
		})
	}
	return scored, rows.Err()
}

// EmbeddingModel returns the manifest-pinned embedding model.
func (i *Index) EmbeddingModel() string {
	return i.model
}

// Close releases resources. The pool is owned by the backend.
func (i *Index) Close() error {
	return nil
}
