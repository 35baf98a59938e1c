// Package object provides an object-storage corpus store backed by a MinIO
// (S3-compatible) bucket. Object storage lacks cheap partitioned overwrites,
// so writes are idempotent per-chunk upserts keyed by chunk_id.
package object

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// prefix under which chunk objects are stored.
const objectPrefix = "documents"

// Ensure Store implements the interface.
var _ driven.CorpusStore = (*Store)(nil)

// Config holds connection settings for the object store.
type Config struct {
	// Endpoint is the S3-compatible endpoint host:port.
	Endpoint string

	// AccessKey and SecretKey are the static credentials.
	AccessKey string
	SecretKey string

	// Bucket is the corpus bucket. Created if absent.
	Bucket string

	// UseSSL enables TLS.
	UseSSL bool
}

// Store persists chunks as one JSON object per chunk:
// documents/{partition}/{chunk_id}.json.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore connects to the object store and ensures the bucket exists.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Save upserts every chunk under the partition prefix, keyed by chunk_id.
// Re-saving a partition overwrites the same keys, so the operation is
// idempotent; chunks removed from the input are not garbage-collected here.
func (s *Store) Save(ctx context.Context, chunks []domain.Chunk, partition string) error {
	seen := make(map[string]bool, len(chunks))
	for i := range chunks {
		id := chunks[i].Metadata.ChunkID
		if seen[id] {
			logger.Warn("Duplicate chunk_id %s in partition %s, keeping first", id, partition)
			continue
		}
		seen[id] = true

		data, err := json.Marshal(&chunks[i])
		if err != nil {
			return fmt.Errorf("encode chunk %s: %w", id, err)
		}

		key := s.objectKey(partition, id)
		_, err = s.client.PutObject(ctx, s.bucket, key,
			bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}

	logger.Debug("Upserted %d chunks to object partition %s", len(seen), partition)
	return nil
}

// Load reads every chunk object under the documents prefix.
func (s *Store) Load(ctx context.Context) ([]domain.Chunk, error) {
	return s.loadPrefix(ctx, objectPrefix+"/")
}

// LoadPartition reads every chunk object under one partition.
func (s *Store) LoadPartition(ctx context.Context, partition string) ([]domain.Chunk, error) {
	return s.loadPrefix(ctx, objectPrefix+"/"+partition+"/")
}

func (s *Store) loadPrefix(ctx context.Context, prefix string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, obj.Err)
		}

		chunk, err := s.getChunk(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (s *Store) getChunk(ctx context.Context, key string) (domain.Chunk, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("read %s: %w", key, err)
	}

	var chunk domain.Chunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return domain.Chunk{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return chunk, nil
}

// Partitions lists the partition prefixes under documents/.
func (s *Store) Partitions(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    objectPrefix + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list partitions: %w", obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, objectPrefix+"/")
		partition := strings.SplitN(rel, "/", 2)[0]
		if partition != "" && !seen[partition] {
			seen[partition] = true
			names = append(names, partition)
		}
	}
	return names, nil
}

// objectKey builds the object key for a chunk. chunk_ids may contain
// slashes (normalised URLs), which would nest the key; they are flattened.
func (s *Store) objectKey(partition, chunkID string) string {
	safe := strings.ReplaceAll(chunkID, "/", "_")
	return path.Join(objectPrefix, partition, safe+".json")
}
