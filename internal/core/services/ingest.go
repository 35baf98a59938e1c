package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driving"
	"github.com/greenplate-labs/greenplate/internal/logger"
	"github.com/greenplate-labs/greenplate/internal/processors"
)

// MergedPartition is the name of the single serving index partition produced
// by MergeIndex.
const MergedPartition = "merged"

// DefaultSQLTable is the table read from an ingested SQLite file.
const DefaultSQLTable = "rise"

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// IngestorConfig wires the offline ingestion path.
type IngestorConfig struct {
	// Corpus persists processed chunks per source partition.
	Corpus driven.CorpusStore

	// Backend builds and merges the vector index partitions.
	Backend driven.VectorBackend

	// Embedder embeds chunk content at index-build time.
	Embedder driven.EmbeddingService

	// Processors configures chunk processing (version stamp, token floor).
	Processors processors.Config

	// NewPDFLoader and NewWebLoader construct per-source loaders.
	NewPDFLoader func(path string) driven.Loader
	NewWebLoader func(url string) driven.Loader

	// NewRowLoader constructs a loader for one SQLite table.
	NewRowLoader func(path, table string) (driven.RowLoader, error)

	// SQLTable overrides the default ingested table name.
	SQLTable string
}

// Ingestor turns one source document into a corpus partition and a vector
// index partition. It is the exclusive writer of both.
type Ingestor struct {
	cfg IngestorConfig
}

// NewIngestor validates the wiring and creates the ingestor.
func NewIngestor(cfg IngestorConfig) (*Ingestor, error) {
	if cfg.Corpus == nil || cfg.Backend == nil || cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: ingestor requires corpus store, vector backend and embedder", domain.ErrInvalidConfig)
	}
	if cfg.NewPDFLoader == nil || cfg.NewWebLoader == nil || cfg.NewRowLoader == nil {
		return nil, fmt.Errorf("%w: ingestor requires loader constructors", domain.ErrInvalidConfig)
	}
	if cfg.SQLTable == "" {
		cfg.SQLTable = DefaultSQLTable
	}
	return &Ingestor{cfg: cfg}, nil
}

// IngestPDF processes one PDF file end to end.
func (s *Ingestor) IngestPDF(ctx context.Context, filePath string) error {
	loader := s.cfg.NewPDFLoader(filePath)
	elements, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	chunks := processors.ProcessPDF(elements, s.cfg.Processors)
	seed := domain.Manifest{
		LoaderName: loader.Name(),
		SourceFile: filepath.Base(filePath),
	}
	return s.store(ctx, chunks, partitionName(fileStem(filePath)), seed)
}

// IngestWeb processes one web page end to end.
func (s *Ingestor) IngestWeb(ctx context.Context, url string) error {
	loader := s.cfg.NewWebLoader(url)
	elements, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	chunks := processors.ProcessWeb(elements, s.cfg.Processors)
	seed := domain.Manifest{
		LoaderName: loader.Name(),
		SourceURL:  processors.NormalizeURL(url),
	}
	return s.store(ctx, chunks, partitionName(processors.NormalizeURL(url)), seed)
}

// IngestSQL processes one SQLite table end to end.
func (s *Ingestor) IngestSQL(ctx context.Context, dbPath string) error {
	loader, err := s.cfg.NewRowLoader(dbPath, s.cfg.SQLTable)
	if err != nil {
		return err
	}
	rows, err := loader.LoadRows(ctx)
	if err != nil {
		return err
	}

	chunks, err := processors.ProcessSQL(rows, filepath.Base(dbPath), s.cfg.Processors)
	if err != nil {
		return err
	}
	seed := domain.Manifest{
		LoaderName:   loader.Name(),
		LoaderParams: map[string]any{"table": s.cfg.SQLTable},
		SourceFile:   filepath.Base(dbPath),
	}
	return s.store(ctx, chunks, partitionName("db_"+fileStem(dbPath)), seed)
}

// store persists the chunks to the corpus and builds the index partition.
// The corpus write comes first so a failed index build can be retried from
// the stored chunks.
func (s *Ingestor) store(ctx context.Context, chunks []domain.Chunk, partition string, seed domain.Manifest) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: source produced no chunks", domain.ErrInvalidInput)
	}

	if err := s.cfg.Corpus.Save(ctx, chunks, partition); err != nil {
		return fmt.Errorf("save corpus partition %s: %w", partition, err)
	}
	if err := s.cfg.Backend.Create(ctx, chunks, s.cfg.Embedder, partition, seed); err != nil {
		return fmt.Errorf("build index partition %s: %w", partition, err)
	}

	logger.Info("Ingested %d chunks into partition %s", len(chunks), partition)
	return nil
}

// MergeIndex combines every per-source index partition into the single
// serving partition. The previous merged partition is replaced, never fed
// back into itself.
func (s *Ingestor) MergeIndex(ctx context.Context) error {
	partitions, err := s.cfg.Corpus.Partitions(ctx)
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}

	sources := make([]string, 0, len(partitions))
	for _, p := range partitions {
		if p == MergedPartition {
			continue
		}
		sources = append(sources, p)
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: no source partitions to merge", domain.ErrNotFound)
	}

	return s.cfg.Backend.Merge(ctx, sources, MergedPartition)
}

// partitionChars collapses anything outside the safe partition alphabet.
var partitionChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// partitionName derives a filesystem- and table-safe partition name from a
// source identity.
func partitionName(source string) string {
	name := strings.ToLower(source)
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	name = partitionChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "source"
	}
	return name
}

// fileStem is the base filename without its extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
