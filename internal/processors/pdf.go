package processors

import (
	"path/filepath"
	"strings"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/logger"
	"github.com/greenplate-labs/greenplate/internal/normaliser"
)

// ProcessPDF converts raw PDF elements into corpus chunks.
// Only elements categorised as composite text blocks are retained; headers,
// footers and raw tables are dropped before the chunks are emitted. A
// malformed element is skipped with a warning rather than aborting the
// document.
func ProcessPDF(elements []domain.Element, cfg Config) []domain.Chunk {
	ingestedAt := cfg.ingestedAt()
	chunks := make([]domain.Chunk, 0, len(elements))

	for chunkIndex, el := range elements {
		if el.Category != domain.CategoryCompositeText {
			continue
		}
		if el.Filename == "" {
			logger.Warn("PDF element %d has no filename, skipping", chunkIndex)
			continue
		}
		if strings.TrimSpace(el.Text) == "" {
			logger.Warn("PDF element %d is empty, skipping", chunkIndex)
			continue
		}

		docID := el.Filename
		chunk := domain.Chunk{
			PageContent: normaliser.CleanText(el.Text),
			Metadata: domain.Metadata{
				DocID:           docID,
				ChunkID:         domain.ChunkID(docID, chunkIndex),
				ChunkIndex:      chunkIndex,
				DocTitle:        fileStem(el.Filename),
				Source:          el.Source,
				FileType:        el.FileType,
				Languages:       el.Languages,
				LastModified:    el.LastModified,
				Filename:        el.Filename,
				PageNumber:      el.PageNumber,
				Tags:            []string{},
				IngestedAt:      ingestedAt,
				TenantID:        domain.DefaultTenantID,
				PipelineVersion: cfg.PipelineVersion,
			},
		}
		chunks = append(chunks, chunk)
	}

	return filterShort(chunks, cfg.MinChunkTokens)
}

// filterShort drops chunks below the minimum token length. Runs after index
// assignment so dropped chunks never shift the indices of retained ones.
func filterShort(chunks []domain.Chunk, minTokens int) []domain.Chunk {
	if minTokens <= 0 {
		return chunks
	}
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if tokenCount(c.PageContent) < minTokens {
			logger.Debug("Dropping short chunk %s", c.Metadata.ChunkID)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// fileStem returns the file name without its extension.
func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
