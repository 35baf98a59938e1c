package processors

import (
	"strings"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/logger"
	"github.com/greenplate-labs/greenplate/internal/normaliser"
)

// ProcessWeb converts raw web page elements into corpus chunks.
// Only narrative text and title elements are retained; image elements are
// deferred (documented non-goal for this version). The most recent title
// element preceding a kept element determines that element's doc_title.
func ProcessWeb(elements []domain.Element, cfg Config) []domain.Chunk {
	ingestedAt := cfg.ingestedAt()
	chunks := make([]domain.Chunk, 0, len(elements))

	var title string
	for chunkIndex, el := range elements {
		if el.Category != domain.CategoryNarrativeText && el.Category != domain.CategoryTitle {
			continue
		}
		if el.URL == "" {
			logger.Warn("Web element %d has no url, skipping", chunkIndex)
			continue
		}
		if el.Category == domain.CategoryTitle {
			title = strings.TrimSpace(el.Text)
		}

		docID := NormalizeURL(el.URL)
		chunk := domain.Chunk{
			PageContent: normaliser.CleanText(el.Text),
			Metadata: domain.Metadata{
				DocID:           docID,
				ChunkID:         domain.ChunkID(docID, chunkIndex),
				ChunkIndex:      chunkIndex,
				DocTitle:        title,
				Source:          docID,
				FileType:        el.FileType,
				Languages:       el.Languages,
				URL:             el.URL,
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
