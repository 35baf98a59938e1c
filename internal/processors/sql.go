package processors

import (
	"fmt"
	"strings"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// Columns required by the row sentence template. A row set missing any of
// them cannot be templated, so that table's ingestion aborts.
const (
	ColFoodCategory   = "FoodCat3Name"
	ColGHGValue       = "GHGTotalValue"
	ColRegion         = "RegionName"
	ColProductionType = "ProductionTypeEng"
)

var requiredColumns = []string{ColFoodCategory, ColGHGValue, ColRegion, ColProductionType}

// ProcessSQL converts database rows into one synthetic text chunk per row,
// templating the selected columns into a natural-language sentence. dbFile
// is the source database file name (e.g. "rise.db"); the derived doc_id is
// "db:{dbFile}".
//
// A missing required column is fatal for the whole table; the sentence
// template cannot be filled. Other sources are unaffected.
func ProcessSQL(rows []map[string]string, dbFile string, cfg Config) ([]domain.Chunk, error) {
	if len(rows) > 0 {
		if err := checkColumns(rows[0]); err != nil {
			return nil, err
		}
	}

	docID := "db:" + dbFile
	ingestedAt := cfg.ingestedAt()
	chunks := make([]domain.Chunk, 0, len(rows))

	for rowIndex, row := range rows {
		// European decimal commas in the source data.
		ghg := strings.ReplaceAll(row[ColGHGValue], ",", ".")
		text := fmt.Sprintf(
			"Foods or ingredients of type %s, when sourced from %s and produced with %s methods, produce approximately %s kg of CO2 per kg.",
			row[ColFoodCategory], row[ColRegion], row[ColProductionType], ghg,
		)

		chunks = append(chunks, domain.Chunk{
			PageContent: text,
			Metadata: domain.Metadata{
				DocID:           docID,
				ChunkID:         domain.RowChunkID(docID, rowIndex),
				ChunkIndex:      rowIndex,
				DocTitle:        fileStem(dbFile),
				Source:          docID,
				FileType:        "SQL",
				Filename:        dbFile,
				Tags:            []string{},
				IngestedAt:      ingestedAt,
				TenantID:        domain.DefaultTenantID,
				PipelineVersion: cfg.PipelineVersion,
			},
		})
	}

	return chunks, nil
}

// checkColumns verifies every template column is present.
func checkColumns(row map[string]string) error {
	for _, col := range requiredColumns {
		if _, ok := row[col]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrMissingColumn, col)
		}
	}
	return nil
}
