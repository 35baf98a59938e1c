// Package pdf loads PDF files into raw elements, one composite text block
// per page.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader extracts text from a single PDF file.
type Loader struct {
	path string
}

// NewLoader creates a loader for the PDF at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Name identifies the loader in manifests.
func (l *Loader) Name() string {
	return "pdf"
}

// Load opens the file and emits one composite element per non-empty page.
func (l *Loader) Load(ctx context.Context) ([]domain.Element, error) {
	file, reader, err := pdf.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", l.path, err)
	}
	defer file.Close()

	info, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat pdf %s: %w", l.path, err)
	}
	lastModified := info.ModTime().UTC().Format(time.RFC3339)
	filename := filepath.Base(l.path)

	var elements []domain.Element
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Skipping page %d of %s: %v", pageNum, filename, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		elements = append(elements, domain.Element{
			Text:         text,
			Category:     domain.CategoryCompositeText,
			Source:       l.path,
			FileType:     "application/pdf",
			Languages:    []string{"eng"},
			LastModified: lastModified,
			Filename:     filename,
			PageNumber:   pageNum,
		})
	}

	logger.Debug("Loaded %d elements from %s", len(elements), filename)
	return elements, nil
}
