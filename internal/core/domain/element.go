package domain

// ElementCategory classifies a raw loader-emitted element.
// Only a fixed subset of categories is retained per source type; the rest
// are dropped during processing.
type ElementCategory string

// Element categories emitted by the loaders.
const (
	// CategoryCompositeText is a merged block of body text (PDF).
	CategoryCompositeText ElementCategory = "CompositeElement"

	// CategoryNarrativeText is running body text (web).
	CategoryNarrativeText ElementCategory = "NarrativeText"

	// CategoryTitle is a heading or page title (web).
	CategoryTitle ElementCategory = "Title"

	// CategoryTable is tabular content. Dropped by the PDF processor.
	CategoryTable ElementCategory = "Table"

	// CategoryHeader is a page header or footer artefact. Dropped.
	CategoryHeader ElementCategory = "Header"
)

// Element is one raw unit emitted by a source loader, before processing.
type Element struct {
	// Text is the raw extracted text.
	Text string

	// Category classifies the element.
	Category ElementCategory

	// Source is the originating file path or URL.
	Source string

	// FileType is the source media type.
	FileType string

	// Languages lists detected content languages.
	Languages []string

	// LastModified is the source's last-modified timestamp, when known.
	LastModified string

	// Filename is the base name of the source file, when file-backed.
	Filename string

	// PageNumber is the page the element was extracted from (PDF).
	PageNumber int

	// URL is the source URL (web).
	URL string
}
