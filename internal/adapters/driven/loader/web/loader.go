// Package web loads a web page into raw elements. Headings and the page
// title become title elements; paragraph-level blocks become narrative text
// elements, in document order.
package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/core/ports/driven"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "greenplate/1.0"

	// maxBodySize caps how much of a page is read.
	maxBodySize = 10 << 20
)

// Ensure Loader implements the interface.
var _ driven.Loader = (*Loader)(nil)

// Loader fetches a single web page.
type Loader struct {
	url        string
	httpClient *http.Client
}

// NewLoader creates a loader for the page at url.
func NewLoader(url string) *Loader {
	return &Loader{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Name identifies the loader in manifests.
func (l *Loader) Name() string {
	return "web"
}

// Pre-compiled regular expressions for HTML extraction.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	contentTag   = regexp.MustCompile(`(?is)<(title|h[1-6]|p|li|blockquote)[^>]*>(.*?)</(?:title|h[1-6]|p|li|blockquote)>`)
	allTags      = regexp.MustCompile(`<[^>]+>`)
	multiSpaces  = regexp.MustCompile(`\s+`)
)

// Load fetches the page and extracts titled and narrative elements.
func (l *Loader) Load(ctx context.Context) ([]domain.Element, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", l.url, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", l.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.url, err)
	}

	lastModified := resp.Header.Get("Last-Modified")
	if t, err := http.ParseTime(lastModified); err == nil {
		lastModified = t.UTC().Format(time.RFC3339)
	}

	elements := l.extract(string(body), lastModified)
	logger.Debug("Loaded %d elements from %s", len(elements), l.url)
	return elements, nil
}

// extract walks the page's content tags in document order.
func (l *Loader) extract(page, lastModified string) []domain.Element {
	page = scriptTag.ReplaceAllString(page, "")
	page = styleTag.ReplaceAllString(page, "")
	page = noscriptTag.ReplaceAllString(page, "")
	page = htmlComments.ReplaceAllString(page, "")

	var elements []domain.Element
	for _, match := range contentTag.FindAllStringSubmatch(page, -1) {
		tag := strings.ToLower(match[1])
		text := cleanFragment(match[2])
		if text == "" {
			continue
		}

		category := domain.CategoryNarrativeText
		if tag == "title" || strings.HasPrefix(tag, "h") {
			category = domain.CategoryTitle
		}

		elements = append(elements, domain.Element{
			Text:         text,
			Category:     category,
			Source:       l.url,
			FileType:     "text/html",
			Languages:    []string{"eng"},
			LastModified: lastModified,
			URL:          l.url,
		})
	}
	return elements
}

// cleanFragment strips nested tags, decodes entities and collapses
// whitespace.
func cleanFragment(fragment string) string {
	fragment = allTags.ReplaceAllString(fragment, " ")
	fragment = html.UnescapeString(fragment)
	fragment = multiSpaces.ReplaceAllString(fragment, " ")
	return strings.TrimSpace(fragment)
}
