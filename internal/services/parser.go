package services

import (
	"context"
	"net/url"
	"strings"

	"yakima-events-scraper/internal/models"
)

// Parser extracts raw events from fetched source content. Implementations
// exist per source format and are looked up through the registry; adding a
// format means registering a new implementation, not editing a dispatcher.
type Parser interface {
	// Format returns the source format tag this parser handles.
	Format() string

	// Parse converts raw content into RawEvents. content may be nil for
	// formats that fetch for themselves (ai_crawl). Structurally invalid
	// input fails with *ParseError; invalid configuration with
	// *ConfigError.
	Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error)
}

// ParserRegistry maps format tags to parser implementations.
type ParserRegistry struct {
	parsers map[string]Parser
}

func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]Parser)}
}

func (r *ParserRegistry) Register(p Parser) {
	r.parsers[p.Format()] = p
}

func (r *ParserRegistry) Get(format string) (Parser, bool) {
	p, ok := r.parsers[format]
	return p, ok
}

// Formats returns the registered format tags, for diagnostics.
func (r *ParserRegistry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	return formats
}

// resolveURL resolves a possibly-relative href against the source's own URL.
// Unresolvable values pass through unchanged.
func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
