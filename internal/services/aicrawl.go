package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"yakima-events-scraper/internal/models"
)

// markdownDatePattern matches the date shapes commonly found in crawled
// page text: 12/25/2025, 2025-12-25, and "December 25, 2025".
var markdownDatePattern = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|\w+\s+\d{1,2},?\s+\d{4})\b`)

var markdownHeadingPattern = regexp.MustCompile(`^#+\s*(.+)$`)

// AICrawlParser extracts events through the Firecrawl service, using the
// method named in the source config: schema-guided extraction, keyword
// search, or a raw markdown scrape.
type AICrawlParser struct {
	client    *FirecrawlClient
	extractor *OpenAIExtractor
}

// NewAICrawlParser wires the Firecrawl client with an optional OpenAI
// extractor. Either may be nil when the corresponding API key is absent;
// Parse degrades accordingly and the fallback orchestrator takes over.
func NewAICrawlParser(client *FirecrawlClient, extractor *OpenAIExtractor) *AICrawlParser {
	return &AICrawlParser{client: client, extractor: extractor}
}

func (p *AICrawlParser) Format() string {
	return models.FormatAICrawl
}

// Available reports whether the crawl service can be reached at all.
func (p *AICrawlParser) Available() bool {
	return p.client != nil
}

// Parse ignores pre-fetched content: the crawl service fetches the page
// itself.
func (p *AICrawlParser) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	if p.client == nil {
		return nil, fmt.Errorf("firecrawl client is not configured")
	}

	method := source.Config.FirecrawlMethod
	switch method {
	case models.AICrawlMethodStructured:
		return p.parseStructured(ctx, source)
	case models.AICrawlMethodSearch:
		return p.parseSearch(ctx, source)
	case models.AICrawlMethodBasic, "":
		return p.parseBasic(ctx, source)
	default:
		return nil, &ConfigError{
			Format:  models.FormatAICrawl,
			Message: fmt.Sprintf("unknown firecrawl_method %q", method),
		}
	}
}

// parseStructured crawls the page and runs schema-guided extraction over
// the markdown. Without an extractor it degrades to the basic heuristics.
func (p *AICrawlParser) parseStructured(ctx context.Context, source *models.Source) ([]models.RawEvent, error) {
	markdown, err := p.client.ScrapeMarkdown(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	if p.extractor == nil {
		log.Printf("[AICRAWL] structured method requested but no extractor configured, using markdown heuristics")
		return parseMarkdownEvents(markdown, source.URL), nil
	}

	events, err := p.extractor.ExtractEvents(ctx, markdown, source.URL)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// parseSearch runs a keyword search, deriving a site-scoped query from the
// source URL when none is configured.
func (p *AICrawlParser) parseSearch(ctx context.Context, source *models.Source) ([]models.RawEvent, error) {
	query := source.Config.SearchQuery
	if query == "" {
		if u, err := url.Parse(source.URL); err == nil && u.Host != "" {
			query = "events site:" + u.Host
		} else {
			query = "events " + source.URL
		}
	}

	results, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	var events []models.RawEvent
	for _, result := range results {
		if result.Markdown == "" {
			continue
		}
		resultURL := result.URL
		if resultURL == "" {
			resultURL = source.URL
		}
		events = append(events, parseMarkdownEvents(result.Markdown, resultURL)...)
	}
	return events, nil
}

// parseBasic crawls the page and extracts events from the markdown with
// heading/date heuristics only.
func (p *AICrawlParser) parseBasic(ctx context.Context, source *models.Source) ([]models.RawEvent, error) {
	markdown, err := p.client.ScrapeMarkdown(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	return parseMarkdownEvents(markdown, source.URL), nil
}

// parseMarkdownEvents walks markdown line by line, opening an event at each
// heading and attaching the first recognizable date below it. Events
// without both a title and a date are discarded.
func parseMarkdownEvents(markdown, sourceURL string) []models.RawEvent {
	var events []models.RawEvent
	var current *models.RawEvent

	flush := func() {
		if current != nil && current.Title != "" && current.StartDatetime != "" {
			events = append(events, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)

		if m := markdownHeadingPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &models.RawEvent{
				Title:       strings.TrimSpace(m[1]),
				ExternalURL: sourceURL,
			}
			continue
		}

		if current == nil || current.StartDatetime != "" {
			continue
		}

		if m := markdownDatePattern.FindStringSubmatch(line); m != nil {
			if ts, ok := ParseGeneric(m[1]); ok {
				current.StartDatetime = FormatTimestamp(ts)
			}
		}
	}
	flush()

	return events
}

// FallbackOrchestrator wraps the AI-crawl parser and retries with one of
// the plain format parsers when the AI path fails or comes back empty. A
// fallback success must mask the AI path's failure entirely: the run still
// counts as a success.
type FallbackOrchestrator struct {
	primary  Parser
	registry *ParserRegistry
	fetcher  *ContentFetcher
}

func NewFallbackOrchestrator(primary Parser, registry *ParserRegistry, fetcher *ContentFetcher) *FallbackOrchestrator {
	return &FallbackOrchestrator{primary: primary, registry: registry, fetcher: fetcher}
}

func (o *FallbackOrchestrator) Format() string {
	return models.FormatAICrawl
}

func (o *FallbackOrchestrator) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	events, primaryErr := o.primary.Parse(ctx, content, source)
	if primaryErr == nil && len(events) > 0 {
		return events, nil
	}

	if primaryErr != nil {
		log.Printf("[AICRAWL] primary extraction failed for source %s: %v", source.SourceID, primaryErr)
	} else {
		log.Printf("[AICRAWL] primary extraction returned no events for source %s", source.SourceID)
	}

	fallbackFormat := source.Config.FallbackFormat
	if fallbackFormat == "" || fallbackFormat == models.FormatAICrawl {
		fallbackFormat = models.FormatHTML
	}

	parser, ok := o.registry.Get(fallbackFormat)
	if !ok {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return nil, &ConfigError{
			Format:  models.FormatAICrawl,
			Message: fmt.Sprintf("no parser registered for fallback format %q", fallbackFormat),
		}
	}

	fallbackContent, err := o.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return nil, err
	}

	fallbackEvents, err := parser.Parse(ctx, fallbackContent, source)
	if err != nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return nil, err
	}

	log.Printf("[AICRAWL] fallback parser %s recovered %d events for source %s",
		fallbackFormat, len(fallbackEvents), source.SourceID)
	return fallbackEvents, nil
}
