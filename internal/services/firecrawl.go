package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/mendableai/firecrawl-go"
)

const (
	firecrawlBaseURL = "https://api.firecrawl.dev"

	// firecrawlMaxRetries bounds the client's own retry loop. This is the
	// AI path's internal policy; the plain content fetcher stays strictly
	// single-attempt.
	firecrawlMaxRetries = 2

	// firecrawlSearchLimit caps results per search request.
	firecrawlSearchLimit = 20
)

// FirecrawlClient wraps the Firecrawl API for full-page crawls and event
// search. It is the external collaborator behind the ai_crawl format.
type FirecrawlClient struct {
	app     *firecrawl.FirecrawlApp
	http    *resty.Client
	apiKey  string
	timeout time.Duration
}

// FirecrawlSearchResult is one entry of a search response.
type FirecrawlSearchResult struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type firecrawlSearchResponse struct {
	Success bool                    `json:"success"`
	Data    []FirecrawlSearchResult `json:"data"`
}

// NewFirecrawlClient creates a Firecrawl client. FIRECRAWL_API_KEY is
// required.
func NewFirecrawlClient() (*FirecrawlClient, error) {
	apiKey := os.Getenv("FIRECRAWL_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY environment variable is required")
	}

	app, err := firecrawl.NewFirecrawlApp(apiKey, firecrawlBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firecrawl client: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(firecrawlBaseURL).
		SetTimeout(60 * time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &FirecrawlClient{
		app:     app,
		http:    httpClient,
		apiKey:  apiKey,
		timeout: 60 * time.Second,
	}, nil
}

// ScrapeMarkdown crawls a page and returns its markdown rendition, retrying
// transient failures with exponential backoff.
func (c *FirecrawlClient) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}

	var markdown string
	operation := func() error {
		response, err := c.app.ScrapeURL(url, nil)
		if err != nil {
			return err
		}

		doc, ok := any(response).(*firecrawl.FirecrawlDocument)
		if !ok {
			return backoff.Permanent(fmt.Errorf("unexpected response type %T from Firecrawl", response))
		}

		markdown = doc.Markdown
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), firecrawlMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("Firecrawl scrape failed for %s: %w", url, err)
	}

	log.Printf("[FIRECRAWL] Scraped %s: %d characters of markdown", url, len(markdown))
	return markdown, nil
}

// Search runs an event search query and returns the markdown of each hit.
func (c *FirecrawlClient) Search(ctx context.Context, query string) ([]FirecrawlSearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	var parsed firecrawlSearchResponse
	operation := func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]interface{}{
				"query": query,
				"limit": firecrawlSearchLimit,
				"scrapeOptions": map[string]interface{}{
					"formats": []string{"markdown"},
				},
			}).
			SetResult(&parsed).
			Post("/v1/search")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("search returned HTTP %d", resp.StatusCode())
		}
		if !parsed.Success {
			return backoff.Permanent(fmt.Errorf("search request rejected"))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), firecrawlMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("Firecrawl search failed: %w", err)
	}

	log.Printf("[FIRECRAWL] Search %q returned %d results", query, len(parsed.Data))
	return parsed.Data, nil
}
