package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"yakima-events-scraper/internal/models"
)

// OpenAIExtractor converts crawled page markdown into structured event
// records, for the ai_crawl structured method.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

type openAIEventList struct {
	Events []models.RawEvent `json:"events"`
}

// NewOpenAIExtractor creates an extractor. OPENAI_API_KEY is required.
func NewOpenAIExtractor() (*OpenAIExtractor, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	return &OpenAIExtractor{
		client:      openai.NewClient(apiKey),
		model:       "gpt-4o-mini",
		temperature: 0.1,
		maxTokens:   4000,
	}, nil
}

// ExtractEvents extracts event records from markdown content. The content
// must be long enough to plausibly carry events.
func (o *OpenAIExtractor) ExtractEvents(ctx context.Context, content, sourceURL string) ([]models.RawEvent, error) {
	startTime := time.Now()

	if len(content) < 200 {
		return nil, fmt.Errorf("content too short (%d chars) to extract events", len(content))
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: eventExtractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: o.buildUserPrompt(content, sourceURL)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI extraction request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no completion choices")
	}

	var parsed openAIEventList
	cleaned := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response as JSON: %w", err)
	}

	log.Printf("[OPENAI] Extracted %d events from %s in %v (tokens: %d)",
		len(parsed.Events), sourceURL, time.Since(startTime), resp.Usage.TotalTokens)

	return parsed.Events, nil
}

const eventExtractionSystemPrompt = `You are an event data extraction system. You read webpage content rendered as markdown and return the events it describes as JSON.

Return ONLY a JSON object of the form:
{"events": [{"title": "...", "description": "...", "start_datetime": "YYYY-MM-DD HH:MM:SS", "end_datetime": "YYYY-MM-DD HH:MM:SS", "location": "...", "address": "...", "external_url": "..."}]}

Rules:
- title and start_datetime are required; omit records where either is unknown
- datetimes use 24-hour "YYYY-MM-DD HH:MM:SS"; use 00:00:00 when no time of day is given
- leave unknown optional fields as empty strings
- do not invent events that are not on the page`

func (o *OpenAIExtractor) buildUserPrompt(content, sourceURL string) string {
	return fmt.Sprintf("Source URL: %s\n\nPage content:\n%s", sourceURL, content)
}

// stripCodeFences removes markdown code fencing the model sometimes wraps
// around its JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
