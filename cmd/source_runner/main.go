package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"yakima-events-scraper/internal/services"
)

// SourceRunnerEvent is the input event for a scrape run. An empty source_id
// runs every active source.
type SourceRunnerEvent struct {
	SourceID    string `json:"source_id"`
	TriggerType string `json:"trigger_type"` // manual, scheduled
}

// SourceRunnerResponse is the Lambda response
type SourceRunnerResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Response body structure
type ResponseBody struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Results []*services.RunResult `json:"results,omitempty"`
	Error   string                `json:"error,omitempty"`
}

var (
	dynamoService *services.DynamoDBService
	runner        *services.SourceRunner
)

func init() {
	// Load AWS configuration
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	dynamoClient := dynamodb.NewFromConfig(cfg)
	dynamoService = services.NewDynamoDBService(
		dynamoClient,
		os.Getenv("EVENTS_TABLE"),
		os.Getenv("SOURCES_TABLE"),
		os.Getenv("OPERATIONS_TABLE"),
	)

	fetcher := services.NewContentFetcher()
	registry := buildParserRegistry(fetcher)

	var geocoder services.Geocoder
	if g := services.NewGoogleGeocoder(); g != nil {
		geocoder = g
	}
	normalizer := services.NewEventNormalizer(geocoder)
	dedup := services.NewDeduplicator(dynamoService)

	runner = services.NewSourceRunner(fetcher, registry, normalizer, dedup, dynamoService, dynamoService, dynamoService)

	archive, err := services.NewContentArchive(context.TODO())
	if err != nil {
		log.Printf("Content archive unavailable, raw payloads will not be stored: %v", err)
	} else {
		runner = runner.WithArchive(archive)
	}
}

// buildParserRegistry wires every supported format. The AI crawl path is
// wrapped in the fallback orchestrator so a crawl failure degrades to a
// conventional parse instead of failing the run outright.
func buildParserRegistry(fetcher *services.ContentFetcher) *services.ParserRegistry {
	registry := services.NewParserRegistry()
	registry.Register(services.NewCalendarParser())
	registry.Register(services.NewHTMLParser())
	registry.Register(services.NewJSONParser())
	registry.Register(services.NewRegionalHTMLParser())

	firecrawlClient, err := services.NewFirecrawlClient()
	if err != nil {
		log.Printf("Firecrawl client unavailable: %v", err)
		firecrawlClient = nil
	}
	extractor, err := services.NewOpenAIExtractor()
	if err != nil {
		log.Printf("OpenAI extractor unavailable: %v", err)
		extractor = nil
	}

	aiParser := services.NewAICrawlParser(firecrawlClient, extractor)
	registry.Register(services.NewFallbackOrchestrator(aiParser, registry, fetcher))

	return registry
}

// handleRequest processes the source runner Lambda request
func handleRequest(ctx context.Context, event SourceRunnerEvent) (SourceRunnerResponse, error) {
	if event.SourceID == "" {
		log.Printf("Running all active sources (trigger: %s)", event.TriggerType)

		results, err := runner.RunAll(ctx)
		if err != nil {
			return createErrorResponse(500, fmt.Sprintf("Batch run failed: %v", err))
		}
		return createSuccessResponse(fmt.Sprintf("Ran %d sources", len(results)), results)
	}

	log.Printf("Running source %s (trigger: %s)", event.SourceID, event.TriggerType)

	source, err := dynamoService.GetSource(ctx, event.SourceID)
	if err != nil {
		return createErrorResponse(400, fmt.Sprintf("Source not found: %s", event.SourceID))
	}

	result := runner.RunSource(ctx, source)
	if result.Err != nil {
		return createErrorResponse(500, fmt.Sprintf("Run failed: %v", result.Err))
	}

	return createSuccessResponse(
		fmt.Sprintf("Run %s complete: %d found, %d added", result.RunID, result.EventsFound, result.EventsAdded),
		[]*services.RunResult{result},
	)
}

func createSuccessResponse(message string, results []*services.RunResult) (SourceRunnerResponse, error) {
	body, _ := json.Marshal(ResponseBody{
		Success: true,
		Message: message,
		Results: results,
	})
	return SourceRunnerResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func createErrorResponse(statusCode int, message string) (SourceRunnerResponse, error) {
	body, _ := json.Marshal(ResponseBody{
		Success: false,
		Message: message,
		Error:   message,
	})
	return SourceRunnerResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func main() {
	lambda.Start(handleRequest)
}
