package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"yakima-events-scraper/internal/services"
)

// SourceOptimizerEvent is the input event for a strategy analysis run
type SourceOptimizerEvent struct {
	SourceID    string `json:"source_id"`
	TriggerType string `json:"trigger_type"` // manual, scheduled, low_yield
}

// SourceOptimizerResponse is the Lambda response
type SourceOptimizerResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// Response body structure
type ResponseBody struct {
	Success bool                         `json:"success"`
	Message string                       `json:"message"`
	Result  *services.OptimizationResult `json:"result,omitempty"`
	Error   string                       `json:"error,omitempty"`
}

var (
	dynamoService *services.DynamoDBService
	optimizer     *services.StrategyOptimizer
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

	optimizer = services.NewStrategyOptimizer(services.NewContentFetcher(), dynamoService, dynamoService)
}

// handleRequest processes the source optimizer Lambda request
func handleRequest(ctx context.Context, event SourceOptimizerEvent) (SourceOptimizerResponse, error) {
	log.Printf("Optimizing source %s (trigger: %s)", event.SourceID, event.TriggerType)

	if event.SourceID == "" {
		return createErrorResponse(400, "source_id is required")
	}

	source, err := dynamoService.GetSource(ctx, event.SourceID)
	if err != nil {
		return createErrorResponse(400, fmt.Sprintf("Source not found: %s", event.SourceID))
	}

	result, err := optimizer.OptimizeSource(ctx, source)
	if err != nil {
		if errors.Is(err, services.ErrNoViableStrategy) {
			return createErrorResponse(422, fmt.Sprintf("No viable strategy for source %s: %v", event.SourceID, err))
		}
		return createErrorResponse(500, fmt.Sprintf("Optimization failed: %v", err))
	}

	return createSuccessResponse(
		fmt.Sprintf("Source %s optimized as %s (%d events detected)", result.SourceID, result.Format, result.EventCount),
		result,
	)
}

func createSuccessResponse(message string, result *services.OptimizationResult) (SourceOptimizerResponse, error) {
	body, _ := json.Marshal(ResponseBody{
		Success: true,
		Message: message,
		Result:  result,
	})
	return SourceOptimizerResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func createErrorResponse(statusCode int, message string) (SourceOptimizerResponse, error) {
	body, _ := json.Marshal(ResponseBody{
		Success: false,
		Message: message,
		Error:   message,
	})
	return SourceOptimizerResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func main() {
	lambda.Start(handleRequest)
}
