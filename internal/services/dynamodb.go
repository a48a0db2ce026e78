package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"yakima-events-scraper/internal/models"
)

// DynamoDBService provides CRUD operations for all DynamoDB tables. It is
// the single implementation behind the EventStore, SourceStore,
// StrategyStore, and RunLogStore interfaces.
type DynamoDBService struct {
	client          *dynamodb.Client
	eventsTable     string
	sourcesTable    string
	operationsTable string
}

// NewDynamoDBService creates a new DynamoDB service instance
func NewDynamoDBService(client *dynamodb.Client, eventsTable, sourcesTable, operationsTable string) *DynamoDBService {
	return &DynamoDBService{
		client:          client,
		eventsTable:     eventsTable,
		sourcesTable:    sourcesTable,
		operationsTable: operationsTable,
	}
}

// Events Table Operations

// CreateEvent stores an extracted event
func (s *DynamoDBService) CreateEvent(ctx context.Context, event *models.Event) error {
	item, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.eventsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// FindByNormalizedTitle returns every stored event sharing a normalized
// title, for duplicate detection.
func (s *DynamoDBService) FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]models.Event, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		IndexName:              aws.String("title-index"),
		KeyConditionExpression: aws.String("TitleKey = :titleKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":titleKey": &types.AttributeValueMemberS{Value: models.GenerateEventTitleKey(normalizedTitle)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events by title: %w", err)
	}

	var events []models.Event
	err = attributevalue.UnmarshalListOfMaps(result.Items, &events)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}

	return events, nil
}

// Sources Table Operations

// GetSource retrieves a source configuration by ID
func (s *DynamoDBService) GetSource(ctx context.Context, sourceID string) (*models.Source, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.sourcesTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.CreateSourcePK(sourceID)},
			"SK": &types.AttributeValueMemberS{Value: models.CreateSourceConfigSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("source %s not found", sourceID)
	}

	var source models.Source
	err = attributevalue.UnmarshalMap(result.Item, &source)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal source: %w", err)
	}

	return &source, nil
}

// ListActiveSources returns every source currently eligible for runs
func (s *DynamoDBService) ListActiveSources(ctx context.Context) ([]models.Source, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.sourcesTable),
		IndexName:              aws.String("status-index"),
		KeyConditionExpression: aws.String("StatusKey = :statusKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":statusKey": &types.AttributeValueMemberS{Value: models.GenerateSourceStatusKey(models.SourceStatusActive)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query active sources: %w", err)
	}

	var sources []models.Source
	err = attributevalue.UnmarshalListOfMaps(result.Items, &sources)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}

	return sources, nil
}

// UpdateSourceConfig rewrites a source's format, extraction config, and
// active strategy in place. Used by the optimizer after a successful
// analysis.
func (s *DynamoDBService) UpdateSourceConfig(ctx context.Context, sourceID, format string, config models.SourceConfig, strategyID string) error {
	configValue, err := attributevalue.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal source config: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.sourcesTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.CreateSourcePK(sourceID)},
			"SK": &types.AttributeValueMemberS{Value: models.CreateSourceConfigSK()},
		},
		UpdateExpression: aws.String("SET #format = :format, config = :config, strategy_id = :strategyID, updated_at = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#format": "format",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":format":     &types.AttributeValueMemberS{Value: format},
			":config":     configValue,
			":strategyID": &types.AttributeValueMemberS{Value: strategyID},
			":updatedAt":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update source config: %w", err)
	}

	return nil
}

// UpdateLastScraped records when a source last completed a successful run
func (s *DynamoDBService) UpdateLastScraped(ctx context.Context, sourceID string, scrapedAt time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.sourcesTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.CreateSourcePK(sourceID)},
			"SK": &types.AttributeValueMemberS{Value: models.CreateSourceConfigSK()},
		},
		UpdateExpression: aws.String("SET last_scraped_at = :scrapedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scrapedAt": &types.AttributeValueMemberS{Value: scrapedAt.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update last scraped time: %w", err)
	}

	return nil
}

// DeactivateSource flips a source to inactive so the batch runner stops
// picking it up. The row is kept for history; nothing is deleted.
func (s *DynamoDBService) DeactivateSource(ctx context.Context, sourceID string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.sourcesTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: models.CreateSourcePK(sourceID)},
			"SK": &types.AttributeValueMemberS{Value: models.CreateSourceConfigSK()},
		},
		UpdateExpression: aws.String("SET #status = :status, StatusKey = :statusKey"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: models.SourceStatusInactive},
			":statusKey": &types.AttributeValueMemberS{Value: models.GenerateSourceStatusKey(models.SourceStatusInactive)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate source: %w", err)
	}

	return nil
}

// Strategy Operations

// SaveStrategy persists a scored extraction strategy alongside its source
func (s *DynamoDBService) SaveStrategy(ctx context.Context, strategy *models.Strategy) error {
	item, err := attributevalue.MarshalMap(strategy)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.sourcesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save strategy: %w", err)
	}

	return nil
}

// Run Log Operations

// StartRun opens a run log row in the running state
func (s *DynamoDBService) StartRun(ctx context.Context, run *models.RunLog) error {
	return s.putRunLog(ctx, run, "start run")
}

// CompleteRun overwrites the run log row with final counts and status
func (s *DynamoDBService) CompleteRun(ctx context.Context, run *models.RunLog) error {
	return s.putRunLog(ctx, run, "complete run")
}

func (s *DynamoDBService) putRunLog(ctx context.Context, run *models.RunLog, op string) error {
	item, err := attributevalue.MarshalMap(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run log: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.operationsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	return nil
}

// RecentRuns returns the newest run log rows for a source, most recent
// first.
func (s *DynamoDBService) RecentRuns(ctx context.Context, sourceID string, limit int) ([]models.RunLog, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.operationsTable),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :runPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":        &types.AttributeValueMemberS{Value: models.CreateSourcePK(sourceID)},
			":runPrefix": &types.AttributeValueMemberS{Value: "RUN#"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}

	var runs []models.RunLog
	err = attributevalue.UnmarshalListOfMaps(result.Items, &runs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run logs: %w", err)
	}

	return runs, nil
}
