package models

import "time"

// Strategy is a named, scored extraction recipe produced by the strategy
// optimizer for an HTML source. The container query and per-field cascades
// are stored as XPath expressions so they can be replayed without another
// selector translation pass.
type Strategy struct {
	// Primary Keys
	PK string `json:"PK" dynamodbav:"PK"` // SOURCE#{source_id}
	SK string `json:"SK" dynamodbav:"SK"` // STRATEGY#{strategy_id}

	StrategyID string `json:"strategy_id" dynamodbav:"strategy_id"`
	SourceID   string `json:"source_id" dynamodbav:"source_id"`
	Name       string `json:"name" dynamodbav:"name"`

	// Extraction recipe
	ContainerQuery string              `json:"container_query" dynamodbav:"container_query"`
	FieldQueries   map[string][]string `json:"field_queries" dynamodbav:"field_queries"`

	// Scoring details from the evaluation run
	Score        int `json:"score" dynamodbav:"score"`
	NodeCount    int `json:"node_count" dynamodbav:"node_count"`
	ValidSamples int `json:"valid_samples" dynamodbav:"valid_samples"`

	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

func CreateStrategySK(strategyID string) string {
	return "STRATEGY#" + strategyID
}
