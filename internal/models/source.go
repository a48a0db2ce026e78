package models

import (
	"fmt"
	"time"
)

// Source format constants
const (
	FormatCalendar     = "calendar"
	FormatHTML         = "html"
	FormatJSON         = "json"
	FormatRegionalHTML = "regional_html"
	FormatAICrawl      = "ai_crawl"
)

// Source status constants
const (
	SourceStatusActive   = "active"
	SourceStatusInactive = "inactive"
)

// AI crawl method constants
const (
	AICrawlMethodStructured = "structured"
	AICrawlMethodSearch     = "search"
	AICrawlMethodBasic      = "basic"
)

// Source represents a configured remote origin of event data plus its
// extraction recipe.
type Source struct {
	// Primary Keys
	PK string `json:"PK" dynamodbav:"PK"` // SOURCE#{source_id}
	SK string `json:"SK" dynamodbav:"SK"` // CONFIG

	// Source identification
	SourceID string `json:"source_id" dynamodbav:"source_id"`
	Name     string `json:"name" dynamodbav:"name"`
	URL      string `json:"url" dynamodbav:"url"`

	// Extraction configuration
	Format string       `json:"format" dynamodbav:"format"` // calendar, html, json, regional_html, ai_crawl
	Config SourceConfig `json:"config" dynamodbav:"config"`

	// Linked optimizer strategy, when one has been applied
	StrategyID string `json:"strategy_id,omitempty" dynamodbav:"strategy_id,omitempty"`

	// Lifecycle
	Status        string    `json:"status" dynamodbav:"status"` // active, inactive
	LastScrapedAt time.Time `json:"last_scraped_at,omitempty" dynamodbav:"last_scraped_at,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`

	// GSI Keys
	StatusKey string `json:"StatusKey,omitempty" dynamodbav:"StatusKey,omitempty"` // STATUS#{status}
}

// SourceConfig is the format-specific configuration blob for a source. Only
// the fields relevant to the source's declared format are populated.
type SourceConfig struct {
	// html: selector map keyed by event_container, title, description,
	// datetime, location, url. Values are CSS selectors or XPath
	// expressions (leading // or .//).
	Selectors map[string]string `json:"selectors,omitempty" dynamodbav:"selectors,omitempty"`

	// json: dot-separated path to the event array plus field mapping from
	// canonical field name to source field path.
	EventsPath   string            `json:"events_path,omitempty" dynamodbav:"events_path,omitempty"`
	FieldMapping map[string]string `json:"field_mapping,omitempty" dynamodbav:"field_mapping,omitempty"`

	// regional_html
	BaseURL string `json:"base_url,omitempty" dynamodbav:"base_url,omitempty"`
	Year    int    `json:"year,omitempty" dynamodbav:"year,omitempty"`

	// ai_crawl
	FirecrawlMethod string `json:"firecrawl_method,omitempty" dynamodbav:"firecrawl_method,omitempty"` // structured, search, basic
	FallbackFormat  string `json:"fallback_type,omitempty" dynamodbav:"fallback_type,omitempty"`       // html, regional_html, calendar, json
	SearchQuery     string `json:"search_query,omitempty" dynamodbav:"search_query,omitempty"`
}

// Active reports whether the source should be scraped.
func (s *Source) Active() bool {
	return s.Status == SourceStatusActive
}

// Validate checks that the source carries the configuration its declared
// format requires.
func (s *Source) Validate() error {
	if s.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}

	switch s.Format {
	case FormatHTML:
		if len(s.Config.Selectors) == 0 || s.Config.Selectors["event_container"] == "" {
			return fmt.Errorf("html source requires selectors.event_container")
		}
	case FormatJSON:
		if len(s.Config.FieldMapping) == 0 {
			return fmt.Errorf("json source requires a field_mapping")
		}
	case FormatCalendar, FormatRegionalHTML, FormatAICrawl:
		// URL alone suffices; remaining config keys are optional.
	default:
		return fmt.Errorf("unsupported source format: %s", s.Format)
	}

	return nil
}

// Helper functions to create primary keys for sources
func CreateSourcePK(sourceID string) string {
	return "SOURCE#" + sourceID
}

func CreateSourceConfigSK() string {
	return "CONFIG"
}

// GenerateSourceStatusKey builds the GSI key used to list sources by status.
func GenerateSourceStatusKey(status string) string {
	return "STATUS#" + status
}
