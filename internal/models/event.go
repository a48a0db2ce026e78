package models

import (
	"fmt"
	"time"
)

// Event status constants. The pipeline only ever creates pending events;
// approval is an external concern.
const (
	EventStatusPending  = "pending"
	EventStatusApproved = "approved"
)

// TimestampLayout is the canonical textual timestamp form used by RawEvent
// datetime fields.
const TimestampLayout = "2006-01-02 15:04:05"

// RawEvent is an unvalidated, format-specific record produced by a format
// parser. Datetime fields hold canonical "YYYY-MM-DD HH:MM:SS" text, or are
// empty when the parser could not produce one. RawEvents are never persisted.
type RawEvent struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	StartDatetime string   `json:"start_datetime,omitempty"`
	EndDatetime   string   `json:"end_datetime,omitempty"`
	Location      string   `json:"location,omitempty"`
	Address       string   `json:"address,omitempty"`
	ExternalURL   string   `json:"external_url,omitempty"`
	ExternalID    string   `json:"external_id,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

// Event is the canonical, validated record the pipeline persists.
type Event struct {
	// Primary Keys
	PK string `json:"PK" dynamodbav:"PK"` // EVENT#{event_id}
	SK string `json:"SK" dynamodbav:"SK"` // METADATA

	EventID     string     `json:"event_id" dynamodbav:"event_id"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description,omitempty" dynamodbav:"description,omitempty"`
	StartTime   time.Time  `json:"start_time" dynamodbav:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" dynamodbav:"end_time,omitempty"`

	Location  string   `json:"location,omitempty" dynamodbav:"location,omitempty"`
	Address   string   `json:"address,omitempty" dynamodbav:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" dynamodbav:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" dynamodbav:"longitude,omitempty"`

	ExternalURL string   `json:"external_url,omitempty" dynamodbav:"external_url,omitempty"`
	ExternalID  string   `json:"external_id,omitempty" dynamodbav:"external_id,omitempty"`
	Categories  []string `json:"categories,omitempty" dynamodbav:"categories,omitempty"`

	SourceID  string    `json:"source_id" dynamodbav:"source_id"`
	Status    string    `json:"status" dynamodbav:"status"` // pending, approved
	ScrapedAt time.Time `json:"scraped_at" dynamodbav:"scraped_at"`

	// GSI Keys
	TitleKey  string `json:"TitleKey,omitempty" dynamodbav:"TitleKey,omitempty"`   // TITLE#{normalized_title}
	SourceKey string `json:"SourceKey,omitempty" dynamodbav:"SourceKey,omitempty"` // SOURCE#{source_id}
}

// Validate enforces the persistence invariant: title and start time are
// always non-empty.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	if e.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if e.Status != EventStatusPending && e.Status != EventStatusApproved {
		return fmt.Errorf("invalid event status: %s", e.Status)
	}
	return nil
}

// Helper functions to create primary keys for events
func CreateEventPK(eventID string) string {
	return "EVENT#" + eventID
}

func CreateEventMetadataSK() string {
	return "METADATA"
}

// GenerateEventTitleKey builds the GSI key used for duplicate lookups.
func GenerateEventTitleKey(normalizedTitle string) string {
	return "TITLE#" + normalizedTitle
}

func GenerateEventSourceKey(sourceID string) string {
	return "SOURCE#" + sourceID
}
