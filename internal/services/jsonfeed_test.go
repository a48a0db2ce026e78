package services

import (
	"context"
	"testing"

	"yakima-events-scraper/internal/models"
)

const jsonFeedSample = `{
  "meta": {"generated": "2025-06-01"},
  "data": {
    "events": [
      {
        "id": 4711,
        "name": "Farmers Market Opening Day",
        "summary": "Season opener downtown",
        "when": "2025-06-08 09:00:00",
        "ends": "2025-06-08 13:00:00",
        "venue": {"name": "Downtown Plaza"},
        "link": "/market/opening-day"
      },
      {
        "id": 4712,
        "name": "Outdoor Cinema Night",
        "when": "2025-07-12 20:30:00",
        "link": "https://cinema.example/night"
      },
      {
        "id": 4713,
        "when": "2025-07-13 10:00:00"
      }
    ]
  }
}`

func jsonTestSource() *models.Source {
	return &models.Source{
		SourceID: "json-1",
		URL:      "https://api.example/v2/listings",
		Format:   models.FormatJSON,
		Config: models.SourceConfig{
			EventsPath: "data.events",
			FieldMapping: map[string]string{
				"title":          "name",
				"description":    "summary",
				"start_datetime": "when",
				"end_datetime":   "ends",
				"location":       "venue.name",
				"external_url":   "link",
				"external_id":    "id",
			},
		},
	}
}

func TestJSONParser(t *testing.T) {
	parser := NewJSONParser()

	t.Run("MappedFeed", func(t *testing.T) {
		events, err := parser.Parse(context.Background(), []byte(jsonFeedSample), jsonTestSource())
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		// The record with no mappable title is dropped.
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}

		e := events[0]
		if e.Title != "Farmers Market Opening Day" {
			t.Errorf("Title = %q", e.Title)
		}
		if e.StartDatetime != "2025-06-08 09:00:00" {
			t.Errorf("StartDatetime = %q", e.StartDatetime)
		}
		if e.EndDatetime != "2025-06-08 13:00:00" {
			t.Errorf("EndDatetime = %q", e.EndDatetime)
		}
		if e.Location != "Downtown Plaza" {
			t.Errorf("nested field mapping failed: Location = %q", e.Location)
		}
		if e.ExternalURL != "https://api.example/market/opening-day" {
			t.Errorf("ExternalURL = %q", e.ExternalURL)
		}
		// Numeric IDs stringify without a trailing fraction
		if e.ExternalID != "4711" {
			t.Errorf("ExternalID = %q, want 4711", e.ExternalID)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		_, err := parser.Parse(context.Background(), []byte("{not json"), jsonTestSource())
		if err == nil {
			t.Fatal("expected a parse error")
		}
		if _, ok := err.(*ParseError); !ok {
			t.Errorf("error type = %T, want *ParseError", err)
		}
	})

	t.Run("MissingFieldMapping", func(t *testing.T) {
		source := jsonTestSource()
		source.Config.FieldMapping = nil

		_, err := parser.Parse(context.Background(), []byte(jsonFeedSample), source)
		if err == nil {
			t.Fatal("expected a config error")
		}
		if _, ok := err.(*ConfigError); !ok {
			t.Errorf("error type = %T, want *ConfigError", err)
		}
	})

	t.Run("WrongEventsPath", func(t *testing.T) {
		source := jsonTestSource()
		source.Config.EventsPath = "data.listings"

		_, err := parser.Parse(context.Background(), []byte(jsonFeedSample), source)
		if err == nil {
			t.Fatal("expected a parse error for a path that resolves to nothing")
		}
	})

	t.Run("DefaultEventsPath", func(t *testing.T) {
		source := jsonTestSource()
		source.Config.EventsPath = ""

		feed := `{"events": [{"name": "Root Level Event", "when": "2025-08-01 18:00:00"}]}`
		events, err := parser.Parse(context.Background(), []byte(feed), source)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Title != "Root Level Event" {
			t.Errorf("Title = %q", events[0].Title)
		}
	})
}
