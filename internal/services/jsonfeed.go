package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"yakima-events-scraper/internal/models"
)

// Canonical field names understood by the JSON field mapping.
const (
	fieldTitle         = "title"
	fieldDescription   = "description"
	fieldStartDatetime = "start_datetime"
	fieldEndDatetime   = "end_datetime"
	fieldLocation      = "location"
	fieldAddress       = "address"
	fieldExternalURL   = "external_url"
	fieldExternalID    = "external_id"
)

// defaultEventsPath is walked when the source config does not name one.
const defaultEventsPath = "events"

// JSONParser extracts events from JSON API responses using a dot-path to
// the event array and a canonical-field → source-field mapping.
type JSONParser struct{}

func NewJSONParser() *JSONParser {
	return &JSONParser{}
}

func (p *JSONParser) Format() string {
	return models.FormatJSON
}

func (p *JSONParser) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, &ParseError{Format: models.FormatJSON, Message: "invalid JSON", Err: err}
	}

	mapping := source.Config.FieldMapping
	if len(mapping) == 0 {
		return nil, &ConfigError{Format: models.FormatJSON, Message: "field_mapping is required"}
	}

	eventsPath := source.Config.EventsPath
	if eventsPath == "" {
		eventsPath = defaultEventsPath
	}

	raw := getNestedValue(data, eventsPath)
	items, ok := raw.([]interface{})
	if !ok {
		return nil, &ParseError{
			Format:  models.FormatJSON,
			Message: fmt.Sprintf("events_path %q does not resolve to an array", eventsPath),
		}
	}

	var events []models.RawEvent
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		event := models.RawEvent{}
		for ourField, theirField := range mapping {
			value := stringifyJSONValue(getNestedValue(obj, theirField))
			if value == "" {
				continue
			}

			switch ourField {
			case fieldStartDatetime:
				if ts, ok := ParseGeneric(value); ok {
					event.StartDatetime = FormatTimestamp(ts)
				}
			case fieldEndDatetime:
				if ts, ok := ParseGeneric(value); ok {
					event.EndDatetime = FormatTimestamp(ts)
				}
			case fieldTitle:
				event.Title = value
			case fieldDescription:
				event.Description = value
			case fieldLocation:
				event.Location = value
			case fieldAddress:
				event.Address = value
			case fieldExternalURL:
				event.ExternalURL = resolveURL(source.URL, value)
			case fieldExternalID:
				event.ExternalID = value
			}
		}

		if event.Title != "" {
			events = append(events, event)
		}
	}

	return events, nil
}

// getNestedValue walks a dot-separated path through decoded JSON, returning
// nil when any step is missing or not an object.
func getNestedValue(data interface{}, path string) interface{} {
	value := data
	for _, key := range strings.Split(path, ".") {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil
		}
		value, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return value
}

// stringifyJSONValue renders scalar JSON values as text; composites are not
// mappable and yield "".
func stringifyJSONValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		// JSON numbers decode as float64; render integers without the
		// trailing fraction.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}
