package services

import (
	"context"
	"html"
	"log"
	"strings"
	"time"

	"yakima-events-scraper/internal/models"
)

// EventNormalizer maps raw parser output into the canonical event shape:
// trimming and unescaping text, resolving relative URLs, parsing canonical
// timestamps, and filling missing coordinates through the geocoder.
type EventNormalizer struct {
	geocoder Geocoder
}

// NewEventNormalizer creates a normalizer. geocoder may be nil, in which
// case coordinate resolution is skipped.
func NewEventNormalizer(geocoder Geocoder) *EventNormalizer {
	return &EventNormalizer{geocoder: geocoder}
}

// Normalize converts a RawEvent into a persistable Event. Records missing a
// title or start time fail with *ValidationError; the caller drops them
// without failing the run.
func (n *EventNormalizer) Normalize(ctx context.Context, raw models.RawEvent, source *models.Source) (*models.Event, error) {
	title := cleanText(raw.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title"}
	}

	start, ok := parseRawTimestamp(raw.StartDatetime)
	if !ok {
		return nil, &ValidationError{Field: "start_time"}
	}

	event := &models.Event{
		Title:       title,
		Description: cleanText(raw.Description),
		StartTime:   start,
		Location:    cleanText(raw.Location),
		Address:     cleanText(raw.Address),
		ExternalURL: resolveURL(source.URL, raw.ExternalURL),
		ExternalID:  strings.TrimSpace(raw.ExternalID),
		Categories:  raw.Categories,
		SourceID:    source.SourceID,
		Status:      models.EventStatusPending,
		ScrapedAt:   time.Now().UTC(),
		Latitude:    raw.Latitude,
		Longitude:   raw.Longitude,
	}

	if end, ok := parseRawTimestamp(raw.EndDatetime); ok {
		event.EndTime = &end
	}

	if event.ExternalID == "" && (event.ExternalURL != "" || event.Title != "") {
		event.ExternalID = models.GenerateExternalID(event.ExternalURL, event.Title)
	}

	if event.Latitude == nil && n.geocoder != nil {
		address := event.Address
		if address == "" {
			address = event.Location
		}
		if address != "" {
			lat, lng, found, err := n.geocoder.Geocode(ctx, address)
			if err != nil {
				log.Printf("[NORMALIZE] geocoding %q failed: %v", address, err)
			} else if found {
				event.Latitude = &lat
				event.Longitude = &lng
			}
		}
	}

	event.EventID = models.GenerateEventID(title, FormatTimestamp(start), event.Location)
	event.PK = models.CreateEventPK(event.EventID)
	event.SK = models.CreateEventMetadataSK()
	event.TitleKey = models.GenerateEventTitleKey(models.NormalizeTitle(title))
	event.SourceKey = models.GenerateEventSourceKey(source.SourceID)

	return event, nil
}

// parseRawTimestamp reads a RawEvent datetime field: canonical form first,
// then a best-effort generic parse for parsers that pass text through.
func parseRawTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(models.TimestampLayout, value); err == nil {
		return t, true
	}
	return ParseGeneric(value)
}

// cleanText trims whitespace and undoes HTML entity escaping.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
