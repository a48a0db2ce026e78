package services

import (
	"context"
	"testing"

	"yakima-events-scraper/internal/models"
)

// fixedGeocoder returns one coordinate pair for every lookup and records
// which addresses it saw.
type fixedGeocoder struct {
	lat, lng float64
	lookups  []string
}

func (g *fixedGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	g.lookups = append(g.lookups, address)
	return g.lat, g.lng, true, nil
}

func normalizerTestSource() *models.Source {
	return &models.Source{
		SourceID: "src-1",
		URL:      "https://events.example/calendar",
		Format:   models.FormatHTML,
	}
}

func TestNormalize(t *testing.T) {
	t.Run("CompleteRecord", func(t *testing.T) {
		n := NewEventNormalizer(nil)
		raw := models.RawEvent{
			Title:         "  Summer Concert &amp; Picnic  ",
			Description:   "Bring a blanket.",
			StartDatetime: "2025-07-04 18:00:00",
			EndDatetime:   "2025-07-04 21:00:00",
			Location:      "Franklin Park",
			ExternalURL:   "/events/summer-concert",
		}

		event, err := n.Normalize(context.Background(), raw, normalizerTestSource())
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}

		if event.Title != "Summer Concert & Picnic" {
			t.Errorf("Title = %q, want trimmed and unescaped", event.Title)
		}
		if FormatTimestamp(event.StartTime) != "2025-07-04 18:00:00" {
			t.Errorf("StartTime = %v", event.StartTime)
		}
		if event.EndTime == nil || FormatTimestamp(*event.EndTime) != "2025-07-04 21:00:00" {
			t.Errorf("EndTime = %v", event.EndTime)
		}
		if event.ExternalURL != "https://events.example/events/summer-concert" {
			t.Errorf("ExternalURL = %q", event.ExternalURL)
		}
		if event.ExternalID == "" {
			t.Error("ExternalID not generated")
		}
		if event.Status != models.EventStatusPending {
			t.Errorf("Status = %q, want pending", event.Status)
		}
		if event.EventID == "" || event.PK == "" || event.TitleKey == "" {
			t.Errorf("keys not populated: %+v", event)
		}
		if event.SourceID != "src-1" {
			t.Errorf("SourceID = %q", event.SourceID)
		}
	})

	t.Run("MissingTitle", func(t *testing.T) {
		n := NewEventNormalizer(nil)
		_, err := n.Normalize(context.Background(), models.RawEvent{StartDatetime: "2025-07-04 18:00:00"}, normalizerTestSource())
		if !IsValidationError(err) {
			t.Errorf("err = %v, want a validation error", err)
		}
	})

	t.Run("MissingStart", func(t *testing.T) {
		n := NewEventNormalizer(nil)
		_, err := n.Normalize(context.Background(), models.RawEvent{Title: "No When"}, normalizerTestSource())
		if !IsValidationError(err) {
			t.Errorf("err = %v, want a validation error", err)
		}
	})

	t.Run("FreeTextStartParses", func(t *testing.T) {
		n := NewEventNormalizer(nil)
		raw := models.RawEvent{Title: "Gallery Opening", StartDatetime: "June 15, 2025 7:00 PM"}

		event, err := n.Normalize(context.Background(), raw, normalizerTestSource())
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if event.StartTime.Day() != 15 {
			t.Errorf("StartTime = %v", event.StartTime)
		}
	})

	t.Run("GeocodesAddressFirst", func(t *testing.T) {
		geo := &fixedGeocoder{lat: 46.6021, lng: -120.5059}
		n := NewEventNormalizer(geo)
		raw := models.RawEvent{
			Title:         "Street Fair",
			StartDatetime: "2025-07-04 10:00:00",
			Location:      "Downtown Association",
			Address:       "Yakima, WA",
		}

		event, err := n.Normalize(context.Background(), raw, normalizerTestSource())
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if event.Latitude == nil || *event.Latitude != 46.6021 {
			t.Errorf("Latitude = %v", event.Latitude)
		}
		if len(geo.lookups) != 1 || geo.lookups[0] != "Yakima, WA" {
			t.Errorf("lookups = %v, want the address preferred over location", geo.lookups)
		}
	})

	t.Run("ExistingCoordinatesSkipGeocoder", func(t *testing.T) {
		geo := &fixedGeocoder{lat: 1, lng: 1}
		n := NewEventNormalizer(geo)
		lat, lng := 46.2, -119.7
		raw := models.RawEvent{
			Title:         "Vineyard Dinner",
			StartDatetime: "2025-07-04 18:00:00",
			Address:       "Prosser, WA",
			Latitude:      &lat,
			Longitude:     &lng,
		}

		event, err := n.Normalize(context.Background(), raw, normalizerTestSource())
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if *event.Latitude != 46.2 {
			t.Errorf("Latitude = %v, want parser-provided value kept", *event.Latitude)
		}
		if len(geo.lookups) != 0 {
			t.Errorf("geocoder called %d times, want 0", len(geo.lookups))
		}
	})

	t.Run("ParserExternalIDKept", func(t *testing.T) {
		n := NewEventNormalizer(nil)
		raw := models.RawEvent{
			Title:         "Ticketed Show",
			StartDatetime: "2025-07-04 20:00:00",
			ExternalID:    "show-998877",
		}

		event, err := n.Normalize(context.Background(), raw, normalizerTestSource())
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if event.ExternalID != "show-998877" {
			t.Errorf("ExternalID = %q, want the parser's value kept", event.ExternalID)
		}
	})
}
