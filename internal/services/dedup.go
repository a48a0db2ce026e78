package services

import (
	"context"
	"math"
	"time"

	"yakima-events-scraper/internal/models"
)

const (
	// dedupTimeWindow: two events with the same title within this span of
	// each other count as the same event.
	dedupTimeWindow = 60 * time.Minute

	// dedupProximityKm: when both records carry coordinates, they must
	// also sit within this distance to count as duplicates.
	dedupProximityKm = 0.1

	earthRadiusKm = 6371.0
)

// Deduplicator decides whether a normalized event already exists in the
// store. Duplicates are skipped silently, which makes re-running a source
// idempotent.
type Deduplicator struct {
	events EventStore
}

func NewDeduplicator(events EventStore) *Deduplicator {
	return &Deduplicator{events: events}
}

// Exists reports whether an event with the same normalized title, a start
// time within the dedup window, and (when coordinates are available on both
// sides) a tight proximity match is already persisted.
func (d *Deduplicator) Exists(ctx context.Context, title string, start time.Time, lat, lng *float64) (bool, error) {
	candidates, err := d.events.FindByNormalizedTitle(ctx, models.NormalizeTitle(title))
	if err != nil {
		return false, err
	}

	for _, candidate := range candidates {
		delta := candidate.StartTime.Sub(start)
		if delta < 0 {
			delta = -delta
		}
		if delta > dedupTimeWindow {
			continue
		}

		if lat != nil && lng != nil && candidate.Latitude != nil && candidate.Longitude != nil {
			if haversineKm(*lat, *lng, *candidate.Latitude, *candidate.Longitude) > dedupProximityKm {
				continue
			}
		}

		return true, nil
	}

	return false, nil
}

// haversineKm computes the great-circle distance between two coordinate
// pairs in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
