package services

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Geocoder resolves address text to coordinates. It is called only when an
// event has a location but no coordinates; failures are never fatal to a
// run.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, ok bool, err error)
}

// GoogleGeocoder calls the Google Maps Geocoding API, caching results
// in-process since event listings repeat venues heavily.
type GoogleGeocoder struct {
	client *resty.Client
	apiKey string

	mu    sync.Mutex
	cache map[string][2]float64
}

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGoogleGeocoder creates a geocoder, or returns nil when no
// GOOGLE_MAPS_API_KEY is configured (geocoding is then skipped).
func NewGoogleGeocoder() *GoogleGeocoder {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil
	}

	return &GoogleGeocoder{
		client: resty.New().
			SetBaseURL("https://maps.googleapis.com").
			SetTimeout(10 * time.Second),
		apiKey: apiKey,
		cache:  make(map[string][2]float64),
	}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, bool, error) {
	if address == "" {
		return 0, 0, false, nil
	}

	g.mu.Lock()
	if coords, hit := g.cache[address]; hit {
		g.mu.Unlock()
		return coords[0], coords[1], true, nil
	}
	g.mu.Unlock()

	var parsed googleGeocodeResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address": address,
			"key":     g.apiKey,
			"region":  "us",
		}).
		SetResult(&parsed).
		Get("/maps/api/geocode/json")
	if err != nil {
		return 0, 0, false, err
	}
	if resp.IsError() {
		log.Printf("[GEOCODE] request for %q returned HTTP %d", address, resp.StatusCode())
		return 0, 0, false, nil
	}

	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return 0, 0, false, nil
	}

	loc := parsed.Results[0].Geometry.Location
	g.mu.Lock()
	g.cache[address] = [2]float64{loc.Lat, loc.Lng}
	g.mu.Unlock()

	return loc.Lat, loc.Lng, true, nil
}
