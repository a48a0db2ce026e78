package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yakima-events-scraper/internal/models"
)

func TestOptimizeSource(t *testing.T) {
	t.Run("HTMLSourcePersistsWinner", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, optimizerSchemaOrgSample)
		}))
		defer server.Close()

		store := newFakeStore()
		source := &models.Source{
			SourceID: "opt-1",
			URL:      server.URL,
			Format:   models.FormatHTML,
			Status:   models.SourceStatusActive,
		}
		store.sources[source.SourceID] = source

		optimizer := NewStrategyOptimizer(NewContentFetcher(), store, store)
		result, err := optimizer.OptimizeSource(context.Background(), source)
		if err != nil {
			t.Fatalf("OptimizeSource failed: %v", err)
		}

		if result.Strategy == nil {
			t.Fatal("expected a persisted strategy")
		}
		if result.Strategy.Name != "schema_org" {
			t.Errorf("strategy = %s, want schema_org", result.Strategy.Name)
		}
		if len(store.strategies) != 1 {
			t.Fatalf("stored strategies = %d, want 1", len(store.strategies))
		}

		// The persisted field cascades are a copy; mutating one strategy
		// must not bleed into the package defaults or later strategies.
		titleCascade := result.Strategy.FieldQueries[selectorTitle]
		if len(titleCascade) == 0 {
			t.Fatal("persisted strategy carries no title cascade")
		}
		original := strategyFieldCascades[selectorTitle][0]
		titleCascade[0] = "//mutated"
		if strategyFieldCascades[selectorTitle][0] != original {
			t.Errorf("mutating a stored strategy changed the shared cascade table: %q", strategyFieldCascades[selectorTitle][0])
		}
		result.Strategy.FieldQueries["extra"] = []string{"//added"}
		if _, ok := strategyFieldCascades["extra"]; ok {
			t.Error("adding a field to a stored strategy changed the shared cascade table")
		}

		// The rewritten config must replay through the generic parser.
		if source.StrategyID != result.Strategy.StrategyID {
			t.Errorf("source StrategyID = %q, want %q", source.StrategyID, result.Strategy.StrategyID)
		}
		container := source.Config.Selectors["event_container"]
		if !strings.HasPrefix(container, "//") {
			t.Errorf("container selector %q is not a structural query", container)
		}

		content := []byte(optimizerSchemaOrgSample)
		events, err := NewHTMLParser().Parse(context.Background(), content, source)
		if err != nil {
			t.Fatalf("replay parse failed: %v", err)
		}
		if len(events) != 3 {
			t.Errorf("replay extracted %d events, want 3", len(events))
		}
	})

	t.Run("NoViableStrategy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body><p>Nothing here.</p></body></html>")
		}))
		defer server.Close()

		store := newFakeStore()
		source := &models.Source{SourceID: "opt-2", URL: server.URL, Format: models.FormatHTML}
		store.sources[source.SourceID] = source

		optimizer := NewStrategyOptimizer(NewContentFetcher(), store, store)
		_, err := optimizer.OptimizeSource(context.Background(), source)
		if !errors.Is(err, ErrNoViableStrategy) {
			t.Errorf("err = %v, want ErrNoViableStrategy", err)
		}
		if len(store.strategies) != 0 {
			t.Errorf("stored strategies = %d, want 0", len(store.strategies))
		}
	})

	t.Run("CalendarValidation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, runnerCalendarFeed)
		}))
		defer server.Close()

		store := newFakeStore()
		source := &models.Source{SourceID: "opt-3", URL: server.URL, Format: models.FormatCalendar}
		store.sources[source.SourceID] = source

		optimizer := NewStrategyOptimizer(NewContentFetcher(), store, store)
		result, err := optimizer.OptimizeSource(context.Background(), source)
		if err != nil {
			t.Fatalf("OptimizeSource failed: %v", err)
		}
		if result.Format != models.FormatCalendar {
			t.Errorf("Format = %s", result.Format)
		}
		if result.EventCount != 2 {
			t.Errorf("EventCount = %d, want 2", result.EventCount)
		}
	})

	t.Run("JSONSchemaGuess", func(t *testing.T) {
		payload := `{"data": {"events": [
			{"title": "Night Market", "date": "2025-07-18", "venue": "Downtown"},
			{"title": "Jazz in the Park", "date": "2025-07-25", "venue": "Franklin Park"}
		]}}`
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, payload)
		}))
		defer server.Close()

		store := newFakeStore()
		source := &models.Source{SourceID: "opt-4", URL: server.URL, Format: models.FormatJSON}
		store.sources[source.SourceID] = source

		optimizer := NewStrategyOptimizer(NewContentFetcher(), store, store)
		result, err := optimizer.OptimizeSource(context.Background(), source)
		if err != nil {
			t.Fatalf("OptimizeSource failed: %v", err)
		}
		if result.Config.EventsPath != "data.events" {
			t.Errorf("EventsPath = %q", result.Config.EventsPath)
		}

		// The guessed config must drive the JSON parser end to end.
		events, err := NewJSONParser().Parse(context.Background(), []byte(payload), source)
		if err != nil {
			t.Fatalf("replay parse failed: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("replay extracted %d events, want 2", len(events))
		}
	})

	t.Run("FormatDetection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, runnerCalendarFeed)
		}))
		defer server.Close()

		store := newFakeStore()
		source := &models.Source{SourceID: "opt-5", URL: server.URL, Format: "unknown"}
		store.sources[source.SourceID] = source

		optimizer := NewStrategyOptimizer(NewContentFetcher(), store, store)
		result, err := optimizer.OptimizeSource(context.Background(), source)
		if err != nil {
			t.Fatalf("OptimizeSource failed: %v", err)
		}
		if result.Format != models.FormatCalendar {
			t.Errorf("detected format = %s, want calendar", result.Format)
		}
		if source.Format != models.FormatCalendar {
			t.Errorf("source format not rewritten: %s", source.Format)
		}
	})
}
