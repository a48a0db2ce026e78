package services

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
)

const optimizerSchemaOrgSample = `<!DOCTYPE html>
<html><body>
<div itemtype="http://schema.org/Event">
  <h2>Cider Fest</h2>
  <span class="date">2025-10-18</span>
  <span class="location">Tieton</span>
</div>
<div itemtype="http://schema.org/Event">
  <h2>Harvest Parade</h2>
  <span class="date">2025-10-25</span>
</div>
<div itemtype="http://schema.org/Event">
  <h2>Pumpkin Patch Weekend</h2>
  <span class="date">2025-10-26</span>
</div>
</body></html>`

const optimizerGenericSample = `<!DOCTYPE html>
<html><body>
<div class="listing">
  <div><h3>Open Mic Night</h3><a href="/open-mic">More</a></div>
  <div><h3>Trivia Tuesday</h3><a href="/trivia">More</a></div>
</div>
</body></html>`

func TestEvaluateStrategies(t *testing.T) {
	t.Run("SchemaOrgWins", func(t *testing.T) {
		doc, err := htmlquery.Parse(strings.NewReader(optimizerSchemaOrgSample))
		if err != nil {
			t.Fatalf("parse fixture: %v", err)
		}

		evaluations := evaluateStrategies(doc)
		if len(evaluations) == 0 {
			t.Fatal("expected at least one scored strategy")
		}

		var best *StrategyEvaluation
		for i := range evaluations {
			if best == nil || evaluations[i].Score > best.Score {
				best = &evaluations[i]
			}
		}

		t.Logf("winner: %s (score %d, %d nodes)", best.Candidate.Name, best.Score, best.NodeCount)
		if best.Candidate.Name != "schema_org" {
			t.Errorf("best strategy = %s, want schema_org", best.Candidate.Name)
		}
		if best.NodeCount != 3 {
			t.Errorf("NodeCount = %d, want 3", best.NodeCount)
		}
		// All three sampled nodes carry a title and a date
		if best.ValidSamples != 3 {
			t.Errorf("ValidSamples = %d, want 3", best.ValidSamples)
		}
		wantScore := 3*validSampleWeight + 3
		if best.Score != wantScore {
			t.Errorf("Score = %d, want %d", best.Score, wantScore)
		}
	})

	t.Run("GenericContainersFallback", func(t *testing.T) {
		doc, err := htmlquery.Parse(strings.NewReader(optimizerGenericSample))
		if err != nil {
			t.Fatalf("parse fixture: %v", err)
		}

		evaluations := evaluateStrategies(doc)
		found := false
		for _, eval := range evaluations {
			if eval.Candidate.Name == "generic_containers" && eval.Score > 0 {
				found = true
			}
		}
		if !found {
			t.Error("expected generic_containers to score on a plain listing")
		}
	})

	t.Run("NothingMatches", func(t *testing.T) {
		doc, err := htmlquery.Parse(strings.NewReader("<html><body><p>Closed for the season.</p></body></html>"))
		if err != nil {
			t.Fatalf("parse fixture: %v", err)
		}

		for _, eval := range evaluateStrategies(doc) {
			if eval.ValidSamples > 0 {
				t.Errorf("strategy %s reported valid samples on an empty page", eval.Candidate.Name)
			}
		}
	})
}

func TestMatchCountCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 80; i++ {
		b.WriteString(`<li class="event"><h3>Recurring Event</h3><span class="date">2025-06-01</span></li>`)
	}
	b.WriteString("</body></html>")

	doc, err := htmlquery.Parse(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	for _, eval := range evaluateStrategies(doc) {
		if eval.Candidate.Name != "event_items" {
			continue
		}
		if eval.NodeCount != 80 {
			t.Errorf("NodeCount = %d, want 80", eval.NodeCount)
		}
		wantScore := strategySampleLimit*validSampleWeight + matchCountCap
		if eval.Score != wantScore {
			t.Errorf("Score = %d, want capped %d", eval.Score, wantScore)
		}
		return
	}
	t.Fatal("event_items strategy not evaluated")
}

func TestFindJSONEventPaths(t *testing.T) {
	t.Run("NestedArray", func(t *testing.T) {
		var data interface{}
		payload := `{
			"status": "ok",
			"response": {
				"upcoming": [
					{"title": "Night Market", "date": "2025-07-18", "venue": "Downtown"},
					{"title": "Jazz in the Park", "date": "2025-07-25", "venue": "Franklin Park"}
				],
				"tags": ["market", "music"]
			}
		}`
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			t.Fatalf("unmarshal fixture: %v", err)
		}

		paths := findJSONEventPaths(data, "")
		if len(paths) != 1 {
			t.Fatalf("paths = %d, want 1", len(paths))
		}
		if paths[0].Path != "response.upcoming" {
			t.Errorf("Path = %q, want response.upcoming", paths[0].Path)
		}
		if paths[0].Count != 2 {
			t.Errorf("Count = %d, want 2", paths[0].Count)
		}
		if paths[0].Mapping["title"] != "title" {
			t.Errorf("Mapping[title] = %q", paths[0].Mapping["title"])
		}
		if paths[0].Mapping["start_datetime"] != "date" {
			t.Errorf("Mapping[start_datetime] = %q", paths[0].Mapping["start_datetime"])
		}
		if paths[0].Mapping["location"] != "venue" {
			t.Errorf("Mapping[location] = %q", paths[0].Mapping["location"])
		}
	})

	t.Run("LargestArrayRanksFirst", func(t *testing.T) {
		var data interface{}
		payload := `{
			"featured": [{"title": "One", "date": "2025-01-01"}],
			"all": [
				{"title": "A", "date": "2025-01-01"},
				{"title": "B", "date": "2025-01-02"},
				{"title": "C", "date": "2025-01-03"}
			]
		}`
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			t.Fatalf("unmarshal fixture: %v", err)
		}

		paths := findJSONEventPaths(data, "")
		if len(paths) != 2 {
			t.Fatalf("paths = %d, want 2", len(paths))
		}
		if paths[0].Path != "all" {
			t.Errorf("first path = %q, want all", paths[0].Path)
		}
	})

	t.Run("SingleMarkerRejected", func(t *testing.T) {
		var data interface{}
		payload := `{"products": [{"name": "T-Shirt", "price": 20}]}`
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			t.Fatalf("unmarshal fixture: %v", err)
		}

		if paths := findJSONEventPaths(data, ""); len(paths) != 0 {
			t.Errorf("paths = %v, want none for a non-event array", paths)
		}
	})
}
