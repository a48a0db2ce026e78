package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"yakima-events-scraper/internal/models"
)

const (
	// OptimizerQualityThreshold is the per-run event yield below which a
	// source is considered a candidate for re-optimization.
	OptimizerQualityThreshold = 3

	// strategySampleLimit bounds how many matched nodes are sampled for
	// field extraction when scoring a candidate.
	strategySampleLimit = 3

	// validSampleWeight multiplies the count of sample nodes that yielded
	// both a title and a date. Quality outweighs quantity.
	validSampleWeight = 10

	// matchCountCap limits how much raw match volume can contribute to a
	// score.
	matchCountCap = 50
)

// CandidateStrategy is one structural-query shape the optimizer tries
// against an HTML document.
type CandidateStrategy struct {
	Name  string
	Query string
}

// candidateStrategies is the fixed, ordered list of shapes to evaluate,
// from the most explicit markup (schema.org) down to generic containers.
var candidateStrategies = []CandidateStrategy{
	{"schema_org", `//*[@itemtype="http://schema.org/Event"]`},
	{"event_classes", `//*[contains(@class, "event")]`},
	{"article_events", `//article[contains(@class, "event")]`},
	{"event_items", `//li[contains(@class, "event")]`},
	{"calendar_events", `//*[contains(@class, "calendar")]//li`},
	{"structured_lists", `//ul//li[a and (h1 or h2 or h3)]`},
	{"date_containers", `//*[contains(@class, "date") or contains(@class, "time")]/..`},
	{"event_title_links", `//a[contains(@href, "event")]/..`},
	{"generic_containers", `//div[h2 or h3][descendant::a]`},
}

// strategyFieldCascades lists, per field, the sub-selectors tried in order
// against a sampled node. Extraction stops at the first non-empty result.
var strategyFieldCascades = map[string][]string{
	selectorTitle: {
		`.//h1`, `.//h2`, `.//h3`, `.//h4`,
		`.//*[contains(@class, "title")]`,
		`.//*[contains(@class, "name")]`,
		`.//a[contains(@href, "event")]`,
		`.//strong`, `.//b`,
	},
	selectorDatetime: {
		`.//*[contains(@class, "date")]`,
		`.//*[contains(@class, "time")]`,
		`.//*[contains(@class, "when")]`,
		`.//*[@datetime]`,
	},
	selectorLocation: {
		`.//*[contains(@class, "location")]`,
		`.//*[contains(@class, "venue")]`,
		`.//*[contains(@class, "place")]`,
		`.//*[contains(@class, "where")]`,
	},
}

// jsonFieldSynonyms maps canonical fields to the source field names that
// commonly carry them, in preference order.
var jsonFieldSynonyms = map[string][]string{
	fieldTitle:         {"title", "name", "event_name", "summary"},
	fieldStartDatetime: {"start", "start_date", "date", "datetime", "when", "start_time"},
	fieldEndDatetime:   {"end", "end_date", "end_time"},
	fieldLocation:      {"location", "venue", "place", "where"},
	fieldDescription:   {"description", "summary", "details", "content"},
}

// jsonEventMarkers are the field names used to recognize an array of
// event-like records; at least two must be present.
var jsonEventMarkers = []string{"title", "name", "event", "date", "time", "start", "when"}

const jsonEventMarkerMinimum = 2

// StrategyEvaluation captures the scoring of one candidate against a
// document.
type StrategyEvaluation struct {
	Candidate    CandidateStrategy
	NodeCount    int
	ValidSamples int
	Score        int
	Samples      []models.RawEvent
}

// OptimizationResult is what an optimization request produces: the format
// the source settled on, the rewritten config, and, for HTML sources, the
// winning persisted strategy.
type OptimizationResult struct {
	SourceID   string              `json:"source_id"`
	Format     string              `json:"format"`
	Config     models.SourceConfig `json:"config"`
	Strategy   *models.Strategy    `json:"strategy,omitempty"`
	EventCount int                 `json:"event_count"`
}

// StrategyOptimizer finds a working extraction recipe for sources whose
// runs yield too few events, or whose format is unknown.
type StrategyOptimizer struct {
	fetcher    *ContentFetcher
	sources    SourceStore
	strategies StrategyStore
}

func NewStrategyOptimizer(fetcher *ContentFetcher, sources SourceStore, strategies StrategyStore) *StrategyOptimizer {
	return &StrategyOptimizer{fetcher: fetcher, sources: sources, strategies: strategies}
}

// OptimizeSource analyzes the source's current content and persists an
// improved configuration. HTML sources get full strategy scoring; calendar
// and JSON sources degrade to format validation plus, for JSON, a schema
// guess. Unknown formats are detected by sniffing first.
func (o *StrategyOptimizer) OptimizeSource(ctx context.Context, source *models.Source) (*OptimizationResult, error) {
	log.Printf("[OPTIMIZER] Analyzing source %s (%s, format %q)", source.SourceID, source.URL, source.Format)

	content, err := o.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	switch source.Format {
	case models.FormatHTML, models.FormatRegionalHTML:
		return o.optimizeHTML(ctx, source, content)
	case models.FormatCalendar:
		return o.validateCalendar(ctx, source, content)
	case models.FormatJSON:
		return o.optimizeJSON(ctx, source, content)
	default:
		return o.detectAndOptimize(ctx, source, content)
	}
}

func (o *StrategyOptimizer) optimizeHTML(ctx context.Context, source *models.Source, content []byte) (*OptimizationResult, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: models.FormatHTML, Message: "invalid document", Err: err}
	}

	evaluations := evaluateStrategies(doc)

	var best *StrategyEvaluation
	for i := range evaluations {
		eval := &evaluations[i]
		log.Printf("[OPTIMIZER]   %s: %d nodes, %d valid samples, score %d",
			eval.Candidate.Name, eval.NodeCount, eval.ValidSamples, eval.Score)
		if eval.Score > 0 && (best == nil || eval.Score > best.Score) {
			best = eval
		}
	}

	if best == nil {
		return nil, ErrNoViableStrategy
	}

	log.Printf("[OPTIMIZER] Best strategy for source %s: %s (score %d)",
		source.SourceID, best.Candidate.Name, best.Score)

	strategy := &models.Strategy{
		PK:             models.CreateSourcePK(source.SourceID),
		StrategyID:     models.GenerateStrategyID(),
		SourceID:       source.SourceID,
		Name:           best.Candidate.Name,
		ContainerQuery: best.Candidate.Query,
		FieldQueries:   copyFieldCascades(strategyFieldCascades),
		Score:          best.Score,
		NodeCount:      best.NodeCount,
		ValidSamples:   best.ValidSamples,
		CreatedAt:      time.Now().UTC(),
	}
	strategy.SK = models.CreateStrategySK(strategy.StrategyID)

	config := models.SourceConfig{
		Selectors: map[string]string{
			selectorContainer: strategy.ContainerQuery,
			selectorTitle:     strings.Join(strategyFieldCascades[selectorTitle], " | "),
			selectorDatetime:  strings.Join(strategyFieldCascades[selectorDatetime], " | "),
			selectorLocation:  strings.Join(strategyFieldCascades[selectorLocation], " | "),
			selectorURL:       `.//a[@href]`,
		},
	}

	if err := o.strategies.SaveStrategy(ctx, strategy); err != nil {
		return nil, fmt.Errorf("failed to persist strategy: %w", err)
	}
	if err := o.sources.UpdateSourceConfig(ctx, source.SourceID, models.FormatHTML, config, strategy.StrategyID); err != nil {
		return nil, fmt.Errorf("failed to update source config: %w", err)
	}

	return &OptimizationResult{
		SourceID:   source.SourceID,
		Format:     models.FormatHTML,
		Config:     config,
		Strategy:   strategy,
		EventCount: best.NodeCount,
	}, nil
}

// evaluateStrategies scores every candidate against a parsed document.
func evaluateStrategies(doc *html.Node) []StrategyEvaluation {
	var evaluations []StrategyEvaluation

	for _, candidate := range candidateStrategies {
		nodes := queryAll(doc, candidate.Query)
		if len(nodes) == 0 {
			continue
		}

		samples := extractSampleEvents(nodes, strategySampleLimit)
		valid := 0
		for _, sample := range samples {
			if sample.Title != "" && sample.StartDatetime != "" {
				valid++
			}
		}

		matchCount := len(nodes)
		if matchCount > matchCountCap {
			matchCount = matchCountCap
		}

		evaluations = append(evaluations, StrategyEvaluation{
			Candidate:    candidate,
			NodeCount:    len(nodes),
			ValidSamples: valid,
			Score:        valid*validSampleWeight + matchCount,
			Samples:      samples,
		})
	}

	return evaluations
}

// extractSampleEvents runs the per-field sub-selector cascades over up to
// limit matched nodes. A sample is kept only when it yields a title.
func extractSampleEvents(nodes []*html.Node, limit int) []models.RawEvent {
	var samples []models.RawEvent

	for _, node := range nodes {
		if len(samples) >= limit {
			break
		}

		sample := models.RawEvent{
			Title:    extractFirstMatch(node, strategyFieldCascades[selectorTitle]),
			Location: extractFirstMatch(node, strategyFieldCascades[selectorLocation]),
		}
		// The raw date text matters for scoring even when it does not
		// parse; the cascade result is kept as-is.
		sample.StartDatetime = extractFirstMatch(node, strategyFieldCascades[selectorDatetime])

		if sample.Title != "" {
			samples = append(samples, sample)
		}
	}

	return samples
}

// copyFieldCascades deep-copies the cascade table so a persisted strategy
// never aliases the package-level defaults.
func copyFieldCascades(cascades map[string][]string) map[string][]string {
	copied := make(map[string][]string, len(cascades))
	for field, cascade := range cascades {
		copied[field] = append([]string(nil), cascade...)
	}
	return copied
}

// extractFirstMatch walks a sub-selector cascade and returns the first
// non-empty text it finds.
func extractFirstMatch(node *html.Node, cascade []string) string {
	for _, query := range cascade {
		if match := queryFirst(node, query); match != nil {
			if text := strings.TrimSpace(htmlquery.InnerText(match)); text != "" {
				return text
			}
		}
	}
	return ""
}

func (o *StrategyOptimizer) validateCalendar(ctx context.Context, source *models.Source, content []byte) (*OptimizationResult, error) {
	text := string(content)
	if !strings.Contains(text, "BEGIN:VCALENDAR") {
		return nil, &ParseError{Format: models.FormatCalendar, Message: "missing VCALENDAR marker"}
	}
	if !strings.Contains(text, calendarBeginEvent) {
		return nil, &ParseError{Format: models.FormatCalendar, Message: "feed contains no events"}
	}

	eventCount := strings.Count(text, calendarBeginEvent)
	log.Printf("[OPTIMIZER] Calendar source %s validated: %d events", source.SourceID, eventCount)

	config := models.SourceConfig{}
	if err := o.sources.UpdateSourceConfig(ctx, source.SourceID, models.FormatCalendar, config, ""); err != nil {
		return nil, fmt.Errorf("failed to update source config: %w", err)
	}

	return &OptimizationResult{
		SourceID:   source.SourceID,
		Format:     models.FormatCalendar,
		Config:     config,
		EventCount: eventCount,
	}, nil
}

func (o *StrategyOptimizer) optimizeJSON(ctx context.Context, source *models.Source, content []byte) (*OptimizationResult, error) {
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, &ParseError{Format: models.FormatJSON, Message: "invalid JSON", Err: err}
	}

	paths := findJSONEventPaths(data, "")
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no event-like array found in JSON", ErrNoViableStrategy)
	}

	best := paths[0]
	log.Printf("[OPTIMIZER] JSON source %s: best path %q with %d records", source.SourceID, best.Path, best.Count)

	config := models.SourceConfig{
		EventsPath:   best.Path,
		FieldMapping: best.Mapping,
	}
	if err := o.sources.UpdateSourceConfig(ctx, source.SourceID, models.FormatJSON, config, ""); err != nil {
		return nil, fmt.Errorf("failed to update source config: %w", err)
	}

	return &OptimizationResult{
		SourceID:   source.SourceID,
		Format:     models.FormatJSON,
		Config:     config,
		EventCount: best.Count,
	}, nil
}

// detectAndOptimize sniffs the content format for sources whose declared
// format is unknown, then runs the matching optimization path.
func (o *StrategyOptimizer) detectAndOptimize(ctx context.Context, source *models.Source, content []byte) (*OptimizationResult, error) {
	text := string(content)

	switch {
	case strings.Contains(text, "BEGIN:VCALENDAR"):
		log.Printf("[OPTIMIZER] Detected calendar format for source %s", source.SourceID)
		return o.validateCalendar(ctx, source, content)
	case json.Valid(content):
		log.Printf("[OPTIMIZER] Detected JSON format for source %s", source.SourceID)
		return o.optimizeJSON(ctx, source, content)
	case strings.Contains(text, "<html") || strings.Contains(text, "<!DOCTYPE"):
		log.Printf("[OPTIMIZER] Detected HTML format for source %s", source.SourceID)
		return o.optimizeHTML(ctx, source, content)
	default:
		return nil, &ParseError{Format: source.Format, Message: "unable to detect source format"}
	}
}

// jsonEventPath describes one array of event-like records found while
// walking a JSON document.
type jsonEventPath struct {
	Path    string
	Count   int
	Mapping map[string]string
}

// findJSONEventPaths walks the document recursively, collecting every array
// whose records look like events, ranked by record count descending.
func findJSONEventPaths(data interface{}, path string) []jsonEventPath {
	var results []jsonEventPath

	obj, ok := data.(map[string]interface{})
	if !ok {
		return results
	}

	for key, value := range obj {
		currentPath := key
		if path != "" {
			currentPath = path + "." + key
		}

		if arr, ok := value.([]interface{}); ok && looksLikeEventArray(arr) {
			results = append(results, jsonEventPath{
				Path:    currentPath,
				Count:   len(arr),
				Mapping: guessFieldMapping(arr),
			})
		}

		results = append(results, findJSONEventPaths(value, currentPath)...)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Count > results[j].Count })
	return results
}

// looksLikeEventArray requires the first record to be an object sharing at
// least two of the known event-like field names.
func looksLikeEventArray(arr []interface{}) bool {
	if len(arr) == 0 {
		return false
	}

	first, ok := arr[0].(map[string]interface{})
	if !ok {
		return false
	}

	matches := 0
	for _, marker := range jsonEventMarkers {
		if _, present := first[marker]; present {
			matches++
		}
	}
	return matches >= jsonEventMarkerMinimum
}

// guessFieldMapping matches the first record's field names against common
// synonyms for each canonical field.
func guessFieldMapping(arr []interface{}) map[string]string {
	mapping := make(map[string]string)

	first, ok := arr[0].(map[string]interface{})
	if !ok {
		return mapping
	}

	for canonical, synonyms := range jsonFieldSynonyms {
		for _, synonym := range synonyms {
			if _, present := first[synonym]; present {
				mapping[canonical] = synonym
				break
			}
		}
	}

	return mapping
}
