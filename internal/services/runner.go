package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"yakima-events-scraper/internal/models"
)

// RunState tracks where in the pipeline a source run currently is.
type RunState string

const (
	RunStateIdle        RunState = "idle"
	RunStateFetching    RunState = "fetching"
	RunStateParsing     RunState = "parsing"
	RunStateNormalizing RunState = "normalizing"
	RunStatePersisting  RunState = "persisting"
	RunStateSucceeded   RunState = "succeeded"
	RunStateFailed      RunState = "failed"
)

// defaultFailureThreshold is how many consecutive failed runs deactivate a
// source.
const defaultFailureThreshold = 5

// RunResult summarizes one source run.
type RunResult struct {
	RunID       string   `json:"run_id"`
	SourceID    string   `json:"source_id"`
	State       RunState `json:"state"`
	EventsFound int      `json:"events_found"`
	EventsAdded int      `json:"events_added"`
	Err         error    `json:"-"`
}

// SourceRunner drives the fetch, parse, normalize, dedupe, persist pipeline
// for one source at a time, keeping a run log entry per attempt and
// deactivating sources that fail too many runs in a row.
type SourceRunner struct {
	fetcher    *ContentFetcher
	parsers    *ParserRegistry
	normalizer *EventNormalizer
	dedup      *Deduplicator
	events     EventStore
	sources    SourceStore
	runs       RunLogStore
	archive    *ContentArchive

	failureThreshold int
}

func NewSourceRunner(fetcher *ContentFetcher, parsers *ParserRegistry, normalizer *EventNormalizer, dedup *Deduplicator, events EventStore, sources SourceStore, runs RunLogStore) *SourceRunner {
	return &SourceRunner{
		fetcher:          fetcher,
		parsers:          parsers,
		normalizer:       normalizer,
		dedup:            dedup,
		events:           events,
		sources:          sources,
		runs:             runs,
		failureThreshold: defaultFailureThreshold,
	}
}

// WithArchive enables best-effort archiving of raw fetched content per run.
func (r *SourceRunner) WithArchive(archive *ContentArchive) *SourceRunner {
	r.archive = archive
	return r
}

// RunSource executes the full pipeline for one source. Per-record
// validation failures drop individual events without failing the run;
// configuration, fetch, and parse failures fail the run, and every failed
// run counts toward deactivation.
func (r *SourceRunner) RunSource(ctx context.Context, source *models.Source) *RunResult {
	result := &RunResult{
		SourceID: source.SourceID,
		State:    RunStateIdle,
	}

	runLog := models.NewRunLog(source.SourceID)
	result.RunID = runLog.RunID
	if err := r.runs.StartRun(ctx, runLog); err != nil {
		// A missing run log entry is not worth aborting the run over.
		log.Printf("[RUNNER] Failed to record run start for source %s: %v", source.SourceID, err)
	}

	log.Printf("[RUNNER] Run %s started for source %s (%s)", runLog.RunID, source.SourceID, source.URL)

	// An invalid configuration fails the run like any parse failure would:
	// the log row and the deactivation counter must both see it, or a
	// permanently misconfigured source would stay active forever.
	if err := source.Validate(); err != nil {
		return r.failRun(ctx, source, runLog, result,
			&ConfigError{Format: source.Format, Message: err.Error()})
	}

	parser, ok := r.parsers.Get(source.Format)
	if !ok {
		return r.failRun(ctx, source, runLog, result,
			&ConfigError{Format: source.Format, Message: "no parser registered for this format"})
	}

	// AI crawl parsers fetch through their own provider; everything else
	// gets the shared HTTP fetch.
	var content []byte
	if source.Format != models.FormatAICrawl {
		result.State = RunStateFetching
		fetched, err := r.fetcher.Fetch(ctx, source.URL)
		if err != nil {
			return r.failRun(ctx, source, runLog, result, err)
		}
		content = fetched
		r.archiveContent(ctx, source, runLog, content)
	}

	result.State = RunStateParsing
	rawEvents, err := parser.Parse(ctx, content, source)
	if err != nil {
		return r.failRun(ctx, source, runLog, result, err)
	}
	result.EventsFound = len(rawEvents)

	result.State = RunStateNormalizing
	var normalized []*models.Event
	for i := range rawEvents {
		event, err := r.normalizer.Normalize(ctx, rawEvents[i], source)
		if err != nil {
			if IsValidationError(err) {
				log.Printf("[RUNNER] Dropping invalid event from source %s: %v", source.SourceID, err)
				continue
			}
			return r.failRun(ctx, source, runLog, result, err)
		}
		normalized = append(normalized, event)
	}

	result.State = RunStatePersisting
	for _, event := range normalized {
		exists, err := r.dedup.Exists(ctx, event.Title, event.StartTime, event.Latitude, event.Longitude)
		if err != nil {
			log.Printf("[RUNNER] Duplicate check failed for %q, skipping: %v", event.Title, err)
			continue
		}
		if exists {
			continue
		}
		if err := r.events.CreateEvent(ctx, event); err != nil {
			log.Printf("[RUNNER] Failed to persist event %q: %v", event.Title, err)
			continue
		}
		result.EventsAdded++
	}

	if err := r.sources.UpdateLastScraped(ctx, source.SourceID, time.Now().UTC()); err != nil {
		log.Printf("[RUNNER] Failed to update last-scraped time for source %s: %v", source.SourceID, err)
	}

	runLog.Complete(models.RunStatusSuccess, result.EventsFound, result.EventsAdded, "")
	if err := r.runs.CompleteRun(ctx, runLog); err != nil {
		log.Printf("[RUNNER] Failed to record run completion for source %s: %v", source.SourceID, err)
	}

	result.State = RunStateSucceeded
	log.Printf("[RUNNER] Run %s finished for source %s: %d found, %d added",
		runLog.RunID, source.SourceID, result.EventsFound, result.EventsAdded)
	if result.EventsFound < OptimizerQualityThreshold {
		log.Printf("[RUNNER] Source %s yielded only %d events, candidate for re-optimization",
			source.SourceID, result.EventsFound)
	}
	return result
}

// RunAll runs every active source in sequence. A failed source never aborts
// the batch.
func (r *SourceRunner) RunAll(ctx context.Context) ([]*RunResult, error) {
	sources, err := r.sources.ListActiveSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	log.Printf("[RUNNER] Running %d active sources", len(sources))

	results := make([]*RunResult, 0, len(sources))
	for i := range sources {
		result := r.RunSource(ctx, &sources[i])
		if result.Err != nil {
			log.Printf("[RUNNER] Source %s failed: %v", result.SourceID, result.Err)
		}
		results = append(results, result)
	}

	return results, nil
}

func (r *SourceRunner) failRun(ctx context.Context, source *models.Source, runLog *models.RunLog, result *RunResult, runErr error) *RunResult {
	result.State = RunStateFailed
	result.Err = runErr

	runLog.Complete(models.RunStatusFailed, result.EventsFound, result.EventsAdded, runErr.Error())
	if err := r.runs.CompleteRun(ctx, runLog); err != nil {
		log.Printf("[RUNNER] Failed to record run failure for source %s: %v", source.SourceID, err)
	}

	r.checkForDeactivation(ctx, source)
	return result
}

// checkForDeactivation deactivates the source when its most recent runs,
// including the one that just failed, are all failures.
func (r *SourceRunner) checkForDeactivation(ctx context.Context, source *models.Source) {
	recent, err := r.runs.RecentRuns(ctx, source.SourceID, r.failureThreshold)
	if err != nil {
		log.Printf("[RUNNER] Failed to load run history for source %s: %v", source.SourceID, err)
		return
	}
	if len(recent) < r.failureThreshold {
		return
	}

	for _, run := range recent {
		if run.Status != models.RunStatusFailed {
			return
		}
	}

	log.Printf("[RUNNER] Source %s failed %d consecutive runs, deactivating", source.SourceID, r.failureThreshold)
	if err := r.sources.DeactivateSource(ctx, source.SourceID); err != nil {
		log.Printf("[RUNNER] Failed to deactivate source %s: %v", source.SourceID, err)
	}
}

func (r *SourceRunner) archiveContent(ctx context.Context, source *models.Source, runLog *models.RunLog, content []byte) {
	if r.archive == nil || len(content) == 0 {
		return
	}

	key, err := r.archive.Store(ctx, source.SourceID, runLog.RunID, content)
	if err != nil {
		log.Printf("[RUNNER] Failed to archive content for source %s: %v", source.SourceID, err)
		return
	}
	runLog.ArchiveKey = key
}
