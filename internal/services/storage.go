package services

import (
	"context"
	"time"

	"yakima-events-scraper/internal/models"
)

// EventStore is the persistence contract for canonical events. The
// duplicate-check query and the insert are each their own unit of work; no
// multi-event transaction is required.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	// FindByNormalizedTitle returns persisted events whose normalized
	// title matches, for the deduplicator to inspect.
	FindByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]models.Event, error)
}

// SourceStore is the persistence contract for source records.
type SourceStore interface {
	GetSource(ctx context.Context, sourceID string) (*models.Source, error)
	ListActiveSources(ctx context.Context) ([]models.Source, error)
	// UpdateSourceConfig rewrites a source's extraction recipe, usually on
	// behalf of the strategy optimizer.
	UpdateSourceConfig(ctx context.Context, sourceID, format string, config models.SourceConfig, strategyID string) error
	UpdateLastScraped(ctx context.Context, sourceID string, scrapedAt time.Time) error
	// DeactivateSource flips a failing source inactive. Sources are never
	// deleted by the pipeline.
	DeactivateSource(ctx context.Context, sourceID string) error
}

// StrategyStore persists optimizer strategies.
type StrategyStore interface {
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
}

// RunLogStore records run history. The history is append-only and drives
// the source-deactivation policy.
type RunLogStore interface {
	StartRun(ctx context.Context, run *models.RunLog) error
	CompleteRun(ctx context.Context, run *models.RunLog) error
	// RecentRuns returns up to limit runs for a source, newest first.
	RecentRuns(ctx context.Context, sourceID string, limit int) ([]models.RunLog, error)
}
