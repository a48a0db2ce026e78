package models

import "time"

// Run status constants
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunLog is the append-only record of one pipeline execution against one
// source. A row is opened when the run starts and completed when it ends;
// the history drives source deactivation after sustained failure.
type RunLog struct {
	// Primary Keys
	PK string `json:"PK" dynamodbav:"PK"` // SOURCE#{source_id}
	SK string `json:"SK" dynamodbav:"SK"` // RUN#{started_at}#{run_id}

	RunID    string `json:"run_id" dynamodbav:"run_id"`
	SourceID string `json:"source_id" dynamodbav:"source_id"`

	StartedAt   time.Time `json:"started_at" dynamodbav:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty" dynamodbav:"completed_at,omitempty"`

	EventsFound int `json:"events_found" dynamodbav:"events_found"`
	EventsAdded int `json:"events_added" dynamodbav:"events_added"`

	Status       string `json:"status" dynamodbav:"status"` // running, success, failed
	ErrorMessage string `json:"error_message,omitempty" dynamodbav:"error_message,omitempty"`

	// Key of the archived raw payload, when one was stored
	ArchiveKey string `json:"archive_key,omitempty" dynamodbav:"archive_key,omitempty"`
}

// NewRunLog opens a run record for the given source.
func NewRunLog(sourceID string) *RunLog {
	now := time.Now().UTC()
	runID := GenerateRunID(sourceID, now)
	return &RunLog{
		PK:        CreateSourcePK(sourceID),
		SK:        CreateRunSK(now, runID),
		RunID:     runID,
		SourceID:  sourceID,
		StartedAt: now,
		Status:    RunStatusRunning,
	}
}

// Complete closes the run record with final counts and status.
func (r *RunLog) Complete(status string, found, added int, errMsg string) {
	r.CompletedAt = time.Now().UTC()
	r.Status = status
	r.EventsFound = found
	r.EventsAdded = added
	r.ErrorMessage = errMsg
}

// Failed reports whether this run ended in failure.
func (r *RunLog) Failed() bool {
	return r.Status == RunStatusFailed
}

// CreateRunSK builds the sort key for a run log row. The RFC3339 timestamp
// prefix keeps runs for a source in chronological order.
func CreateRunSK(startedAt time.Time, runID string) string {
	return "RUN#" + startedAt.Format(time.RFC3339) + "#" + runID
}
