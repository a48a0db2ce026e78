package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateEventID creates a deterministic ID for an event based on its core
// attributes, so re-scraping the same event yields the same ID.
func GenerateEventID(title, start, location string) string {
	normalizedTitle := strings.ToLower(strings.TrimSpace(title))
	normalizedStart := strings.TrimSpace(start)
	normalizedLocation := strings.ToLower(strings.TrimSpace(location))

	input := fmt.Sprintf("%s|%s|%s", normalizedTitle, normalizedStart, normalizedLocation)
	hash := sha256.Sum256([]byte(input))

	return "evt_" + hex.EncodeToString(hash[:])[:8]
}

// GenerateExternalID derives a stable external event ID for sources that do
// not supply one, hashing the external URL when present and falling back to
// the title.
func GenerateExternalID(externalURL, title string) string {
	input := externalURL
	if input == "" {
		input = title
	}
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// GenerateRunID creates a unique ID for a pipeline run.
func GenerateRunID(sourceID string, startedAt time.Time) string {
	input := fmt.Sprintf("%s|%d|%s", sourceID, startedAt.UnixNano(), uuid.NewString())
	hash := sha256.Sum256([]byte(input))
	return "run_" + hex.EncodeToString(hash[:])[:8]
}

// GenerateStrategyID creates a unique ID for an optimizer strategy.
func GenerateStrategyID() string {
	return "strat_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NormalizeTitle lowercases and collapses whitespace so titles from
// different sources compare consistently during deduplication.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(title))), " ")
}
