package services

import (
	"errors"
	"fmt"
)

// ErrNoViableStrategy is returned by the strategy optimizer when every
// candidate strategy scored zero.
var ErrNoViableStrategy = errors.New("no viable extraction strategy found")

// FetchError reports a failed content fetch: transport error, timeout, or a
// non-2xx response. The fetcher never retries; retry policy belongs to the
// caller.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s failed with HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s failed: %s", e.URL, e.Message)
}

// ParseError reports content that is structurally invalid for the source's
// declared format.
type ParseError struct {
	Format  string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s content: %s: %v", e.Format, e.Message, e.Err)
	}
	return fmt.Sprintf("parse %s content: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError reports a source configuration that is structurally invalid
// for its declared format. It is treated like a ParseError at the run
// boundary.
type ConfigError struct {
	Format  string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s source configuration: %s", e.Format, e.Message)
}

// ValidationError marks a single raw event that is missing a required field.
// It is never fatal to a run: the record is dropped and the drop shows up
// only in the found/added delta.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event record missing required field %q", e.Field)
}

// IsValidationError reports whether err is a per-record validation drop.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
