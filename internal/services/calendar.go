package services

import (
	"context"
	"regexp"
	"strings"

	"yakima-events-scraper/internal/models"
)

// Calendar-feed block and property markers.
const (
	calendarBeginEvent = "BEGIN:VEVENT"
	calendarEndEvent   = "END:VEVENT"
)

var calendarTimestampPattern = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})`)

// CalendarParser parses line-oriented calendar feeds (iCalendar-style
// BEGIN/END event blocks of PROPERTY:VALUE pairs).
type CalendarParser struct{}

func NewCalendarParser() *CalendarParser {
	return &CalendarParser{}
}

func (p *CalendarParser) Format() string {
	return models.FormatCalendar
}

func (p *CalendarParser) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	var events []models.RawEvent
	var current map[string]string

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)

		if line == calendarBeginEvent {
			current = make(map[string]string)
			continue
		}

		if line == calendarEndEvent && current != nil {
			events = append(events, p.buildEvent(current))
			current = nil
			continue
		}

		if current == nil {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		// Property parameters (DTSTART;TZID=...) are not interpreted.
		name, _, _ = strings.Cut(name, ";")
		current[name] = value
	}

	return events, nil
}

func (p *CalendarParser) buildEvent(props map[string]string) models.RawEvent {
	return models.RawEvent{
		Title:         unescapeCalendarValue(props["SUMMARY"]),
		Description:   unescapeCalendarValue(props["DESCRIPTION"]),
		StartDatetime: parseCalendarTimestamp(props["DTSTART"]),
		EndDatetime:   parseCalendarTimestamp(props["DTEND"]),
		Location:      unescapeCalendarValue(props["LOCATION"]),
		ExternalURL:   unescapeCalendarValue(props["URL"]),
		ExternalID:    unescapeCalendarValue(props["UID"]),
	}
}

// unescapeCalendarValue removes the calendar-format escape sequences for
// commas, semicolons, and newlines.
func unescapeCalendarValue(value string) string {
	replacer := strings.NewReplacer(`\,`, ",", `\;`, ";", `\n`, "\n")
	return replacer.Replace(value)
}

// parseCalendarTimestamp converts a compact YYYYMMDDTHHMMSS token into the
// canonical timestamp form. Any timezone suffix after a semicolon is
// discarded entirely; downstream consumers compensate for this known
// simplification.
func parseCalendarTimestamp(value string) string {
	if value == "" {
		return ""
	}

	if idx := strings.Index(value, ";"); idx >= 0 {
		value = value[:idx]
	}

	m := calendarTimestampPattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}

	return m[1] + "-" + m[2] + "-" + m[3] + " " + m[4] + ":" + m[5] + ":" + m[6]
}
