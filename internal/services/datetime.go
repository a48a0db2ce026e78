package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"yakima-events-scraper/internal/models"
)

// DateRange is a whole-day or multi-day span produced from regional date
// strings like "May 23 - 25".
type DateRange struct {
	Start time.Time
	End   time.Time
}

var (
	dateRangePattern  = regexp.MustCompile(`^(\w+)\s+(\d{1,2})\s*-\s*(?:(\w+)\s+)?(\d{1,2})$`)
	singleDatePattern = regexp.MustCompile(`^(\w+)\s+(\d{1,2})$`)
)

// ParseGeneric parses free-form date/time text into a timestamp. It is
// best-effort: unparseable text reports ok=false rather than an error.
func ParseGeneric(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	t, err := dateparse.ParseAny(text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders a timestamp in the canonical textual form carried
// by RawEvent datetime fields.
func FormatTimestamp(t time.Time) string {
	return t.Format(models.TimestampLayout)
}

// ParseDateRange parses the regional event-listing date formats: a single
// date ("May 31") or a range ("May 23 - 25", "May 30 - Jul 25"). An omitted
// end month reuses the start month. When the computed end precedes the
// start, the end rolls forward one year (cross-year event). The result is
// always a whole-day span, 00:00:00 through 23:59:59.
func ParseDateRange(text string, referenceYear int) (DateRange, bool) {
	text = strings.TrimSpace(text)

	if m := dateRangePattern.FindStringSubmatch(text); m != nil {
		startMonth, ok := parseMonthName(m[1])
		if !ok {
			return DateRange{}, false
		}
		startDay, _ := strconv.Atoi(m[2])

		endMonth := startMonth
		if m[3] != "" {
			endMonth, ok = parseMonthName(m[3])
			if !ok {
				return DateRange{}, false
			}
		}
		endDay, _ := strconv.Atoi(m[4])

		start := time.Date(referenceYear, startMonth, startDay, 0, 0, 0, 0, time.UTC)
		end := time.Date(referenceYear, endMonth, endDay, 23, 59, 59, 0, time.UTC)
		if end.Before(start) {
			end = end.AddDate(1, 0, 0)
		}
		return DateRange{Start: start, End: end}, true
	}

	if m := singleDatePattern.FindStringSubmatch(text); m != nil {
		month, ok := parseMonthName(m[1])
		if !ok {
			return DateRange{}, false
		}
		day, _ := strconv.Atoi(m[2])

		start := time.Date(referenceYear, month, day, 0, 0, 0, 0, time.UTC)
		end := time.Date(referenceYear, month, day, 23, 59, 59, 0, time.UTC)
		return DateRange{Start: start, End: end}, true
	}

	return DateRange{}, false
}

// parseMonthName accepts full month names and their three-letter
// abbreviations, case-insensitively.
func parseMonthName(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		full := m.String()
		if strings.EqualFold(name, full) || strings.EqualFold(name, full[:3]) {
			return m, true
		}
	}
	return 0, false
}
