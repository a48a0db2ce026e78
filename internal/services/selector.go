package services

import (
	"regexp"
	"strings"
)

// QueryConfidence reports how faithful a selector translation is.
type QueryConfidence string

const (
	// ConfidenceExact means the selector matched one of the supported
	// shapes and the translation is equivalent.
	ConfidenceExact QueryConfidence = "exact"
	// ConfidenceBestEffort means the selector went through heuristic token
	// substitution and is not guaranteed correct. Callers must tolerate
	// zero matches rather than treating them as errors.
	ConfidenceBestEffort QueryConfidence = "best_effort"
)

// TranslatedQuery is the structural-query form of a CSS selector.
type TranslatedQuery struct {
	XPath      string
	Confidence QueryConfidence
}

var (
	bareClassPattern = regexp.MustCompile(`^\.([a-zA-Z][\w-]*)$`)
	bareIDPattern    = regexp.MustCompile(`^#([a-zA-Z][\w-]*)$`)
	bareTagPattern   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*$`)

	classTokenPattern = regexp.MustCompile(`\.([a-zA-Z][\w-]*)`)
	idTokenPattern    = regexp.MustCompile(`#([a-zA-Z][\w-]*)`)
)

// TranslateSelector converts a CSS selector into an XPath query anchored at
// the document root, for locating event containers.
func TranslateSelector(css string) TranslatedQuery {
	return translate(css, "//")
}

// TranslateFieldSelector converts a CSS selector into an XPath query
// relative to a container node, for extracting individual fields.
func TranslateFieldSelector(css string) TranslatedQuery {
	return translate(css, ".//")
}

func translate(css, prefix string) TranslatedQuery {
	css = strings.TrimSpace(css)

	// Already an XPath expression: pass through untouched. This is how
	// optimizer-generated configurations replay their persisted queries.
	if strings.HasPrefix(css, "//") || strings.HasPrefix(css, "./") ||
		strings.HasPrefix(css, "(") {
		return TranslatedQuery{XPath: css, Confidence: ConfidenceExact}
	}

	// Comma-separated unions translate independently and union together.
	if strings.Contains(css, ",") {
		parts := strings.Split(css, ",")
		exprs := make([]string, 0, len(parts))
		confidence := ConfidenceExact
		for _, part := range parts {
			q := translate(part, prefix)
			exprs = append(exprs, q.XPath)
			if q.Confidence == ConfidenceBestEffort {
				confidence = ConfidenceBestEffort
			}
		}
		return TranslatedQuery{XPath: strings.Join(exprs, " | "), Confidence: confidence}
	}

	if m := bareClassPattern.FindStringSubmatch(css); m != nil {
		return TranslatedQuery{
			XPath:      prefix + `*[contains(@class, "` + m[1] + `")]`,
			Confidence: ConfidenceExact,
		}
	}

	if m := bareIDPattern.FindStringSubmatch(css); m != nil {
		return TranslatedQuery{
			XPath:      prefix + `*[@id="` + m[1] + `"]`,
			Confidence: ConfidenceExact,
		}
	}

	if bareTagPattern.MatchString(css) {
		return TranslatedQuery{XPath: prefix + css, Confidence: ConfidenceExact}
	}

	return TranslatedQuery{XPath: bestEffortTranslate(css, prefix), Confidence: ConfidenceBestEffort}
}

// bestEffortTranslate substitutes class/id/tag tokens heuristically for
// selectors more complex than the supported shapes. The output is not
// guaranteed equivalent; an invalid or non-matching query is expected to
// surface as zero results, never as an error.
func bestEffortTranslate(css, prefix string) string {
	expr := css

	// tag.class and bare .class tokens
	expr = classTokenPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		name := tok[1:]
		return `[contains(@class, "` + name + `")]`
	})

	// tag#id and bare #id tokens
	expr = idTokenPattern.ReplaceAllStringFunc(expr, func(tok string) string {
		name := tok[1:]
		return `[@id="` + name + `"]`
	})

	// A token reduced to bare predicates needs an element test in front.
	expr = regexp.MustCompile(`(^|\s)(\[)`).ReplaceAllString(expr, `${1}*${2}`)

	// Descendant combinator
	expr = strings.Join(strings.Fields(expr), "//")

	return prefix + expr
}
