package services

import (
	"bytes"
	"context"
	"log"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"yakima-events-scraper/internal/models"
)

// HTML config selector keys (container plus extractable fields).
const (
	selectorContainer   = "event_container"
	selectorTitle       = "title"
	selectorDescription = "description"
	selectorDatetime    = "datetime"
	selectorLocation    = "location"
	selectorURL         = "url"
)

// htmlFieldSelectors are the per-field keys the generic parser understands,
// in extraction order.
var htmlFieldSelectors = []string{
	selectorTitle, selectorDescription, selectorDatetime, selectorLocation, selectorURL,
}

// HTMLParser extracts events from arbitrary pages using the source's
// configured container and field selectors.
type HTMLParser struct{}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

func (p *HTMLParser) Format() string {
	return models.FormatHTML
}

func (p *HTMLParser) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	selectors := source.Config.Selectors
	if len(selectors) == 0 || selectors[selectorContainer] == "" {
		return nil, &ConfigError{Format: models.FormatHTML, Message: "selectors.event_container is required"}
	}

	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: models.FormatHTML, Message: "invalid document", Err: err}
	}

	containerQuery := TranslateSelector(selectors[selectorContainer])
	containers := queryAll(doc, containerQuery.XPath)
	if len(containers) == 0 {
		log.Printf("[HTML] no event containers matched selector %q (confidence: %s)",
			selectors[selectorContainer], containerQuery.Confidence)
		return nil, nil
	}

	var events []models.RawEvent
	for _, container := range containers {
		event := models.RawEvent{}

		for _, field := range htmlFieldSelectors {
			selector, configured := selectors[field]
			if !configured || selector == "" {
				continue
			}

			node := queryFirst(container, TranslateFieldSelector(selector).XPath)
			if node == nil {
				// Zero matches means "field absent", but it is
				// indistinguishable from a misconfigured selector, so
				// leave a trace for the operator.
				log.Printf("[HTML] selector %q for field %q matched nothing", selector, field)
				continue
			}

			switch field {
			case selectorTitle:
				event.Title = extractNodeText(node)
			case selectorDescription:
				event.Description = extractNodeText(node)
			case selectorDatetime:
				if ts, ok := ParseGeneric(extractDatetimeText(node)); ok {
					event.StartDatetime = FormatTimestamp(ts)
				}
			case selectorLocation:
				event.Location = extractNodeText(node)
			case selectorURL:
				event.ExternalURL = resolveURL(source.URL, extractHref(node))
			}
		}

		if event.Title != "" {
			events = append(events, event)
		}
	}

	return events, nil
}

// queryAll evaluates an XPath expression, treating compilation failures and
// zero matches identically: best-effort translations of unsupported
// selector syntax must degrade to "no results", never to a run failure.
func queryAll(node *html.Node, expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(node, expr)
	if err != nil {
		log.Printf("[HTML] query %q failed: %v", expr, err)
		return nil
	}
	return nodes
}

func queryFirst(node *html.Node, expr string) *html.Node {
	nodes := queryAll(node, expr)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// extractNodeText returns the trimmed text content of a node, falling back
// to the alt attribute for image elements.
func extractNodeText(node *html.Node) string {
	text := strings.TrimSpace(htmlquery.InnerText(node))
	if text == "" && node.Data == "img" {
		text = strings.TrimSpace(htmlquery.SelectAttr(node, "alt"))
	}
	return text
}

// extractDatetimeText prefers machine-readable datetime attributes over
// display text.
func extractDatetimeText(node *html.Node) string {
	if dt := htmlquery.SelectAttr(node, "datetime"); dt != "" {
		return dt
	}
	if dt := htmlquery.SelectAttr(node, "data-date"); dt != "" {
		return dt
	}
	return strings.TrimSpace(htmlquery.InnerText(node))
}

// extractHref returns the matched node's link target, checking the node
// itself and then its first descendant anchor.
func extractHref(node *html.Node) string {
	if href := htmlquery.SelectAttr(node, "href"); href != "" {
		return href
	}
	if anchor := queryFirst(node, ".//a[@href]"); anchor != nil {
		return htmlquery.SelectAttr(anchor, "href")
	}
	return ""
}
