package services

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"yakima-events-scraper/internal/models"
)

// regionalCategoryClasses maps the listing site's icon class stems to
// human-readable category names.
var regionalCategoryClasses = map[string]string{
	"wine":    "Wine & Spirits",
	"food":    "Food & Dining",
	"music":   "Music & Entertainment",
	"arts":    "Arts & Culture",
	"family":  "Family Friendly",
	"outdoor": "Outdoor Activities",
	"beer":    "Beer & Breweries",
}

var categoryIconPattern = regexp.MustCompile(`(\w+)Cat`)

// RegionalHTMLParser handles the Yakima Valley tourism listing layout: list
// items wrapping a link that contains an h2 title, an h3 date string, a
// p.member venue, and a plain p city line.
type RegionalHTMLParser struct{}

func NewRegionalHTMLParser() *RegionalHTMLParser {
	return &RegionalHTMLParser{}
}

func (p *RegionalHTMLParser) Format() string {
	return models.FormatRegionalHTML
}

func (p *RegionalHTMLParser) Parse(ctx context.Context, content []byte, source *models.Source) ([]models.RawEvent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: models.FormatRegionalHTML, Message: "invalid document", Err: err}
	}

	baseURL := source.Config.BaseURL
	if baseURL == "" {
		baseURL = source.URL
	}
	year := source.Config.Year
	if year == 0 {
		year = time.Now().Year()
	}

	var events []models.RawEvent
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(link.Find("h2").First().Text())
		dateText := strings.TrimSpace(link.Find("h3").First().Text())
		if title == "" || dateText == "" {
			return
		}

		dates, ok := ParseDateRange(dateText, year)
		if !ok {
			return
		}

		event := models.RawEvent{
			Title:         title,
			StartDatetime: FormatTimestamp(dates.Start),
			EndDatetime:   FormatTimestamp(dates.End),
		}

		href, _ := link.Attr("href")
		event.ExternalURL = resolveURL(baseURL, href)
		event.ExternalID = models.GenerateExternalID(event.ExternalURL, title)

		venue := strings.TrimSpace(link.Find("p.member").First().Text())

		var city string
		link.Find("p").EachWithBreak(func(_ int, par *goquery.Selection) bool {
			if _, hasClass := par.Attr("class"); hasClass {
				return true
			}
			if text := strings.TrimSpace(par.Text()); text != "" {
				city = text
				return false
			}
			return true
		})
		if city != "" {
			// The state suffix keeps geocoding unambiguous.
			event.Address = city + ", WA"
		}

		switch {
		case venue != "" && city != "":
			event.Location = venue + ", " + city
		case venue != "":
			event.Location = venue
		default:
			event.Location = city
		}

		event.Categories = extractIconCategories(link)
		event.Description = buildRegionalDescription(venue, city, event.Categories)

		events = append(events, event)
	})

	return events, nil
}

// extractIconCategories reads the category icon divs inside an event link
// and maps their class stems through the fixed lookup table.
func extractIconCategories(link *goquery.Selection) []string {
	var categories []string
	seen := make(map[string]bool)

	link.Find(`div[class*="catIcon"]`).Each(func(_ int, icon *goquery.Selection) {
		class, _ := icon.Attr("class")
		m := categoryIconPattern.FindStringSubmatch(class)
		if m == nil {
			return
		}

		name, ok := regionalCategoryClasses[strings.ToLower(m[1])]
		if !ok {
			name = "Other"
		}
		if !seen[name] {
			seen[name] = true
			categories = append(categories, name)
		}
	})

	return categories
}

// buildRegionalDescription synthesizes a description from the listing's
// structured parts, since the layout carries no free-text summary.
func buildRegionalDescription(venue, city string, categories []string) string {
	var parts []string
	if venue != "" {
		parts = append(parts, "Venue: "+venue)
	}
	if city != "" {
		parts = append(parts, "Location: "+city)
	}
	if len(categories) > 0 {
		parts = append(parts, "Categories: "+strings.Join(categories, ", "))
	}
	return strings.Join(parts, "\n")
}
