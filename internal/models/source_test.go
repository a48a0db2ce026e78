package models

import "testing"

func TestSourceValidate(t *testing.T) {
	base := Source{
		SourceID: "src-1",
		Name:     "Downtown Calendar",
		URL:      "https://downtown.example/events.ics",
		Format:   FormatCalendar,
		Status:   SourceStatusActive,
	}

	if err := base.Validate(); err != nil {
		t.Errorf("valid calendar source rejected: %v", err)
	}

	t.Run("MissingURL", func(t *testing.T) {
		s := base
		s.URL = ""
		if err := s.Validate(); err == nil {
			t.Error("expected validation failure")
		}
	})

	t.Run("HTMLRequiresContainer", func(t *testing.T) {
		s := base
		s.Format = FormatHTML
		if err := s.Validate(); err == nil {
			t.Error("html source without selectors must fail")
		}

		s.Config.Selectors = map[string]string{"event_container": ".event"}
		if err := s.Validate(); err != nil {
			t.Errorf("html source with container rejected: %v", err)
		}
	})

	t.Run("JSONRequiresMapping", func(t *testing.T) {
		s := base
		s.Format = FormatJSON
		if err := s.Validate(); err == nil {
			t.Error("json source without mapping must fail")
		}

		s.Config.FieldMapping = map[string]string{"title": "name"}
		if err := s.Validate(); err != nil {
			t.Errorf("json source with mapping rejected: %v", err)
		}
	})

	t.Run("AICrawlNeedsOnlyURL", func(t *testing.T) {
		s := base
		s.Format = FormatAICrawl
		if err := s.Validate(); err != nil {
			t.Errorf("ai_crawl source rejected: %v", err)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		s := base
		s.Format = "rss"
		if err := s.Validate(); err == nil {
			t.Error("expected validation failure for unsupported format")
		}
	})
}

func TestSourceActive(t *testing.T) {
	s := Source{Status: SourceStatusActive}
	if !s.Active() {
		t.Error("active source reported inactive")
	}
	s.Status = SourceStatusInactive
	if s.Active() {
		t.Error("inactive source reported active")
	}
}
