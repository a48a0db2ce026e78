package models

import (
	"testing"
	"time"
)

func TestEventValidate(t *testing.T) {
	valid := Event{
		EventID:   GenerateEventID("Wine Walk", "2025-06-01 18:00:00", "Front Street"),
		Title:     "Wine Walk",
		StartTime: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
		SourceID:  "src-1",
		Status:    EventStatusPending,
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	t.Run("MissingTitle", func(t *testing.T) {
		e := valid
		e.Title = ""
		if err := e.Validate(); err == nil {
			t.Error("expected validation failure")
		}
	})

	t.Run("ZeroStartTime", func(t *testing.T) {
		e := valid
		e.StartTime = time.Time{}
		if err := e.Validate(); err == nil {
			t.Error("expected validation failure")
		}
	})

	t.Run("MissingSource", func(t *testing.T) {
		e := valid
		e.SourceID = ""
		if err := e.Validate(); err == nil {
			t.Error("expected validation failure")
		}
	})

	t.Run("BadStatus", func(t *testing.T) {
		e := valid
		e.Status = "maybe"
		if err := e.Validate(); err == nil {
			t.Error("expected validation failure")
		}
	})
}

func TestGenerateEventID(t *testing.T) {
	a := GenerateEventID("Wine Walk", "2025-06-01 18:00:00", "Front Street")
	b := GenerateEventID("wine walk", "2025-06-01 18:00:00", "FRONT STREET")
	c := GenerateEventID("Wine Walk", "2025-06-02 18:00:00", "Front Street")

	if a != b {
		t.Errorf("case differences changed the ID: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different start times produced the same ID")
	}
	if len(a) != len("evt_")+8 {
		t.Errorf("unexpected ID shape: %s", a)
	}
}

func TestGenerateExternalID(t *testing.T) {
	byURL := GenerateExternalID("https://example.test/event/1", "Anything")
	sameURL := GenerateExternalID("https://example.test/event/1", "Different Title")
	if byURL != sameURL {
		t.Error("URL-based external IDs must ignore the title")
	}

	byTitle := GenerateExternalID("", "Wine Walk")
	if byTitle == "" || byTitle == byURL {
		t.Errorf("title fallback produced %q", byTitle)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Wine Walk", "wine walk"},
		{"  WINE   WALK  ", "wine walk"},
		{"Wine\tWalk\n2025", "wine walk 2025"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTitle(tt.input); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGenerateRunID(t *testing.T) {
	now := time.Now()
	a := GenerateRunID("src-1", now)
	b := GenerateRunID("src-1", now)
	if a == b {
		t.Error("run IDs must be unique even for the same source and instant")
	}
}
