package vectorstore

import (
	"testing"

	"studypath-backend/internal/models"
)

func TestWithPayload(t *testing.T) {
	if !withPayload().GetEnable() {
		t.Error("Expected payload selector to enable payload return")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	a := pointID("abc123_0")
	b := pointID("abc123_0")
	if a.GetUuid() != b.GetUuid() {
		t.Errorf("Expected identical ids for identical chunks, got %q and %q", a.GetUuid(), b.GetUuid())
	}

	c := pointID("abc123_1")
	if a.GetUuid() == c.GetUuid() {
		t.Error("Expected distinct ids for distinct chunks")
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name       string
		filters    models.SearchFilters
		conditions int
	}{
		{"no filters", models.SearchFilters{}, 0},
		{"difficulty only", models.SearchFilters{Difficulty: "Beginner"}, 1},
		{"difficulty and style", models.SearchFilters{Difficulty: "Beginner", Style: "Conceptual"}, 2},
		{"all three", models.SearchFilters{Difficulty: "Advanced", Style: "Course", Granularity: "Broad"}, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := buildFilter(tc.filters)
			if tc.conditions == 0 {
				if f != nil {
					t.Errorf("Expected nil filter, got %v", f)
				}
				return
			}
			if f == nil {
				t.Fatal("Expected a filter")
			}
			if len(f.GetMust()) != tc.conditions {
				t.Errorf("Expected %d conditions, got %d", tc.conditions, len(f.GetMust()))
			}
		})
	}
}

func TestMatchFromPayloadRoundTrip(t *testing.T) {
	rec := Record{
		ChunkID:      "vid00000001_2",
		VideoID:      "vid00000001",
		Text:         "segment text",
		Title:        "Graph Theory",
		YouTubeLink:  "https://www.youtube.com/watch?v=vid00000001&t=600",
		Timestamp:    "10:00",
		StartSeconds: 600,
		Difficulty:   "Beginner",
		Style:        "Conceptual",
		Granularity:  "Specific",
		Engagement:   "Hidden_Gem",
		Source:       "YouTube",
		Channel:      "CS Channel",
	}

	m := matchFromPayload(payloadFromRecord(rec))

	if m.ChunkID != rec.ChunkID || m.VideoID != rec.VideoID || m.Text != rec.Text {
		t.Errorf("Identity fields lost: %+v", m)
	}
	if m.StartSeconds != rec.StartSeconds || m.Timestamp != rec.Timestamp {
		t.Errorf("Timing fields lost: %+v", m)
	}
	if m.Difficulty != rec.Difficulty || m.Style != rec.Style || m.Granularity != rec.Granularity || m.Engagement != rec.Engagement {
		t.Errorf("Tag fields lost: %+v", m)
	}
}
