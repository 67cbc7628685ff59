package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studypath-backend/internal/models"
	"studypath-backend/internal/vectorstore"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Ping(ctx context.Context) error { return f.err }

type fakeIndex struct {
	strict  []vectorstore.Match
	relaxed []vectorstore.Match
	count   uint64
	err     error
	queries []models.SearchFilters
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, k int, filters models.SearchFilters) ([]vectorstore.Match, error) {
	f.queries = append(f.queries, filters)
	if f.err != nil {
		return nil, f.err
	}
	if filters.Empty() {
		return f.relaxed, nil
	}
	return f.strict, nil
}

func (f *fakeIndex) Count(ctx context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func match(videoID string, distance float64) vectorstore.Match {
	return vectorstore.Match{
		ChunkID:  videoID + "_0",
		VideoID:  videoID,
		Title:    "Video " + videoID,
		Text:     "segment text for " + videoID,
		Distance: distance,
	}
}

func TestSearchStrictResults(t *testing.T) {
	index := &fakeIndex{strict: []vectorstore.Match{match("aaa", 0.2), match("bbb", 0.5)}}
	engine := NewRetrievalEngine(&fakeEmbedder{}, index, 50, 9)

	filters := models.SearchFilters{Difficulty: "Beginner"}
	recs, err := engine.Search(context.Background(), "graphs", filters)
	if err != nil {
		t.Fatal(err)
	}

	if len(recs) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(recs))
	}
	if len(index.queries) != 1 {
		t.Errorf("Expected a single strict query, got %d", len(index.queries))
	}
	if recs[0].Note != "" {
		t.Errorf("Strict results should carry no note, got %q", recs[0].Note)
	}
	if recs[0].VideoID != "aaa" {
		t.Errorf("Expected closest match first, got %q", recs[0].VideoID)
	}
}

func TestSearchRelaxedRetry(t *testing.T) {
	index := &fakeIndex{relaxed: []vectorstore.Match{match("ccc", 0.3), match("ddd", 0.6)}}
	engine := NewRetrievalEngine(&fakeEmbedder{}, index, 50, 9)

	recs, err := engine.Search(context.Background(), "graphs", models.SearchFilters{Style: "One_Shot"})
	if err != nil {
		t.Fatal(err)
	}

	if len(index.queries) != 2 {
		t.Fatalf("Expected strict then relaxed query, got %d queries", len(index.queries))
	}
	if !index.queries[1].Empty() {
		t.Error("Expected the retry to drop all filters")
	}
	if recs[0].Note != relaxedMatchNote {
		t.Errorf("Expected relaxed note on top result, got %q", recs[0].Note)
	}
	if recs[1].Note != "" {
		t.Error("Only the top result should carry the note")
	}
}

func TestSearchNoRetryWithoutFilters(t *testing.T) {
	index := &fakeIndex{}
	engine := NewRetrievalEngine(&fakeEmbedder{}, index, 50, 9)

	recs, err := engine.Search(context.Background(), "graphs", models.SearchFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Errorf("Expected no recommendations, got %d", len(recs))
	}
	if len(index.queries) != 1 {
		t.Errorf("Unfiltered search should not retry, got %d queries", len(index.queries))
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	engine := NewRetrievalEngine(&fakeEmbedder{err: errors.New("ollama down")}, &fakeIndex{}, 50, 9)

	if _, err := engine.Search(context.Background(), "graphs", models.SearchFilters{}); err == nil {
		t.Fatal("Expected error when embedding fails")
	}
}

func TestRankDeduplicatesByVideo(t *testing.T) {
	engine := NewRetrievalEngine(&fakeEmbedder{}, &fakeIndex{}, 50, 9)

	recs := engine.rank([]vectorstore.Match{
		match("aaa", 0.8),
		match("bbb", 0.4),
		match("aaa", 0.1),
	})

	if len(recs) != 2 {
		t.Fatalf("Expected 2 recommendations after dedup, got %d", len(recs))
	}
	if recs[0].VideoID != "aaa" {
		t.Errorf("Expected the best chunk of aaa to rank first, got %q", recs[0].VideoID)
	}
	if recs[0].Distance != 0.1 {
		t.Errorf("Expected the closer chunk to survive, got distance %v", recs[0].Distance)
	}
}

func TestRankTruncatesToMaxResults(t *testing.T) {
	engine := NewRetrievalEngine(&fakeEmbedder{}, &fakeIndex{}, 50, 2)

	recs := engine.rank([]vectorstore.Match{
		match("aaa", 0.1),
		match("bbb", 0.2),
		match("ccc", 0.3),
	})

	if len(recs) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(recs))
	}
}

func TestRecommendationFromMatch(t *testing.T) {
	rec := recommendationFromMatch(vectorstore.Match{
		VideoID:  "abc123",
		Title:    "Graph Theory Basics",
		Text:     "short preview",
		Distance: 0.123456,
	})

	if rec.YouTubeLink != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("Expected watch link fallback, got %q", rec.YouTubeLink)
	}
	if rec.Thumbnail != "https://i.ytimg.com/vi/abc123/hqdefault.jpg" {
		t.Errorf("Unexpected thumbnail %q", rec.Thumbnail)
	}
	if rec.Distance != 0.1235 {
		t.Errorf("Expected distance rounded to 4 decimals, got %v", rec.Distance)
	}
}

func TestRelevanceFromDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		expected float64
	}{
		{"perfect match", 0, 100},
		{"close match", 0.5, 77.9},
		{"distant match", 2.0, 36.8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := relevanceFromDistance(tc.distance)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestRelevanceDecreasesWithDistance(t *testing.T) {
	prev := 101.0
	for _, d := range []float64{0, 0.1, 0.5, 1, 2, 5} {
		r := relevanceFromDistance(d)
		if r >= prev {
			t.Errorf("Relevance should strictly decrease, got %v then %v", prev, r)
		}
		prev = r
	}
}

func TestTrimPreview(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"short text untouched", "a short preview", "a short preview"},
		{
			"cut at word boundary",
			strings.Repeat("0123456789", 19) + " trailing words here",
			strings.Repeat("0123456789", 19) + " trailing...",
		},
		{
			"punctuation stripped before ellipsis",
			strings.Repeat("0123456789", 15) + " alpha, " + strings.Repeat("x", 60),
			strings.Repeat("0123456789", 15) + " alpha...",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := trimPreview(tc.text, 200)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		engine := NewRetrievalEngine(&fakeEmbedder{}, &fakeIndex{count: 42}, 50, 9)
		health := engine.Health(context.Background())
		if !health.EmbedderLoaded || !health.IndexConnected {
			t.Errorf("Expected healthy report, got %+v", health)
		}
		if health.DocumentCount != 42 {
			t.Errorf("Expected document count 42, got %d", health.DocumentCount)
		}
	})

	t.Run("index down", func(t *testing.T) {
		engine := NewRetrievalEngine(&fakeEmbedder{}, &fakeIndex{err: errors.New("unreachable")}, 50, 9)
		health := engine.Health(context.Background())
		if health.IndexConnected {
			t.Error("Expected index to report down")
		}
	})
}
