package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studypath-backend/internal/models"
	"studypath-backend/internal/vectorstore"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"watch url with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=120", "dQw4w9WgXcQ", false},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"bare id with whitespace", "  dQw4w9WgXcQ ", "dQw4w9WgXcQ", false},
		// Any 11-char token in the id alphabet is taken as a bare id; the
		// pipeline surfaces a bad one as an unavailable video downstream.
		{"11-char token accepted as bare id", "not-a-video", "not-a-video", false},
		{"not a video reference", "https://example.com/page", "", true},
		{"id too short", "abc123", "", true},
		{"id too long", "dQw4w9WgXcQQ", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ExtractVideoID(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %q", result)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

type fakeSource struct {
	meta          *models.VideoMeta
	segments      []models.TranscriptSegment
	metaErr       error
	transcriptErr error
}

func (f *fakeSource) GetTranscript(videoID string) ([]models.TranscriptSegment, error) {
	return f.segments, f.transcriptErr
}

func (f *fakeSource) GetVideoMetadata(videoID string) (*models.VideoMeta, error) {
	return f.meta, f.metaErr
}

type fakeChunkEmbedder struct {
	calls int
	err   error
}

func (f *fakeChunkEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 2, 3}, nil
}

type fakeSink struct {
	deleted  []string
	upserted []vectorstore.Record
}

func (f *fakeSink) DeleteByVideoID(ctx context.Context, videoID string) error {
	f.deleted = append(f.deleted, videoID)
	return nil
}

func (f *fakeSink) Upsert(ctx context.Context, records []vectorstore.Record) error {
	f.upserted = append(f.upserted, records...)
	return nil
}

func indexerFixture() (*fakeSource, *fakeChunkEmbedder, *fakeSink) {
	longText := strings.Repeat("word ", 30)
	source := &fakeSource{
		meta: &models.VideoMeta{
			VideoID:         "dQw4w9WgXcQ",
			Title:           "Graph Theory Full Course",
			Channel:         "CS Channel",
			YouTubeLink:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			DurationSeconds: 700,
			Views:           1000,
			Likes:           100,
		},
		segments: []models.TranscriptSegment{
			{Text: longText, Start: 0, Duration: 320},
			{Text: longText, Start: 320, Duration: 320},
		},
	}
	return source, &fakeChunkEmbedder{}, &fakeSink{}
}

func TestIndexVideo(t *testing.T) {
	source, embedder, sink := indexerFixture()
	ix := NewIndexer(source, embedder, sink, 5, 50)

	task := &models.VideoTask{ID: 7, URL: "https://youtu.be/dQw4w9WgXcQ", Source: "YouTube"}
	result, err := ix.IndexVideo(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}

	if result.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("Expected video id dQw4w9WgXcQ, got %q", result.VideoID)
	}
	if result.ChunkCount != 2 || result.VectorCount != 2 {
		t.Errorf("Expected 2 chunks and 2 vectors, got %d and %d", result.ChunkCount, result.VectorCount)
	}
	if embedder.calls != 2 {
		t.Errorf("Expected one embedding per chunk, got %d calls", embedder.calls)
	}

	// Old chunks are cleared before the new set lands.
	if len(sink.deleted) != 1 || sink.deleted[0] != "dQw4w9WgXcQ" {
		t.Errorf("Expected delete for dQw4w9WgXcQ, got %v", sink.deleted)
	}
	if len(sink.upserted) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(sink.upserted))
	}

	first := sink.upserted[0]
	if first.ChunkID != "dQw4w9WgXcQ_0" {
		t.Errorf("Unexpected chunk id %q", first.ChunkID)
	}
	if first.Title != "Graph Theory Full Course" || first.Channel != "CS Channel" {
		t.Errorf("Metadata not carried onto record: %+v", first)
	}
	if first.Source != "YouTube" {
		t.Errorf("Expected source YouTube, got %q", first.Source)
	}

	// "full course" in the title classifies the style.
	if result.Tags.Style != "Course" || result.Tags.Granularity != "Broad" {
		t.Errorf("Unexpected tags %+v", result.Tags)
	}
}

func TestIndexVideoManualOverrides(t *testing.T) {
	source, embedder, sink := indexerFixture()
	ix := NewIndexer(source, embedder, sink, 5, 50)

	difficulty := "Advanced"
	style := "Practical"
	task := &models.VideoTask{
		ID:               8,
		URL:              "dQw4w9WgXcQ",
		Source:           "YouTube",
		ManualDifficulty: &difficulty,
		ManualStyle:      &style,
	}

	result, err := ix.IndexVideo(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}

	if result.Tags.Difficulty != "Advanced" {
		t.Errorf("Expected manual difficulty, got %q", result.Tags.Difficulty)
	}
	if result.Tags.Style != "Practical" {
		t.Errorf("Expected manual style, got %q", result.Tags.Style)
	}
	// A style override away from Course recomputes granularity.
	if result.Tags.Granularity != "Specific" {
		t.Errorf("Expected granularity Specific, got %q", result.Tags.Granularity)
	}
}

func TestIndexVideoFailures(t *testing.T) {
	t.Run("bad url", func(t *testing.T) {
		source, embedder, sink := indexerFixture()
		ix := NewIndexer(source, embedder, sink, 5, 50)
		if _, err := ix.IndexVideo(context.Background(), &models.VideoTask{URL: "https://example.com/page"}); err == nil {
			t.Error("Expected error for unparseable url")
		}
	})

	t.Run("transcript failure", func(t *testing.T) {
		source, embedder, sink := indexerFixture()
		source.transcriptErr = errors.New("no captions")
		ix := NewIndexer(source, embedder, sink, 5, 50)
		if _, err := ix.IndexVideo(context.Background(), &models.VideoTask{URL: "dQw4w9WgXcQ"}); err == nil {
			t.Error("Expected transcript error to propagate")
		}
	})

	t.Run("empty transcript", func(t *testing.T) {
		source, embedder, sink := indexerFixture()
		source.segments = nil
		ix := NewIndexer(source, embedder, sink, 5, 50)
		if _, err := ix.IndexVideo(context.Background(), &models.VideoTask{URL: "dQw4w9WgXcQ"}); err == nil {
			t.Error("Expected error when no chunks are produced")
		}
	})

	t.Run("embedding failure stops before any write", func(t *testing.T) {
		source, embedder, sink := indexerFixture()
		embedder.err = errors.New("ollama down")
		ix := NewIndexer(source, embedder, sink, 5, 50)
		if _, err := ix.IndexVideo(context.Background(), &models.VideoTask{URL: "dQw4w9WgXcQ"}); err == nil {
			t.Error("Expected embedding error to propagate")
		}
		if len(sink.deleted) != 0 || len(sink.upserted) != 0 {
			t.Error("Expected no index writes after an embedding failure")
		}
	})
}
