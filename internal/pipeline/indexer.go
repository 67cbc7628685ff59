package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"studypath-backend/internal/models"
	"studypath-backend/internal/vectorstore"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/videos/|embed/|youtu\.be/|shorts/)([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
}

// ExtractVideoID pulls the 11-char video id out of any common YouTube URL
// form, or accepts a bare id.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(input); len(m) > 1 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("could not extract video id from %q", input)
}

// TranscriptSource fetches transcripts and metadata for a video.
type TranscriptSource interface {
	GetTranscript(videoID string) ([]models.TranscriptSegment, error)
	GetVideoMetadata(videoID string) (*models.VideoMeta, error)
}

// Embedder turns chunk text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSink receives the finished records.
type ChunkSink interface {
	DeleteByVideoID(ctx context.Context, videoID string) error
	Upsert(ctx context.Context, records []vectorstore.Record) error
}

// Indexer runs the full ingestion for one video: transcript extraction,
// chunking, tagging, embedding and upsert.
type Indexer struct {
	source        TranscriptSource
	embedder      Embedder
	sink          ChunkSink
	chunkMinutes  int
	minChunkChars int
}

func NewIndexer(source TranscriptSource, embedder Embedder, sink ChunkSink, chunkMinutes, minChunkChars int) *Indexer {
	return &Indexer{
		source:        source,
		embedder:      embedder,
		sink:          sink,
		chunkMinutes:  chunkMinutes,
		minChunkChars: minChunkChars,
	}
}

// IndexResult reports what one video contributed to the corpus.
type IndexResult struct {
	VideoID     string
	Tags        models.ContentTags
	ChunkCount  int
	VectorCount int
}

// IndexVideo processes one crawl task end to end. Manual tag overrides on the
// task beat the automatic tagger. Re-indexing a video first clears its old
// chunks so stale segments never survive a shorter re-upload.
func (ix *Indexer) IndexVideo(ctx context.Context, task *models.VideoTask) (*IndexResult, error) {
	videoID, err := ExtractVideoID(task.URL)
	if err != nil {
		return nil, err
	}

	log.Printf("Indexing video %s (task %d)", videoID, task.ID)

	meta, err := ix.source.GetVideoMetadata(videoID)
	if err != nil {
		return nil, fmt.Errorf("metadata fetch failed for %s: %w", videoID, err)
	}

	segments, err := ix.source.GetTranscript(videoID)
	if err != nil {
		return nil, err
	}

	chunks := ChunkTranscript(segments, videoID, ix.chunkMinutes, ix.minChunkChars, meta.YouTubeLink)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("video %s produced no usable chunks", videoID)
	}

	fullTranscript := joinSegments(segments)
	tags := DetermineTags(meta, fullTranscript)
	applyOverrides(&tags, task)

	records := make([]vectorstore.Record, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d of %s failed: %w", chunk.Index, videoID, err)
		}

		records = append(records, vectorstore.Record{
			ChunkID:      fmt.Sprintf("%s_%d", videoID, chunk.Index),
			Vector:       vector,
			Text:         chunk.Text,
			VideoID:      videoID,
			Title:        meta.Title,
			YouTubeLink:  chunk.YouTubeLink,
			Timestamp:    chunk.TimestampDisplay,
			StartSeconds: chunk.StartTime,
			EndSeconds:   chunk.EndTime,
			Difficulty:   tags.Difficulty,
			Style:        tags.Style,
			Granularity:  tags.Granularity,
			Engagement:   tags.Engagement,
			Source:       task.Source,
			Channel:      meta.Channel,
		})
	}

	if err := ix.sink.DeleteByVideoID(ctx, videoID); err != nil {
		return nil, fmt.Errorf("failed to clear old chunks for %s: %w", videoID, err)
	}
	if err := ix.sink.Upsert(ctx, records); err != nil {
		return nil, err
	}

	log.Printf("Indexed %s: %d chunks, tags %s/%s/%s/%s",
		videoID, len(records), tags.Difficulty, tags.Style, tags.Granularity, tags.Engagement)

	return &IndexResult{
		VideoID:     videoID,
		Tags:        tags,
		ChunkCount:  len(chunks),
		VectorCount: len(records),
	}, nil
}

func applyOverrides(tags *models.ContentTags, task *models.VideoTask) {
	if task.ManualDifficulty != nil && *task.ManualDifficulty != "" {
		tags.Difficulty = *task.ManualDifficulty
	}
	if task.ManualStyle != nil && *task.ManualStyle != "" {
		tags.Style = *task.ManualStyle
		if tags.Style == "Course" || tags.Style == "Advice" {
			tags.Granularity = "Broad"
		} else {
			tags.Granularity = "Specific"
		}
	}
}

func joinSegments(segments []models.TranscriptSegment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
