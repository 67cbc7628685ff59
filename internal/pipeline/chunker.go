package pipeline

import (
	"fmt"
	"strings"

	"studypath-backend/internal/models"
)

const (
	DefaultChunkMinutes = 5

	// Chunks shorter than this carry too little signal to embed.
	MinChunkTextLength = 50
)

// ChunkTranscript splits timed transcript segments into windows of roughly
// chunkMinutes each. Window boundaries land on segment ends, so chunks run a
// little over rather than splitting a segment. Chunks shorter than minChars
// are dropped.
func ChunkTranscript(segments []models.TranscriptSegment, videoID string, chunkMinutes, minChars int, baseLink string) []models.Chunk {
	if len(segments) == 0 {
		return nil
	}
	if chunkMinutes <= 0 {
		chunkMinutes = DefaultChunkMinutes
	}
	if minChars <= 0 {
		minChars = MinChunkTextLength
	}
	windowSeconds := float64(chunkMinutes * 60)

	var chunks []models.Chunk
	var parts []string
	startTime := segments[0].Start
	endTime := startTime

	flush := func() {
		text := strings.Join(parts, " ")
		if len(text) >= minChars {
			chunks = append(chunks, models.Chunk{
				VideoID:          videoID,
				Index:            len(chunks),
				StartTime:        startTime,
				EndTime:          endTime,
				Text:             text,
				TimestampDisplay: FormatTimestamp(startTime),
				YouTubeLink:      TimestampLink(baseLink, startTime),
			})
		}
		parts = parts[:0]
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		segEnd := seg.Start + seg.Duration

		parts = append(parts, text)
		endTime = segEnd

		if endTime-startTime >= windowSeconds {
			flush()
			startTime = segEnd
			endTime = segEnd
		}
	}

	if len(parts) > 0 {
		flush()
	}

	return chunks
}

// FormatTimestamp renders seconds as m:ss, or h:mm:ss past an hour.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// TimestampLink appends a start-time anchor to a YouTube URL.
func TimestampLink(baseURL string, startSeconds float64) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%d", baseURL, sep, int(startSeconds))
}
