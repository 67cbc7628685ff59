package models

import (
	"time"
)

// TranscriptSegment is one caption line with its timing, as returned by the
// transcript extractor.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// VideoMeta is the scraped metadata for one source video.
type VideoMeta struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	Description     string `json:"description"`
	ThumbnailURL    string `json:"thumbnail_url"`
	YouTubeLink     string `json:"youtube_link"`
	DurationSeconds int    `json:"duration_seconds"`
	Views           int64  `json:"views"`
	Likes           int64  `json:"likes"`
}

// ContentTags are the classification results for one video.
type ContentTags struct {
	Difficulty  string `json:"difficulty"`  // Beginner | Intermediate | Advanced
	Style       string `json:"style"`       // One_Shot, Course, Practical, ...
	Granularity string `json:"granularity"` // Specific | Broad
	Engagement  string `json:"engagement"`  // Popular | Hidden_Gem | Standard | Unknown
}

// Chunk is a time-bounded slice of a transcript, the unit stored in the
// vector index.
type Chunk struct {
	VideoID          string  `json:"video_id"`
	Index            int     `json:"chunk_index"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time"`
	Text             string  `json:"text_content"`
	TimestampDisplay string  `json:"timestamp_display"`
	YouTubeLink      string  `json:"youtube_link"`
}

// Crawl task states for the indexing pipeline.
const (
	TaskStatusPending     = "pending"
	TaskStatusProcessing  = "processing"
	TaskStatusDone        = "done"
	TaskStatusError       = "error"
	TaskStatusUnavailable = "unavailable"
)

// VideoTask is a row in the crawl queue. Manual* fields override automatic
// tagging when set by an operator.
type VideoTask struct {
	ID               int64      `json:"id"`
	URL              string     `json:"url"`
	Status           string     `json:"status"`
	Source           string     `json:"source"`
	Topic            *string    `json:"topic"`
	ManualDifficulty *string    `json:"manual_difficulty"`
	ManualStyle      *string    `json:"manual_style"`
	FinalDifficulty  *string    `json:"final_difficulty"`
	FinalStyle       *string    `json:"final_style"`
	FinalEngagement  *string    `json:"final_engagement"`
	VectorCount      int        `json:"vector_count"`
	ErrorLog         *string    `json:"error_log"`
	CreatedAt        time.Time  `json:"created_at"`
	ProcessedAt      *time.Time `json:"processed_at"`
}
