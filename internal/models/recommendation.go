package models

// Recommendation is one ranked content suggestion returned by the retrieval
// engine. RelevancePercent is 0-100, higher is more similar to the query.
type Recommendation struct {
	VideoID          string  `json:"video_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Difficulty       string  `json:"difficulty"`
	Style            string  `json:"style"`
	Timestamp        string  `json:"timestamp"`
	YouTubeLink      string  `json:"youtube_link"`
	Thumbnail        string  `json:"thumbnail"`
	Source           string  `json:"source"`
	RelevancePercent float64 `json:"relevance_percent"`
	Distance         float64 `json:"distance"`
	// Set on the top result when the strict filtered search found nothing
	// and the results come from the relaxed retry.
	Note string `json:"note,omitempty"`
}

// SearchHealth reports whether the retrieval path is usable.
type SearchHealth struct {
	EmbedderLoaded      bool   `json:"embedder_loaded"`
	IndexConnected      bool   `json:"index_connected"`
	CollectionAvailable bool   `json:"collection_available"`
	DocumentCount       uint64 `json:"document_count"`
}

// API error envelope shared by all handlers.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
