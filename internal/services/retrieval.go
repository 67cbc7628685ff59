package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"studypath-backend/internal/models"
	"studypath-backend/internal/vectorstore"
)

const (
	// Over-fetch well past the result count so deduplication by video still
	// leaves a full page.
	defaultFetchLimit = 50

	defaultMaxResults = 9

	relaxedMatchNote = "Showing best available match (exact filters not found)"
)

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Ping(ctx context.Context) error
}

// VectorIndex is the slice of the vector store the retrieval engine needs.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, k int, filters models.SearchFilters) ([]vectorstore.Match, error)
	Count(ctx context.Context) (uint64, error)
}

// RetrievalEngine turns a search query into a ranked, deduplicated list of
// video recommendations.
type RetrievalEngine struct {
	embedder   Embedder
	index      VectorIndex
	fetchLimit int
	maxResults int
}

func NewRetrievalEngine(embedder Embedder, index VectorIndex, fetchLimit, maxResults int) *RetrievalEngine {
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &RetrievalEngine{embedder: embedder, index: index, fetchLimit: fetchLimit, maxResults: maxResults}
}

// Search runs the filtered nearest-neighbor search. If the strict search
// returns nothing the filters are dropped and retried, with the top result of
// the relaxed set annotated so the caller can surface the reduced precision.
func (e *RetrievalEngine) Search(ctx context.Context, query string, filters models.SearchFilters) ([]*models.Recommendation, error) {
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	recs, err := e.execute(ctx, vector, filters)
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 || filters.Empty() {
		return recs, nil
	}

	log.Printf("Strict search found nothing for %q, retrying without filters", query)
	recs, err = e.execute(ctx, vector, models.SearchFilters{})
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		recs[0].Note = relaxedMatchNote
	}
	return recs, nil
}

func (e *RetrievalEngine) execute(ctx context.Context, vector []float32, filters models.SearchFilters) ([]*models.Recommendation, error) {
	matches, err := e.index.Query(ctx, vector, e.fetchLimit, filters)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	return e.rank(matches), nil
}

// rank converts matches to recommendations, keeps the best chunk per video,
// and sorts by relevance descending.
func (e *RetrievalEngine) rank(matches []vectorstore.Match) []*models.Recommendation {
	best := make(map[string]*models.Recommendation)
	var order []string

	for _, m := range matches {
		rec := recommendationFromMatch(m)
		existing, ok := best[rec.VideoID]
		if !ok {
			best[rec.VideoID] = rec
			order = append(order, rec.VideoID)
			continue
		}
		if rec.RelevancePercent > existing.RelevancePercent {
			best[rec.VideoID] = rec
		}
	}

	recs := make([]*models.Recommendation, 0, len(order))
	for _, id := range order {
		recs = append(recs, best[id])
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].RelevancePercent > recs[j].RelevancePercent
	})

	if len(recs) > e.maxResults {
		recs = recs[:e.maxResults]
	}
	return recs
}

func recommendationFromMatch(m vectorstore.Match) *models.Recommendation {
	link := m.YouTubeLink
	if link == "" {
		link = fmt.Sprintf("https://www.youtube.com/watch?v=%s", m.VideoID)
	}

	return &models.Recommendation{
		VideoID:          m.VideoID,
		Title:            m.Title,
		Description:      trimPreview(m.Text, 200),
		Difficulty:       m.Difficulty,
		Style:            m.Style,
		Timestamp:        m.Timestamp,
		YouTubeLink:      link,
		Thumbnail:        fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", m.VideoID),
		Source:           m.Source,
		RelevancePercent: relevanceFromDistance(m.Distance),
		Distance:         math.Round(m.Distance*10000) / 10000,
	}
}

// relevanceFromDistance maps a vector distance to a 0-100 score with
// exponential decay, rounded to one decimal.
func relevanceFromDistance(d float64) float64 {
	return math.Round(100*math.Exp(-0.5*d)*10) / 10
}

// trimPreview cuts text at the last word boundary within max chars and
// appends an ellipsis.
func trimPreview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// Health reports the state of every retrieval dependency.
func (e *RetrievalEngine) Health(ctx context.Context) models.SearchHealth {
	health := models.SearchHealth{}

	if err := e.embedder.Ping(ctx); err == nil {
		health.EmbedderLoaded = true
	}

	count, err := e.index.Count(ctx)
	if err == nil {
		health.IndexConnected = true
		health.CollectionAvailable = true
		health.DocumentCount = count
	}

	return health
}
