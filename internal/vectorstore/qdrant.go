package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"studypath-backend/internal/models"
)

// Record is one chunk to upsert: id, vector, raw text and filterable metadata.
type Record struct {
	ChunkID      string
	Vector       []float32
	Text         string
	VideoID      string
	Title        string
	YouTubeLink  string
	Timestamp    string
	StartSeconds float64
	EndSeconds   float64
	Difficulty   string
	Style        string
	Granularity  string
	Engagement   string
	Source       string
	Channel      string
}

// Match is one nearest-neighbor hit. Distance is 1 - cosine similarity, so
// lower means closer.
type Match struct {
	ChunkID      string
	VideoID      string
	Text         string
	Title        string
	YouTubeLink  string
	Timestamp    string
	StartSeconds float64
	Difficulty   string
	Style        string
	Granularity  string
	Engagement   string
	Source       string
	Channel      string
	Distance     float64
}

// Store is the vector index client. Point ids are deterministic UUIDs derived
// from the chunk id (Qdrant only accepts numeric or UUID ids), so re-indexing
// a video overwrites its prior chunks instead of duplicating them.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	collection  string
	dimension   int
}

func NewStore(host string, port int, collection string, dimension int) (*Store, error) {
	conn, err := grpc.NewClient(
		fmt.Sprintf("%s:%d", host, port),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &Store{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		collection:  collection,
		dimension:   dimension,
	}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the cosine-distance collection if it is missing.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, col := range collections.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes records with last-writer-wins semantics per chunk id.
func (s *Store) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(rec.ChunkID),
			Vectors: vectors(rec.Vector),
			Payload: payloadFromRecord(rec),
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query runs a nearest-neighbor search with optional metadata-equality
// filters (AND-combined).
func (s *Store) Query(ctx context.Context, vector []float32, k int, filters models.SearchFilters) ([]Match, error) {
	req := &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    withPayload(),
	}
	if f := buildFilter(filters); f != nil {
		req.Filter = f
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		m := matchFromPayload(pt.GetPayload())
		// Qdrant reports cosine similarity; convert to a distance so
		// downstream ranking works on "lower is closer".
		m.Distance = 1 - float64(pt.GetScore())
		if m.Distance < 0 {
			m.Distance = 0
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// GetByVideoID returns all stored chunks for one video, for transcript
// reassembly.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) ([]Match, error) {
	limit := uint32(1000)
	resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{keywordCondition("video_id", videoID)},
		},
		Limit:       &limit,
		WithPayload: withPayload(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points for video %s: %w", videoID, err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		matches = append(matches, matchFromPayload(pt.GetPayload()))
	}
	return matches, nil
}

// DeleteByVideoID removes every chunk belonging to a video.
func (s *Store) DeleteByVideoID(ctx context.Context, videoID string) error {
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{keywordCondition("video_id", videoID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points for video %s: %w", videoID, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

func buildFilter(filters models.SearchFilters) *qdrant.Filter {
	var must []*qdrant.Condition
	if filters.Difficulty != "" {
		must = append(must, keywordCondition("difficulty", filters.Difficulty))
	}
	if filters.Style != "" {
		must = append(must, keywordCondition("style", filters.Style))
	}
	if filters.Granularity != "" {
		must = append(must, keywordCondition("granularity", filters.Granularity))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func payloadFromRecord(rec Record) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"chunk_id":        stringValue(rec.ChunkID),
		"video_id":        stringValue(rec.VideoID),
		"text":            stringValue(rec.Text),
		"title":           stringValue(rec.Title),
		"youtube_link":    stringValue(rec.YouTubeLink),
		"timestamp":       stringValue(rec.Timestamp),
		"start_seconds":   doubleValue(rec.StartSeconds),
		"end_seconds":     doubleValue(rec.EndSeconds),
		"difficulty":      stringValue(rec.Difficulty),
		"style":           stringValue(rec.Style),
		"granularity":     stringValue(rec.Granularity),
		"engagement_tier": stringValue(rec.Engagement),
		"source":          stringValue(rec.Source),
		"channel":         stringValue(rec.Channel),
	}
}

func matchFromPayload(payload map[string]*qdrant.Value) Match {
	return Match{
		ChunkID:      payload["chunk_id"].GetStringValue(),
		VideoID:      payload["video_id"].GetStringValue(),
		Text:         payload["text"].GetStringValue(),
		Title:        payload["title"].GetStringValue(),
		YouTubeLink:  payload["youtube_link"].GetStringValue(),
		Timestamp:    payload["timestamp"].GetStringValue(),
		StartSeconds: payload["start_seconds"].GetDoubleValue(),
		Difficulty:   payload["difficulty"].GetStringValue(),
		Style:        payload["style"].GetStringValue(),
		Granularity:  payload["granularity"].GetStringValue(),
		Engagement:   payload["engagement_tier"].GetStringValue(),
		Source:       payload["source"].GetStringValue(),
		Channel:      payload["channel"].GetStringValue(),
	}
}

func pointID(chunkID string) *qdrant.PointId {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("chunk:"+chunkID))
	return &qdrant.PointId{
		PointIdOptions: &qdrant.PointId_Uuid{Uuid: id.String()},
	}
}

func withPayload() *qdrant.WithPayloadSelector {
	return &qdrant.WithPayloadSelector{
		SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
	}
}

func vectors(data []float32) *qdrant.Vectors {
	return &qdrant.Vectors{
		VectorsOptions: &qdrant.Vectors_Vector{
			Vector: &qdrant.Vector{Data: data},
		},
	}
}

func stringValue(v string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
}

func doubleValue(v float64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
}
