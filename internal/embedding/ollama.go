package embedding

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// Ollama embedding models choke on very long inputs; truncate defensively
	// at the call site rather than failing the whole chunk.
	maxInputChars = 2048

	maxRetries = 3
	baseDelay  = 1 * time.Second
)

// Service wraps the Ollama embeddings endpoint. The same model must be used
// for indexing and querying or stored vectors become meaningless.
type Service struct {
	client *api.Client
	model  string
	dim    int
}

func NewService(host, model string, dim int) (*Service, error) {
	ollamaURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama host URL: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	client := api.NewClient(ollamaURL, httpClient)

	return &Service{client: client, model: model, dim: dim}, nil
}

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int {
	return s.dim
}

// Ping verifies the Ollama server is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.client.Heartbeat(ctx)
}

// Embed maps text to a fixed-dimension vector. Retries with exponential
// backoff; the caller owns any outer timeout policy.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	req := &api.EmbeddingRequest{
		Model:  s.model,
		Prompt: text,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		resp, err := s.client.Embeddings(reqCtx, req)
		cancel()

		if err == nil {
			if len(resp.Embedding) != s.dim {
				return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(resp.Embedding), s.dim)
			}
			vec := make([]float32, len(resp.Embedding))
			for i, v := range resp.Embedding {
				vec[i] = float32(v)
			}
			return vec, nil
		}

		lastErr = err
		delay := time.Duration(math.Pow(2, float64(attempt))) * baseDelay
		log.Printf("Embedding attempt %d/%d failed: %v (retrying in %v)", attempt+1, maxRetries, err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", maxRetries, lastErr)
}
