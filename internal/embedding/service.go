package embedding

import (
	"context"
	"fmt"

	"docutor/internal/llm"
)

// batchLimit is the most texts sent to the backend in one call.
const batchLimit = 100

// Service turns text into vectors using the embedding backend pinned at
// startup. Transient backend failures propagate to the caller; retry policy
// lives with whoever invoked the embedding.
type Service struct {
	gateway llm.Gateway
	model   string
}

func NewService(gw llm.Gateway, model string) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &Service{gateway: gw, model: model}
}

// Embed vectorizes texts in order, splitting the input into backend-sized
// batches. A batch whose result count does not match its input count is an
// error: silently misaligned vectors would attach embeddings to the wrong
// chunks.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchLimit {
		end := min(start+batchLimit, len(texts))

		got, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("texts %d..%d: %w", start, end-1, err)
		}
		vectors = append(vectors, got...)
	}
	return vectors, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{Model: s.model, Input: batch})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(batch) {
		return nil, fmt.Errorf("got %d vectors for %d inputs", len(resp.Embeddings), len(batch))
	}
	return resp.Embeddings, nil
}

func (s *Service) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}
