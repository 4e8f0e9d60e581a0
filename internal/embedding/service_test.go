package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docutor/internal/llm"
)

type fakeGateway struct {
	batches  [][]string
	err      error
	shortBy  int
	gotModel string
}

func (f *fakeGateway) Chat(_ context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.batches = append(f.batches, req.Input)
	f.gotModel = req.Model
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(req.Input)-f.shortBy)
	for i := range vectors {
		vectors[i] = []float32{float32(i)}
	}
	return &llm.EmbeddingResponse{Embeddings: vectors}, nil
}

func inputs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("text %d", i)
	}
	return out
}

func TestEmbedBatchesAtHundred(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "text-embedding-3-small")

	vectors, err := svc.Embed(context.Background(), inputs(250))
	require.NoError(t, err)

	assert.Len(t, vectors, 250)
	require.Len(t, gw.batches, 3)
	assert.Len(t, gw.batches[0], 100)
	assert.Len(t, gw.batches[1], 100)
	assert.Len(t, gw.batches[2], 50)
	assert.Equal(t, "text-embedding-3-small", gw.gotModel)
}

func TestEmbedEmptyInput(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "m")

	vectors, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, gw.batches)
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	gw := &fakeGateway{shortBy: 1}
	svc := NewService(gw, "m")

	_, err := svc.Embed(context.Background(), inputs(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 inputs")
}

func TestEmbedPropagatesBackendError(t *testing.T) {
	backendErr := errors.New("quota exceeded")
	gw := &fakeGateway{err: backendErr}
	svc := NewService(gw, "m")

	_, err := svc.Embed(context.Background(), inputs(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
}

func TestEmbedSingle(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, "m")

	vec, err := svc.EmbedSingle(context.Background(), "one text")
	require.NoError(t, err)
	assert.NotNil(t, vec)
	require.Len(t, gw.batches, 1)
	assert.Equal(t, []string{"one text"}, gw.batches[0])
}
