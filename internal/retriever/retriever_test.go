package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

type stubEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if s.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func buildIndex(t *testing.T) *index.VectorIndex {
	t.Helper()
	idx := index.New()
	vectors := [][]float32{
		{0, 1},
		{1, 0},
		{5, 5},
	}
	meta := []model.ChunkMetadata{
		{URL: "https://kb.example.com/breaks", Title: "breaks", Text: "Breaks over 10 minutes are unpaid.", ChunkIndex: 0, TotalChunks: 1},
		{URL: "https://kb.example.com/tasks", Title: "tasks", Text: "Task Manager lets you assign duties.", ChunkIndex: 0, TotalChunks: 1},
		{URL: "https://kb.example.com/pay", Title: "pay", Text: "Payroll runs every other Friday.", ChunkIndex: 0, TotalChunks: 1},
	}
	require.NoError(t, idx.Build(vectors, meta))
	return idx
}

func TestRetrieveOrdersByDistance(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"how do breaks work": {0, 0.9},
	}}
	r := New(ai.NewBatchEmbedder(embedder, 32), buildIndex(t), 2)

	chunks, err := r.Retrieve(context.Background(), "how do breaks work")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "https://kb.example.com/breaks", chunks[0].URL)
	require.Equal(t, "https://kb.example.com/tasks", chunks[1].URL)
	require.Less(t, chunks[0].Distance, chunks[1].Distance)
}

func TestRetrieveEmbeddingUnavailable(t *testing.T) {
	embedder := &stubEmbedder{fail: true}
	r := New(ai.NewBatchEmbedder(embedder, 32), buildIndex(t), 2)

	_, err := r.Retrieve(context.Background(), "anything")
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
}

func TestRetrieveIndexNotBuilt(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{"q": {1, 2}}}
	r := New(ai.NewBatchEmbedder(embedder, 32), index.New(), 2)

	_, err := r.Retrieve(context.Background(), "q")
	require.ErrorIs(t, err, appErr.ErrNotBuilt)
}
