package retriever

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

// Retriever embeds a question and looks up the nearest chunks in the
// vector index, ordered closest first.
type Retriever struct {
	embedder *ai.BatchEmbedder
	index    *index.VectorIndex
	topK     int
}

func New(embedder *ai.BatchEmbedder, idx *index.VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{embedder: embedder, index: idx, topK: topK}
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]model.RankedChunk, error) {
	vector := r.embedder.EmbedOne(ctx, question, ai.TaskRetrievalQuery)
	if vector == nil {
		return nil, fmt.Errorf("embed question: %w", appErr.ErrEmbeddingUnavailable)
	}
	results, err := r.index.Search(vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	chunks := make([]model.RankedChunk, 0, len(results))
	for _, res := range results {
		meta, err := r.index.Metadata(res.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve chunk %d: %w", res.ID, err)
		}
		chunks = append(chunks, model.RankedChunk{
			URL:      meta.URL,
			Title:    meta.Title,
			Text:     meta.Text,
			Distance: res.Distance,
		})
	}
	logutil.GetLogger(ctx).Debug("retrieved chunks",
		zap.Int("count", len(chunks)), zap.Int("top_k", r.topK))
	return chunks, nil
}
