package ai

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// BatchEmbedder feeds texts to the underlying embedder in fixed-size
// batches. A failed batch yields nil placeholders for every text in that
// batch instead of aborting the whole call, so a partially embeddable
// corpus can still be indexed. Callers must skip nil entries.
type BatchEmbedder struct {
	embedder  IEmbedder
	batchSize int
}

func NewBatchEmbedder(embedder IEmbedder, batchSize int) *BatchEmbedder {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &BatchEmbedder{embedder: embedder, batchSize: batchSize}
}

func (b *BatchEmbedder) ModelName() string {
	return b.embedder.ModelName()
}

func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string, taskType string) [][]float32 {
	logger := logutil.GetLogger(ctx)
	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := b.embedder.EmbedBatch(ctx, texts[start:end], taskType)
		if err != nil || len(batch) != end-start {
			logger.Warn("embedding batch failed, dropping texts",
				zap.Int("batch_start", start),
				zap.Int("batch_end", end),
				zap.Error(err),
			)
			continue
		}
		copy(vectors[start:end], batch)
	}
	return vectors
}

// EmbedOne embeds a single text (a one-item batch). Returns nil when the
// batch failed.
func (b *BatchEmbedder) EmbedOne(ctx context.Context, text string, taskType string) []float32 {
	vectors := b.EmbedAll(ctx, []string{text}, taskType)
	return vectors[0]
}
