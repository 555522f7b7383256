package embedcache

import (
	"context"
	"time"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/model"
	"github.com/jmorrel/helpqa/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

func WrapDBCacheToEmbedder(e ai.IEmbedder, cacheRepo *repo.EmbeddingCacheRepo) ai.IEmbedder {
	if e == nil || cacheRepo == nil {
		return e
	}
	return &dbEmbedder{next: e, repo: cacheRepo}
}

type dbEmbedder struct {
	next ai.IEmbedder
	repo *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if d == nil || d.next == nil {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	hits := 0
	for i, text := range texts {
		_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, text)
		values, ok, err := d.repo.Get(ctx, modelName, taskType, contentHash)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = values
			hits++
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if hits > 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit (db)",
			zap.String("task_type", taskType), zap.Int("count", hits))
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	res, err := d.next.EmbedBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	for j, i := range missIdx {
		out[i] = res[j]
		_, contentHash, modelName := buildCacheKey(d.next.ModelName(), taskType, missTexts[j])
		if err := d.repo.Save(ctx, &model.EmbeddingCache{
			ModelName:   modelName,
			TaskType:    taskType,
			ContentHash: contentHash,
			Embedding:   res[j],
			Ctime:       now,
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
		}
	}
	return out, nil
}

func (d *dbEmbedder) ModelName() string {
	if d == nil || d.next == nil {
		return ""
	}
	return d.next.ModelName()
}
