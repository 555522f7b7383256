package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
	"github.com/jmorrel/helpqa/internal/prompt"
	"github.com/jmorrel/helpqa/internal/repo"
	"github.com/jmorrel/helpqa/internal/retriever"
	"github.com/jmorrel/helpqa/internal/worker"
)

const (
	generationFallbackMessage = "I apologize, but I encountered an error while generating the answer."
	queueBusyMessage          = "server busy"
)

// QueryService accepts questions, answers them on background workers and
// exposes job state for polling. A submitted job always ends up either
// completed or failed, exactly once.
type QueryService struct {
	store     repo.JobStore
	retriever *retriever.Retriever
	assembler *prompt.Assembler
	generator ai.IGenerator
	pool      *worker.Pool
	answers   *expirable.LRU[string, string]
}

func NewQueryService(store repo.JobStore, ret *retriever.Retriever, assembler *prompt.Assembler,
	generator ai.IGenerator, pool *worker.Pool, answerCacheSize int, answerCacheTTL time.Duration) *QueryService {
	s := &QueryService{
		store:     store,
		retriever: ret,
		assembler: assembler,
		generator: generator,
		pool:      pool,
	}
	if answerCacheSize > 0 && answerCacheTTL > 0 {
		s.answers = expirable.NewLRU[string, string](answerCacheSize, nil, answerCacheTTL)
	}
	return s
}

// Submit records a pending job and hands it to the worker pool. When the
// pool is saturated the job fails immediately instead of blocking the
// caller; the returned id is valid either way.
func (s *QueryService) Submit(ctx context.Context, question string) (int64, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return 0, fmt.Errorf("empty question: %w", appErr.ErrInvalid)
	}
	now := time.Now().Unix()
	id, err := s.store.Create(ctx, question, now)
	if err != nil {
		return 0, err
	}
	if err := s.pool.Submit(func(taskCtx context.Context) {
		s.process(taskCtx, id, question)
	}); err != nil {
		logutil.GetLogger(ctx).Warn("query queue full, failing job", zap.Int64("job_id", id))
		if _, ferr := s.store.Fail(ctx, id, queueBusyMessage, time.Now().Unix()); ferr != nil {
			logutil.GetLogger(ctx).Error("failed to mark job failed", zap.Int64("job_id", id), zap.Error(ferr))
		}
	}
	return id, nil
}

func (s *QueryService) Get(ctx context.Context, id int64) (*model.QueryJob, error) {
	return s.store.Get(ctx, id)
}

func (s *QueryService) process(ctx context.Context, id int64, question string) {
	logger := logutil.GetLogger(ctx).With(zap.Int64("job_id", id))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("query processing panicked", zap.Any("panic", r))
			if _, ferr := s.store.Fail(ctx, id, generationFallbackMessage, time.Now().Unix()); ferr != nil {
				logger.Error("failed to mark job failed", zap.Error(ferr))
			}
		}
	}()
	answer, err := s.answer(ctx, question)
	now := time.Now().Unix()
	if err != nil {
		message := err.Error()
		if errors.Is(err, appErr.ErrGenerationFailure) {
			message = generationFallbackMessage
		}
		applied, ferr := s.store.Fail(ctx, id, message, now)
		if ferr != nil {
			logger.Error("failed to mark job failed", zap.Error(ferr))
			return
		}
		if applied {
			logger.Warn("query job failed", zap.Error(err))
		}
		return
	}
	applied, err := s.store.Complete(ctx, id, answer, now)
	if err != nil {
		logger.Error("failed to mark job completed", zap.Error(err))
		return
	}
	if applied {
		logger.Info("query job completed")
	}
}

func (s *QueryService) answer(ctx context.Context, question string) (string, error) {
	if s.answers != nil {
		if cached, ok := s.answers.Get(question); ok {
			logutil.GetLogger(ctx).Debug("answer cache hit")
			return cached, nil
		}
	}
	chunks, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", err
	}
	promptText := s.assembler.Assemble(question, chunks)
	answer, err := s.generator.Generate(ctx, promptText)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrGenerationFailure, err)
	}
	if s.answers != nil {
		s.answers.Add(question, answer)
	}
	return answer, nil
}
