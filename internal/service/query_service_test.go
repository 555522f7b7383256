package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
	"github.com/jmorrel/helpqa/internal/prompt"
	"github.com/jmorrel/helpqa/internal/repo"
	"github.com/jmorrel/helpqa/internal/retriever"
	"github.com/jmorrel/helpqa/internal/worker"
)

type fixedEmbedder struct {
	vector []float32
	fail   bool
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fixedEmbedder) ModelName() string { return "stub" }

type stubGenerator struct {
	answer string
	fail   bool
	calls  atomic.Int64
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.fail {
		return "", errors.New("model overloaded")
	}
	return g.answer, nil
}

type panicGenerator struct{}

func (g *panicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	panic("model backend blew up")
}

func newTestService(t *testing.T, embedder ai.IEmbedder, generator ai.IGenerator, pool *worker.Pool) (*QueryService, *repo.MemoryJobStore) {
	t.Helper()
	idx := index.New()
	require.NoError(t, idx.Build(
		[][]float32{{0, 1}, {1, 0}},
		[]model.ChunkMetadata{
			{URL: "https://kb.example.com/breaks", Title: "breaks", Text: "Breaks over 10 minutes are unpaid.", ChunkIndex: 0, TotalChunks: 1},
			{URL: "https://kb.example.com/tasks", Title: "tasks", Text: "Task Manager lets you assign duties.", ChunkIndex: 0, TotalChunks: 1},
		},
	))
	store := repo.NewMemoryJobStore()
	ret := retriever.New(ai.NewBatchEmbedder(embedder, 32), idx, 2)
	assembler := prompt.NewAssembler(prompt.NewTokenCounter(), 4096)
	svc := NewQueryService(store, ret, assembler, generator, pool, 16, time.Minute)
	return svc, store
}

func waitTerminal(t *testing.T, svc *QueryService, id int64) *model.QueryJob {
	t.Helper()
	var job *model.QueryJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Get(context.Background(), id)
		require.NoError(t, err)
		return job.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestSubmitAndComplete(t *testing.T) {
	pool := worker.NewPool(2, 8)
	defer pool.Stop()
	generator := &stubGenerator{answer: "Breaks over 10 minutes are unpaid."}
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, generator, pool)

	id, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	job := waitTerminal(t, svc, id)
	require.Equal(t, model.JobStatusCompleted, job.Status)
	require.Equal(t, "Breaks over 10 minutes are unpaid.", job.Answer)
	require.Empty(t, job.Message)
}

func TestSubmitRejectsEmptyQuestion(t *testing.T) {
	pool := worker.NewPool(1, 4)
	defer pool.Stop()
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, &stubGenerator{answer: "x"}, pool)

	_, err := svc.Submit(context.Background(), "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestGenerationFailureFailsJob(t *testing.T) {
	pool := worker.NewPool(1, 4)
	defer pool.Stop()
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, &stubGenerator{fail: true}, pool)

	id, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)

	job := waitTerminal(t, svc, id)
	require.Equal(t, model.JobStatusFailed, job.Status)
	require.Equal(t, "I apologize, but I encountered an error while generating the answer.", job.Message)
}

func TestGenerationPanicFailsJob(t *testing.T) {
	pool := worker.NewPool(1, 4)
	defer pool.Stop()
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, &panicGenerator{}, pool)

	id, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)

	job := waitTerminal(t, svc, id)
	require.Equal(t, model.JobStatusFailed, job.Status)
	require.Equal(t, "I apologize, but I encountered an error while generating the answer.", job.Message)
}

func TestEmbeddingFailureFailsJob(t *testing.T) {
	pool := worker.NewPool(1, 4)
	defer pool.Stop()
	svc, _ := newTestService(t, &fixedEmbedder{fail: true}, &stubGenerator{answer: "x"}, pool)

	id, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)

	job := waitTerminal(t, svc, id)
	require.Equal(t, model.JobStatusFailed, job.Status)
	require.Contains(t, job.Message, "embedding unavailable")
}

func TestSubmitQueueFullFailsImmediately(t *testing.T) {
	pool := worker.NewPool(1, 1)
	defer pool.Stop()
	generator := &stubGenerator{answer: "x"}
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, generator, pool)

	// occupy the single worker and the single queue slot
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(func(ctx context.Context) {}))

	id, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)

	job, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusFailed, job.Status)
	require.Equal(t, "server busy", job.Message)
	close(release)
}

func TestAnswerCacheSkipsGeneration(t *testing.T) {
	pool := worker.NewPool(1, 8)
	defer pool.Stop()
	generator := &stubGenerator{answer: "cached answer"}
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, generator, pool)

	first, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)
	waitTerminal(t, svc, first)

	second, err := svc.Submit(context.Background(), "How are breaks handled?")
	require.NoError(t, err)
	job := waitTerminal(t, svc, second)

	require.Equal(t, model.JobStatusCompleted, job.Status)
	require.Equal(t, "cached answer", job.Answer)
	require.Equal(t, int64(1), generator.calls.Load())
}

func TestGetUnknownJob(t *testing.T) {
	pool := worker.NewPool(1, 4)
	defer pool.Stop()
	svc, _ := newTestService(t, &fixedEmbedder{vector: []float32{0, 1}}, &stubGenerator{answer: "x"}, pool)

	_, err := svc.Get(context.Background(), 999)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
