package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/handler"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/middleware"
	"github.com/jmorrel/helpqa/internal/model"
	"github.com/jmorrel/helpqa/internal/prompt"
	"github.com/jmorrel/helpqa/internal/repo"
	"github.com/jmorrel/helpqa/internal/retriever"
	"github.com/jmorrel/helpqa/internal/service"
	"github.com/jmorrel/helpqa/internal/worker"
)

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0, 1}
	}
	return out, nil
}

func (fixedEmbedder) ModelName() string { return "stub" }

type fixedGenerator struct{}

func (fixedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "Breaks over 10 minutes are unpaid.", nil
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idx := index.New()
	require.NoError(t, idx.Build(
		[][]float32{{0, 1}},
		[]model.ChunkMetadata{
			{URL: "https://kb.example.com/breaks", Title: "breaks", Text: "Breaks over 10 minutes are unpaid.", ChunkIndex: 0, TotalChunks: 1},
		},
	))
	pool := worker.NewPool(2, 8)
	t.Cleanup(pool.Stop)

	store := repo.NewMemoryJobStore()
	ret := retriever.New(ai.NewBatchEmbedder(fixedEmbedder{}, 32), idx, 2)
	assembler := prompt.NewAssembler(prompt.NewTokenCounter(), 4096)
	queries := service.NewQueryService(store, ret, assembler, fixedGenerator{}, pool, 16, time.Minute)

	deps := handler.RouterDeps{
		Queries: handler.NewQueryHandler(queries),
		Health:  handler.NewHealthHandler(idx),
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestQueryLifecycle(t *testing.T) {
	router := setupRouter(t)

	resp := postJSON(t, router, "/api/v1/queries", map[string]string{"question_text": "How are breaks handled?"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "job_id")

	require.Eventually(t, func() bool {
		poll := get(t, router, "/api/v1/queries/1")
		require.Equal(t, http.StatusOK, poll.Code)
		return bytes.Contains(poll.Body.Bytes(), []byte("completed"))
	}, 2*time.Second, 10*time.Millisecond)

	poll := get(t, router, "/api/v1/queries/1")
	require.Contains(t, poll.Body.String(), "Breaks over 10 minutes are unpaid.")
}

func TestPollUnknownJob(t *testing.T) {
	router := setupRouter(t)

	resp := get(t, router, "/api/v1/queries/999")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "not_found")
}

func TestPollInvalidJobID(t *testing.T) {
	router := setupRouter(t)

	resp := get(t, router, "/api/v1/queries/abc")
	require.Contains(t, resp.Body.String(), "invalid job id")
}

func TestSubmitEmptyQuestion(t *testing.T) {
	router := setupRouter(t)

	resp := postJSON(t, router, "/api/v1/queries", map[string]string{"question_text": "  "})
	require.Contains(t, resp.Body.String(), "invalid")
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	resp := get(t, router, "/api/v1/health")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "ok")
	require.Contains(t, resp.Body.String(), "index_size")
}
