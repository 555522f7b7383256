package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
	"github.com/jmorrel/helpqa/internal/repo"
)

func TestQueryCleanupRemovesOldTerminalJobs(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryJobStore()
	old := time.Now().Add(-100 * time.Hour).Unix()

	done, err := store.Create(ctx, "old done", old)
	require.NoError(t, err)
	_, err = store.Complete(ctx, done, "answer", old)
	require.NoError(t, err)

	pending, err := store.Create(ctx, "old pending", old)
	require.NoError(t, err)

	fresh, err := store.Create(ctx, "fresh done", time.Now().Unix())
	require.NoError(t, err)
	_, err = store.Complete(ctx, fresh, "answer", time.Now().Unix())
	require.NoError(t, err)

	j := NewQueryCleanupJob(store, 72*time.Hour)
	require.Equal(t, "query_cleanup", j.Name())
	require.NoError(t, j.Run(ctx))

	_, err = store.Get(ctx, done)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	job, err := store.Get(ctx, pending)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusPending, job.Status)

	_, err = store.Get(ctx, fresh)
	require.NoError(t, err)
}
