package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/repo"
)

// QueryCleanupJob removes completed and failed jobs older than the
// retention period. Pending jobs are never touched.
type QueryCleanupJob struct {
	store  repo.JobStore
	maxAge time.Duration
}

func NewQueryCleanupJob(store repo.JobStore, maxAge time.Duration) *QueryCleanupJob {
	return &QueryCleanupJob{store: store, maxAge: maxAge}
}

func (j *QueryCleanupJob) Name() string {
	return "query_cleanup"
}

func (j *QueryCleanupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	cutoff := time.Now().Add(-maxAge).Unix()
	removed, err := j.store.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("query jobs cleaned", zap.Int64("removed", removed))
	}
	return nil
}
