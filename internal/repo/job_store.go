package repo

import (
	"context"

	"github.com/jmorrel/helpqa/internal/model"
)

// JobStore tracks query jobs from submission to their terminal state.
// Complete and Fail only apply to pending jobs and report whether the
// transition happened, so a job settles exactly once.
type JobStore interface {
	Create(ctx context.Context, question string, now int64) (int64, error)
	Get(ctx context.Context, id int64) (*model.QueryJob, error)
	Complete(ctx context.Context, id int64, answer string, mtime int64) (bool, error)
	Fail(ctx context.Context, id int64, message string, mtime int64) (bool, error)
	DeleteTerminalBefore(ctx context.Context, cutoff int64) (int64, error)
}
