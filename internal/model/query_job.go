package model

const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// QueryJob tracks one submitted question from pending to a terminal state.
// A job transitions exactly once, to completed or failed, and is never
// mutated afterwards.
type QueryJob struct {
	ID       int64
	Question string
	Status   string
	Answer   string
	Message  string
	Ctime    int64
	Mtime    int64
}

func (j *QueryJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
