package repo

import (
	"context"
	"sync"

	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

type MemoryJobStore struct {
	mu     sync.RWMutex
	nextID int64
	jobs   map[int64]*model.QueryJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		nextID: 1,
		jobs:   make(map[int64]*model.QueryJob),
	}
}

func (s *MemoryJobStore) Create(ctx context.Context, question string, now int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.jobs[id] = &model.QueryJob{
		ID:       id,
		Question: question,
		Status:   model.JobStatusPending,
		Ctime:    now,
		Mtime:    now,
	}
	return id, nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id int64) (*model.QueryJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *MemoryJobStore) Complete(ctx context.Context, id int64, answer string, mtime int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != model.JobStatusPending {
		return false, nil
	}
	job.Status = model.JobStatusCompleted
	job.Answer = answer
	job.Mtime = mtime
	return true, nil
}

func (s *MemoryJobStore) Fail(ctx context.Context, id int64, message string, mtime int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != model.JobStatusPending {
		return false, nil
	}
	job.Status = model.JobStatusFailed
	job.Message = message
	job.Mtime = mtime
	return true, nil
}

func (s *MemoryJobStore) DeleteTerminalBefore(ctx context.Context, cutoff int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, job := range s.jobs {
		if job.Terminal() && job.Mtime < cutoff {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}
